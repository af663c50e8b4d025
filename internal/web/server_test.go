package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leaguebot/internal/league"
	"leaguebot/internal/reminder"

	"github.com/jonboulle/clockwork"
)

var webNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeStats struct {
	stats reminder.Stats
}

func (f fakeStats) Stats() reminder.Stats {
	return f.stats
}

type fakeMatches struct {
	matches []league.ScheduledMatch
	clubs   []league.Club
	err     error
	until   time.Time
}

func (f *fakeMatches) UpcomingMatches(ctx context.Context, from time.Time, until time.Time) ([]league.ScheduledMatch, error) {
	f.until = until
	return f.matches, f.err
}

func (f *fakeMatches) ListClubs(ctx context.Context) ([]league.Club, error) {
	return f.clubs, f.err
}

func newTestServer(t *testing.T, matches *fakeMatches) *Server {
	t.Helper()
	stats := fakeStats{reminder.Stats{Running: true, Window: "5m0s", Interval: "1m0s", Ticks: 3, TotalNotified: 2}}
	s, err := CreateServer(":0", "Football League Bot", stats, matches, clockwork.NewFakeClockAt(webNow), time.UTC)
	if err != nil {
		t.Fatalf("could not create server: %v", err)
	}
	return s
}

func testMatches() *fakeMatches {
	return &fakeMatches{
		clubs: []league.Club{{Id: 1, Name: "Rovers"}, {Id: 2, Name: "United"}},
		matches: []league.ScheduledMatch{
			{Id: 5, Home: 1, Away: 2, Start: webNow.Add(2 * time.Hour)},
		},
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testMatches())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestStatusPage(t *testing.T) {
	s := newTestServer(t, testMatches())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Football League Bot", "<td>Rovers</td>", "<td>United</td>", "2030-06-01 14:00 UTC", "<td>3</td>"} {
		if !strings.Contains(body, want) {
			t.Errorf("page does not contain %q", want)
		}
	}
}

func TestUnknownPath(t *testing.T) {
	s := newTestServer(t, testMatches())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMatchesAPI(t *testing.T) {
	matches := testMatches()
	s := newTestServer(t, matches)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/matches?days=3", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !matches.until.Equal(webNow.AddDate(0, 0, 3)) {
		t.Errorf("asked for matches until %v", matches.until)
	}
	var body struct {
		Days    int         `json:"days"`
		Matches []MatchView `json:"matches"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("could not decode body: %v", err)
	}
	if body.Days != 3 || len(body.Matches) != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
	if got := body.Matches[0]; got.Id != 5 || got.Home != "Rovers" || got.Away != "United" || got.ReminderSent {
		t.Errorf("unexpected match %+v", got)
	}
}

func TestMatchesAPIRejectsBadDays(t *testing.T) {
	s := newTestServer(t, testMatches())
	for _, days := range []string{"0", "31", "week"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/matches?days="+days, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("days=%s: status = %d", days, rec.Code)
		}
	}
}

func TestMatchesAPIStoreFailure(t *testing.T) {
	matches := testMatches()
	matches.err = errors.New("database is locked")
	s := newTestServer(t, matches)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/matches", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}
