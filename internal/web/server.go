package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"leaguebot/internal/league"
	"leaguebot/internal/reminder"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

//go:embed templates/status.html
var templates embed.FS

const (
	defaultDays = 7
	maxDays     = 30
)

type StatsSource interface {
	Stats() reminder.Stats
}

type MatchSource interface {
	UpcomingMatches(ctx context.Context, from time.Time, until time.Time) ([]league.ScheduledMatch, error)
	ListClubs(ctx context.Context) ([]league.Club, error)
}

// What the page and the API show of a match
type MatchView struct {
	Id           league.MatchId `json:"id"`
	Home         string         `json:"home"`
	Away         string         `json:"away"`
	Start        time.Time      `json:"start"`
	ReminderSent bool           `json:"reminder_sent"`
}

type statusPage struct {
	Name    string
	Uptime  time.Duration
	Stats   reminder.Stats
	Days    int
	Matches []MatchView
}

// Read only status page of the bot
type Server struct {
	name     string
	stats    StatsSource
	matches  MatchSource
	clock    clockwork.Clock
	started  time.Time
	page     *template.Template
	location *time.Location
	server   *http.Server
}

func CreateServer(addr string, name string, stats StatsSource, matches MatchSource, clock clockwork.Clock, location *time.Location) (*Server, error) {
	page, err := template.ParseFS(templates, "templates/status.html")
	if err != nil {
		return nil, fmt.Errorf("parsing status template: %w", err)
	}
	if location == nil {
		location = time.UTC
	}
	s := &Server{
		name:     name,
		stats:    stats,
		matches:  matches,
		clock:    clock,
		started:  clock.Now(),
		page:     page,
		location: location,
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/matches", s.handleMatches)
	return mux
}

// Serve in the background until Shutdown
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.server.Addr).Msg("Status page starting")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Status page failed")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	matches, err := s.upcoming(r.Context(), defaultDays)
	if err != nil {
		log.Error().Err(err).Msg("Could not read upcoming matches for the status page")
		http.Error(w, "could not read matches", http.StatusInternalServerError)
		return
	}
	data := statusPage{
		Name:    s.name,
		Uptime:  s.clock.Since(s.started).Truncate(time.Second),
		Stats:   s.stats.Stats(),
		Days:    defaultDays,
		Matches: matches,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("Could not render the status page")
	}
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	days := defaultDays
	if value := r.URL.Query().Get("days"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 || parsed > maxDays {
			http.Error(w, fmt.Sprintf("days must be a number between 1 and %d", maxDays), http.StatusBadRequest)
			return
		}
		days = parsed
	}

	matches, err := s.upcoming(r.Context(), days)
	if err != nil {
		log.Error().Err(err).Msg("Could not read upcoming matches for the API")
		http.Error(w, "could not read matches", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"days": days, "matches": matches}); err != nil {
		log.Error().Err(err).Msg("Could not encode matches")
	}
}

func (s *Server) upcoming(ctx context.Context, days int) ([]MatchView, error) {
	now := s.clock.Now()
	matches, err := s.matches.UpcomingMatches(ctx, now, now.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}
	clubs, err := s.matches.ListClubs(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[league.ClubId]string, len(clubs))
	for _, club := range clubs {
		names[club.Id] = club.Name
	}

	views := make([]MatchView, 0, len(matches))
	for _, match := range matches {
		views = append(views, MatchView{
			Id:           match.Id,
			Home:         names[match.Home],
			Away:         names[match.Away],
			Start:        match.Start.In(s.location),
			ReminderSent: match.ReminderSent,
		})
	}
	return views, nil
}
