package league

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"leaguebot/internal/common"

	"github.com/rs/zerolog/log"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS clubs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		owner_id TEXT NOT NULL,
		money REAL NOT NULL DEFAULT 0,
		role_id TEXT,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		value REAL NOT NULL DEFAULT 0,
		position TEXT,
		age INTEGER,
		club_id INTEGER REFERENCES clubs (id) ON DELETE SET NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transfers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id INTEGER NOT NULL REFERENCES players (id) ON DELETE CASCADE,
		from_club_id INTEGER REFERENCES clubs (id) ON DELETE SET NULL,
		to_club_id INTEGER NOT NULL REFERENCES clubs (id) ON DELETE CASCADE,
		transfer_fee REAL NOT NULL DEFAULT 0,
		transfer_date INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		home_club_id INTEGER NOT NULL REFERENCES clubs (id) ON DELETE CASCADE,
		away_club_id INTEGER NOT NULL REFERENCES clubs (id) ON DELETE CASCADE,
		match_time INTEGER NOT NULL,
		reminder_sent INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_reminder ON matches (reminder_sent, match_time)`,
	`CREATE INDEX IF NOT EXISTS idx_players_club ON players (club_id)`,
}

// Columns that databases created before players and roles existed lack
var clubMigrations = []struct{ column, definition string }{
	{"money", "REAL NOT NULL DEFAULT 0"},
	{"role_id", "TEXT"},
}

const matchColumns = "id, home_club_id, away_club_id, match_time, reminder_sent, created_at"
const clubColumns = "id, name, owner_id, money, role_id, created_at"

// Persistence of the league. Safe for concurrent use:
// the command handlers and the reminder scheduler share one instance
type DatabaseLeague struct {
	common.Database
}

func CreateDatabaseLeague(dbFilename string) (*DatabaseLeague, error) {
	database, err := common.CreateDatabase(dbFilename, schema)
	if err != nil {
		return nil, err
	}
	for _, migration := range clubMigrations {
		if err := database.EnsureColumn("clubs", migration.column, migration.definition); err != nil {
			database.Close()
			return nil, err
		}
	}
	return &DatabaseLeague{database}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClub(row scanner) (Club, error) {
	var club Club
	var owner string
	var role sql.NullString
	var createdAt int64
	if err := row.Scan(&club.Id, &club.Name, &owner, &club.Money, &role, &createdAt); err != nil {
		return Club{}, err
	}
	club.Owner = UserId(owner)
	club.RoleId = role.String
	club.CreatedAt = time.Unix(createdAt, 0).UTC()
	return club, nil
}

func scanMatch(row scanner) (ScheduledMatch, error) {
	var match ScheduledMatch
	var start, createdAt int64
	if err := row.Scan(&match.Id, &match.Home, &match.Away, &start, &match.ReminderSent, &createdAt); err != nil {
		return ScheduledMatch{}, err
	}
	match.Start = time.Unix(start, 0).UTC()
	match.CreatedAt = time.Unix(createdAt, 0).UTC()
	return match, nil
}

func (db *DatabaseLeague) queryMatches(ctx context.Context, query string, args ...any) ([]ScheduledMatch, error) {
	rows, err := db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []ScheduledMatch{}
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func (db *DatabaseLeague) queryClubs(ctx context.Context, query string, args ...any) ([]Club, error) {
	rows, err := db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clubs := []Club{}
	for rows.Next() {
		club, err := scanClub(rows)
		if err != nil {
			return nil, err
		}
		clubs = append(clubs, club)
	}
	return clubs, rows.Err()
}

// Fail with ErrNotFound when the statement touched no row
func expectRows(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting rows of %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// Clubs

func (db *DatabaseLeague) CreateClub(ctx context.Context, name string, owner UserId) (Club, error) {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := db.DB().ExecContext(ctx,
		"INSERT INTO clubs (name, owner_id, created_at) VALUES (?, ?, ?)",
		name, string(owner), now.Unix())
	if err != nil {
		if common.IsUniqueViolation(err) {
			return Club{}, fmt.Errorf("club %s: %w", name, ErrClubExists)
		}
		return Club{}, fmt.Errorf("inserting club %s: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Club{}, fmt.Errorf("reading id of club %s: %w", name, err)
	}
	log.Debug().Int64("club_id", id).Str("name", name).Msg("Club created")
	return Club{Id: ClubId(id), Name: name, Owner: owner, CreatedAt: now}, nil
}

func (db *DatabaseLeague) GetClub(ctx context.Context, id ClubId) (Club, error) {
	row := db.DB().QueryRowContext(ctx, "SELECT "+clubColumns+" FROM clubs WHERE id = ?", id)
	club, err := scanClub(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Club{}, fmt.Errorf("club %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Club{}, fmt.Errorf("reading club %d: %w", id, err)
	}
	return club, nil
}

func (db *DatabaseLeague) GetClubByName(ctx context.Context, name string) (Club, error) {
	row := db.DB().QueryRowContext(ctx, "SELECT "+clubColumns+" FROM clubs WHERE name = ?", name)
	club, err := scanClub(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Club{}, fmt.Errorf("club %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return Club{}, fmt.Errorf("reading club %s: %w", name, err)
	}
	return club, nil
}

// Every club owned by the user, by name
func (db *DatabaseLeague) ListClubsByOwner(ctx context.Context, owner UserId) ([]Club, error) {
	clubs, err := db.queryClubs(ctx, "SELECT "+clubColumns+" FROM clubs WHERE owner_id = ? ORDER BY name", string(owner))
	if err != nil {
		return nil, fmt.Errorf("listing clubs owned by %s: %w", owner, err)
	}
	return clubs, nil
}

func (db *DatabaseLeague) ListClubs(ctx context.Context) ([]Club, error) {
	clubs, err := db.queryClubs(ctx, "SELECT "+clubColumns+" FROM clubs ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing clubs: %w", err)
	}
	return clubs, nil
}

// Clubs with the most money first, at most limit of them
func (db *DatabaseLeague) RichestClubs(ctx context.Context, limit int) ([]Club, error) {
	clubs, err := db.queryClubs(ctx, "SELECT "+clubColumns+" FROM clubs ORDER BY money DESC, name LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing richest clubs: %w", err)
	}
	return clubs, nil
}

func (db *DatabaseLeague) SetClubMoney(ctx context.Context, id ClubId, money float64) error {
	res, err := db.DB().ExecContext(ctx, "UPDATE clubs SET money = ? WHERE id = ?", money, id)
	if err != nil {
		return fmt.Errorf("setting money of club %d: %w", id, err)
	}
	return expectRows(res, fmt.Sprintf("club %d", id))
}

// An empty role clears it, so notices go to the owner again
func (db *DatabaseLeague) SetClubRole(ctx context.Context, id ClubId, role string) error {
	value := sql.NullString{String: role, Valid: role != ""}
	res, err := db.DB().ExecContext(ctx, "UPDATE clubs SET role_id = ? WHERE id = ?", value, id)
	if err != nil {
		return fmt.Errorf("setting role of club %d: %w", id, err)
	}
	return expectRows(res, fmt.Sprintf("club %d", id))
}

// Delete the club with its matches and transfers. Its players become free agents
func (db *DatabaseLeague) DeleteClub(ctx context.Context, id ClubId) error {
	return db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, statement := range []string{
			"DELETE FROM matches WHERE home_club_id = ?1 OR away_club_id = ?1",
			"DELETE FROM transfers WHERE from_club_id = ?1 OR to_club_id = ?1",
			"UPDATE players SET club_id = NULL WHERE club_id = ?1",
		} {
			if _, err := tx.ExecContext(ctx, statement, id); err != nil {
				return fmt.Errorf("clearing data of club %d: %w", id, err)
			}
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM clubs WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting club %d: %w", id, err)
		}
		return expectRows(res, fmt.Sprintf("club %d", id))
	})
}

// Matches

func (db *DatabaseLeague) CreateMatch(ctx context.Context, home ClubId, away ClubId, start time.Time) (ScheduledMatch, error) {
	if home == away {
		return ScheduledMatch{}, ErrSameClub
	}
	now := time.Now().UTC().Truncate(time.Second)
	match := ScheduledMatch{Home: home, Away: away, Start: start.UTC().Truncate(time.Second), CreatedAt: now}

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, id := range []ClubId{home, away} {
			var exists bool
			if err := tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM clubs WHERE id = ?)", id).Scan(&exists); err != nil {
				return fmt.Errorf("checking club %d: %w", id, err)
			}
			if !exists {
				return fmt.Errorf("club %d: %w", id, ErrNotFound)
			}
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO matches (home_club_id, away_club_id, match_time, reminder_sent, created_at) VALUES (?, ?, ?, 0, ?)",
			home, away, match.Start.Unix(), now.Unix())
		if err != nil {
			return fmt.Errorf("inserting match: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading id of match: %w", err)
		}
		match.Id = MatchId(id)
		return nil
	})
	if err != nil {
		return ScheduledMatch{}, err
	}
	log.Debug().Int64("match_id", int64(match.Id)).Time("start", match.Start).Msg("Match created")
	return match, nil
}

func (db *DatabaseLeague) GetMatch(ctx context.Context, id MatchId) (ScheduledMatch, error) {
	row := db.DB().QueryRowContext(ctx, "SELECT "+matchColumns+" FROM matches WHERE id = ?", id)
	match, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ScheduledMatch{}, fmt.Errorf("match %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ScheduledMatch{}, fmt.Errorf("reading match %d: %w", id, err)
	}
	return match, nil
}

// Move the match to a new time. The reminder flag is cleared
// so that the new time gets its own reminder
func (db *DatabaseLeague) RescheduleMatch(ctx context.Context, id MatchId, start time.Time) (ScheduledMatch, error) {
	res, err := db.DB().ExecContext(ctx,
		"UPDATE matches SET match_time = ?, reminder_sent = 0 WHERE id = ?",
		start.UTC().Unix(), id)
	if err != nil {
		return ScheduledMatch{}, fmt.Errorf("rescheduling match %d: %w", id, err)
	}
	if err := expectRows(res, fmt.Sprintf("match %d", id)); err != nil {
		return ScheduledMatch{}, err
	}
	return db.GetMatch(ctx, id)
}

func (db *DatabaseLeague) CancelMatch(ctx context.Context, id MatchId) error {
	res, err := db.DB().ExecContext(ctx, "DELETE FROM matches WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("cancelling match %d: %w", id, err)
	}
	return expectRows(res, fmt.Sprintf("match %d", id))
}

// Matches starting in [from, until], soonest first
func (db *DatabaseLeague) UpcomingMatches(ctx context.Context, from time.Time, until time.Time) ([]ScheduledMatch, error) {
	matches, err := db.queryMatches(ctx,
		"SELECT "+matchColumns+" FROM matches WHERE match_time BETWEEN ? AND ? ORDER BY match_time, id",
		from.Unix(), until.Unix())
	if err != nil {
		return nil, fmt.Errorf("listing upcoming matches: %w", err)
	}
	return matches, nil
}

// Upcoming matches of one club starting at or after from, soonest first
func (db *DatabaseLeague) ClubMatches(ctx context.Context, club ClubId, from time.Time) ([]ScheduledMatch, error) {
	matches, err := db.queryMatches(ctx,
		"SELECT "+matchColumns+" FROM matches WHERE (home_club_id = ? OR away_club_id = ?) AND match_time >= ? ORDER BY match_time, id",
		club, club, from.Unix())
	if err != nil {
		return nil, fmt.Errorf("listing matches of club %d: %w", club, err)
	}
	return matches, nil
}

// Matches without a reminder starting in the closed interval [now, now+window]
func (db *DatabaseLeague) ListMatchesNeedingReminder(ctx context.Context, now time.Time, window time.Duration) ([]ScheduledMatch, error) {
	matches, err := db.queryMatches(ctx,
		"SELECT "+matchColumns+" FROM matches WHERE reminder_sent = 0 AND match_time BETWEEN ? AND ? ORDER BY match_time, id",
		now.Unix(), now.Add(window).Unix())
	if err != nil {
		return nil, fmt.Errorf("listing matches needing reminder: %w", err)
	}
	return matches, nil
}

// Set the reminder flag of the match only if it is not set yet.
// Exactly one caller gets MarkSent for a given match
func (db *DatabaseLeague) MarkReminderSent(ctx context.Context, id MatchId) (MarkResult, error) {
	res, err := db.DB().ExecContext(ctx, "UPDATE matches SET reminder_sent = 1 WHERE id = ? AND reminder_sent = 0", id)
	if err != nil {
		return 0, fmt.Errorf("marking reminder of match %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("marking reminder of match %d: %w", id, err)
	}
	if n == 1 {
		return MarkSent, nil
	}

	var exists bool
	if err := db.DB().QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM matches WHERE id = ?)", id).Scan(&exists); err != nil {
		return 0, fmt.Errorf("checking match %d: %w", id, err)
	}
	if exists {
		return MarkAlreadySet, nil
	}
	return MarkNotFound, nil
}

// Clear the reminder flag set by MarkReminderSent, for a claim whose
// reminder never left the bot
func (db *DatabaseLeague) ReleaseReminder(ctx context.Context, id MatchId) error {
	res, err := db.DB().ExecContext(ctx, "UPDATE matches SET reminder_sent = 0 WHERE id = ? AND reminder_sent = 1", id)
	if err != nil {
		return fmt.Errorf("releasing reminder of match %d: %w", id, err)
	}
	return expectRows(res, fmt.Sprintf("claimed match %d", id))
}

// Delete matches that started before the cutoff and were already reminded
func (db *DatabaseLeague) PurgePlayedMatches(ctx context.Context, before time.Time) (int64, error) {
	res, err := db.DB().ExecContext(ctx, "DELETE FROM matches WHERE reminder_sent = 1 AND match_time < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("purging played matches: %w", err)
	}
	return res.RowsAffected()
}

// Remove every club, player, transfer and match
func (db *DatabaseLeague) Reset(ctx context.Context) error {
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, statement := range []string{
			"DELETE FROM matches",
			"DELETE FROM transfers",
			"DELETE FROM players",
			"DELETE FROM clubs",
			"DELETE FROM sqlite_sequence WHERE name IN ('matches', 'transfers', 'players', 'clubs')",
		} {
			if _, err := tx.ExecContext(ctx, statement); err != nil {
				return fmt.Errorf("resetting league: %w", err)
			}
		}
		return nil
	})
	if err == nil {
		log.Info().Msg("League data reset")
	}
	return err
}
