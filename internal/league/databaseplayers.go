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

const playerColumns = "id, name, value, position, age, club_id, created_at"
const transferColumns = "id, player_id, from_club_id, to_club_id, transfer_fee, transfer_date"

func scanPlayer(row scanner) (Player, error) {
	var player Player
	var position sql.NullString
	var age, club sql.NullInt64
	var createdAt int64
	if err := row.Scan(&player.Id, &player.Name, &player.Value, &position, &age, &club, &createdAt); err != nil {
		return Player{}, err
	}
	player.Position = position.String
	player.Age = int(age.Int64)
	player.Club = ClubId(club.Int64)
	player.CreatedAt = time.Unix(createdAt, 0).UTC()
	return player, nil
}

func scanTransfer(row scanner) (Transfer, error) {
	var transfer Transfer
	var from sql.NullInt64
	var date int64
	if err := row.Scan(&transfer.Id, &transfer.Player, &from, &transfer.To, &transfer.Fee, &date); err != nil {
		return Transfer{}, err
	}
	transfer.From = ClubId(from.Int64)
	transfer.Date = time.Unix(date, 0).UTC()
	return transfer, nil
}

func (db *DatabaseLeague) queryPlayers(ctx context.Context, query string, args ...any) ([]Player, error) {
	rows, err := db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []Player{}
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

func nullClub(id ClubId) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id != 0}
}

// Players

// Store a new player. The Id and CreatedAt of the argument are ignored,
// a zero Club makes the player a free agent
func (db *DatabaseLeague) CreatePlayer(ctx context.Context, player Player) (Player, error) {
	player.CreatedAt = time.Now().UTC().Truncate(time.Second)

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if player.Club != 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM clubs WHERE id = ?)", player.Club).Scan(&exists); err != nil {
				return fmt.Errorf("checking club %d: %w", player.Club, err)
			}
			if !exists {
				return fmt.Errorf("club %d: %w", player.Club, ErrNotFound)
			}
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO players (name, value, position, age, club_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			player.Name, player.Value,
			sql.NullString{String: player.Position, Valid: player.Position != ""},
			sql.NullInt64{Int64: int64(player.Age), Valid: player.Age != 0},
			nullClub(player.Club), player.CreatedAt.Unix())
		if err != nil {
			if common.IsUniqueViolation(err) {
				return fmt.Errorf("player %s: %w", player.Name, ErrPlayerExists)
			}
			return fmt.Errorf("inserting player %s: %w", player.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading id of player %s: %w", player.Name, err)
		}
		player.Id = PlayerId(id)
		return nil
	})
	if err != nil {
		return Player{}, err
	}
	log.Debug().Int64("player_id", int64(player.Id)).Str("name", player.Name).Msg("Player created")
	return player, nil
}

func (db *DatabaseLeague) GetPlayer(ctx context.Context, id PlayerId) (Player, error) {
	row := db.DB().QueryRowContext(ctx, "SELECT "+playerColumns+" FROM players WHERE id = ?", id)
	player, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, fmt.Errorf("player %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Player{}, fmt.Errorf("reading player %d: %w", id, err)
	}
	return player, nil
}

func (db *DatabaseLeague) GetPlayerByName(ctx context.Context, name string) (Player, error) {
	row := db.DB().QueryRowContext(ctx, "SELECT "+playerColumns+" FROM players WHERE name = ?", name)
	player, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, fmt.Errorf("player %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return Player{}, fmt.Errorf("reading player %s: %w", name, err)
	}
	return player, nil
}

// Squad of the club, most valuable first
func (db *DatabaseLeague) ClubPlayers(ctx context.Context, club ClubId) ([]Player, error) {
	players, err := db.queryPlayers(ctx, "SELECT "+playerColumns+" FROM players WHERE club_id = ? ORDER BY value DESC, name", club)
	if err != nil {
		return nil, fmt.Errorf("listing players of club %d: %w", club, err)
	}
	return players, nil
}

func (db *DatabaseLeague) FreeAgents(ctx context.Context) ([]Player, error) {
	players, err := db.queryPlayers(ctx, "SELECT "+playerColumns+" FROM players WHERE club_id IS NULL ORDER BY value DESC, name")
	if err != nil {
		return nil, fmt.Errorf("listing free agents: %w", err)
	}
	return players, nil
}

func (db *DatabaseLeague) TopPlayers(ctx context.Context, limit int) ([]Player, error) {
	players, err := db.queryPlayers(ctx, "SELECT "+playerColumns+" FROM players ORDER BY value DESC, name LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing top players: %w", err)
	}
	return players, nil
}

// Transfers

// Move the player to the club, paying the fee from the buying club
// to the selling one. Free agents cost the buyer the fee and nobody
// receives it. Everything happens in one transaction
func (db *DatabaseLeague) TransferPlayer(ctx context.Context, id PlayerId, to ClubId, fee float64) (Transfer, error) {
	transfer := Transfer{Player: id, To: to, Fee: fee, Date: time.Now().UTC().Truncate(time.Second)}

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		var from sql.NullInt64
		err := tx.QueryRowContext(ctx, "SELECT club_id FROM players WHERE id = ?", id).Scan(&from)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("player %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("reading club of player %d: %w", id, err)
		}
		transfer.From = ClubId(from.Int64)
		if transfer.From == to {
			return fmt.Errorf("player %d to club %d: %w", id, to, ErrAlreadyInClub)
		}

		var money float64
		err = tx.QueryRowContext(ctx, "SELECT money FROM clubs WHERE id = ?", to).Scan(&money)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("club %d: %w", to, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("reading money of club %d: %w", to, err)
		}
		if money < fee {
			return fmt.Errorf("club %d has %.2f for a fee of %.2f: %w", to, money, fee, ErrInsufficientFunds)
		}

		if _, err := tx.ExecContext(ctx, "UPDATE players SET club_id = ? WHERE id = ?", to, id); err != nil {
			return fmt.Errorf("moving player %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO transfers (player_id, from_club_id, to_club_id, transfer_fee, transfer_date) VALUES (?, ?, ?, ?, ?)",
			id, from, to, fee, transfer.Date.Unix())
		if err != nil {
			return fmt.Errorf("recording transfer of player %d: %w", id, err)
		}
		if transfer.Id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading id of transfer: %w", err)
		}
		if from.Valid {
			if _, err := tx.ExecContext(ctx, "UPDATE clubs SET money = money + ? WHERE id = ?", fee, from.Int64); err != nil {
				return fmt.Errorf("paying club %d: %w", from.Int64, err)
			}
		}
		if _, err := tx.ExecContext(ctx, "UPDATE clubs SET money = money - ? WHERE id = ?", fee, to); err != nil {
			return fmt.Errorf("charging club %d: %w", to, err)
		}
		return nil
	})
	if err != nil {
		return Transfer{}, err
	}
	log.Debug().Int64("player_id", int64(id)).Int64("from", int64(transfer.From)).Int64("to", int64(to)).Float64("fee", fee).Msg("Player transferred")
	return transfer, nil
}

// Latest transfers first
func (db *DatabaseLeague) RecentTransfers(ctx context.Context, limit int) ([]Transfer, error) {
	rows, err := db.DB().QueryContext(ctx, "SELECT "+transferColumns+" FROM transfers ORDER BY transfer_date DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	transfers := []Transfer{}
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("listing transfers: %w", err)
		}
		transfers = append(transfers, transfer)
	}
	return transfers, rows.Err()
}

func (db *DatabaseLeague) PlayerTransferCount(ctx context.Context, id PlayerId) (int, error) {
	var count int
	if err := db.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM transfers WHERE player_id = ?", id).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting transfers of player %d: %w", id, err)
	}
	return count, nil
}

// Statistics

// Counters of the whole league. Matches starting at or after now are upcoming
func (db *DatabaseLeague) Summary(ctx context.Context, now time.Time) (Summary, error) {
	var summary Summary
	queries := []struct {
		query string
		dest  []any
		args  []any
	}{
		{"SELECT COUNT(*), COALESCE(SUM(money), 0), COALESCE(AVG(money), 0) FROM clubs", []any{&summary.Clubs, &summary.TotalMoney, &summary.AverageMoney}, nil},
		{"SELECT COUNT(*), COALESCE(SUM(value), 0), COALESCE(AVG(value), 0) FROM players", []any{&summary.Players, &summary.TotalValue, &summary.AverageValue}, nil},
		{"SELECT COUNT(*) FROM players WHERE club_id IS NULL", []any{&summary.FreeAgents}, nil},
		{"SELECT COUNT(*) FROM transfers", []any{&summary.Transfers}, nil},
		{"SELECT COUNT(*), COUNT(CASE WHEN match_time >= ? THEN 1 END) FROM matches", []any{&summary.Matches, &summary.UpcomingMatches}, []any{now.Unix()}},
	}
	for _, q := range queries {
		if err := db.DB().QueryRowContext(ctx, q.query, q.args...).Scan(q.dest...); err != nil {
			return Summary{}, fmt.Errorf("computing league summary: %w", err)
		}
	}
	return summary, nil
}
