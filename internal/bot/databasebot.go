package bot

import (
	"context"
	"time"

	"leaguebot/internal/league"
)

// Everything the commands read from and write to the league database
type DatabaseBot interface {
	CreateClub(ctx context.Context, name string, owner league.UserId) (league.Club, error)
	GetClub(ctx context.Context, id league.ClubId) (league.Club, error)
	GetClubByName(ctx context.Context, name string) (league.Club, error)
	ListClubsByOwner(ctx context.Context, owner league.UserId) ([]league.Club, error)
	ListClubs(ctx context.Context) ([]league.Club, error)
	RichestClubs(ctx context.Context, limit int) ([]league.Club, error)
	SetClubMoney(ctx context.Context, id league.ClubId, money float64) error
	SetClubRole(ctx context.Context, id league.ClubId, role string) error
	DeleteClub(ctx context.Context, id league.ClubId) error

	CreatePlayer(ctx context.Context, player league.Player) (league.Player, error)
	GetPlayer(ctx context.Context, id league.PlayerId) (league.Player, error)
	GetPlayerByName(ctx context.Context, name string) (league.Player, error)
	ClubPlayers(ctx context.Context, club league.ClubId) ([]league.Player, error)
	FreeAgents(ctx context.Context) ([]league.Player, error)
	TopPlayers(ctx context.Context, limit int) ([]league.Player, error)
	TransferPlayer(ctx context.Context, id league.PlayerId, to league.ClubId, fee float64) (league.Transfer, error)
	RecentTransfers(ctx context.Context, limit int) ([]league.Transfer, error)
	PlayerTransferCount(ctx context.Context, id league.PlayerId) (int, error)

	CreateMatch(ctx context.Context, home league.ClubId, away league.ClubId, start time.Time) (league.ScheduledMatch, error)
	GetMatch(ctx context.Context, id league.MatchId) (league.ScheduledMatch, error)
	RescheduleMatch(ctx context.Context, id league.MatchId, start time.Time) (league.ScheduledMatch, error)
	CancelMatch(ctx context.Context, id league.MatchId) error
	UpcomingMatches(ctx context.Context, from time.Time, until time.Time) ([]league.ScheduledMatch, error)
	ClubMatches(ctx context.Context, club league.ClubId, from time.Time) ([]league.ScheduledMatch, error)

	Summary(ctx context.Context, now time.Time) (league.Summary, error)
	Reset(ctx context.Context) error
}

var _ DatabaseBot = (*league.DatabaseLeague)(nil)
