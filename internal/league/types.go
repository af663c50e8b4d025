package league

import (
	"errors"
	"fmt"
	"time"
)

type ClubId int64
type MatchId int64
type PlayerId int64

// Discord snowflake of a user
type UserId string

var (
	ErrNotFound          = errors.New("not found")
	ErrClubExists        = errors.New("club already exists")
	ErrSameClub          = errors.New("a club cannot play against itself")
	ErrPlayerExists      = errors.New("player already exists")
	ErrAlreadyInClub     = errors.New("player already plays for the club")
	ErrInsufficientFunds = errors.New("club cannot afford the fee")
)

type Club struct {
	Id    ClubId  `json:"id"`
	Name  string  `json:"name"`
	Owner UserId  `json:"owner_id"`
	Money float64 `json:"money"`
	// Snowflake of the Discord role whose members get the notices
	// of the club. Empty means only the owner does
	RoleId    string    `json:"role_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Player struct {
	Id       PlayerId `json:"id"`
	Name     string   `json:"name"`
	Value    float64  `json:"value"`
	Position string   `json:"position,omitempty"`
	Age      int      `json:"age,omitempty"` // 0 if unknown
	// 0 for a free agent
	Club      ClubId    `json:"club_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (player *Player) FreeAgent() bool {
	return player.Club == 0
}

type Transfer struct {
	Id     int64     `json:"id"`
	Player PlayerId  `json:"player_id"`
	From   ClubId    `json:"from_club_id,omitempty"` // 0 when the player was a free agent
	To     ClubId    `json:"to_club_id"`
	Fee    float64   `json:"transfer_fee"`
	Date   time.Time `json:"transfer_date"`
}

// Counters and totals over the whole league
type Summary struct {
	Clubs           int     `json:"clubs"`
	Players         int     `json:"players"`
	FreeAgents      int     `json:"free_agents"`
	Transfers       int     `json:"transfers"`
	Matches         int     `json:"matches"`
	UpcomingMatches int     `json:"upcoming_matches"`
	TotalMoney      float64 `json:"total_money"`
	AverageMoney    float64 `json:"average_money"`
	TotalValue      float64 `json:"total_value"`
	AverageValue    float64 `json:"average_value"`
}

type ScheduledMatch struct {
	Id           MatchId   `json:"id"`
	Home         ClubId    `json:"home_club_id"`
	Away         ClubId    `json:"away_club_id"`
	Start        time.Time `json:"match_time"`
	ReminderSent bool      `json:"reminder_sent"`
	CreatedAt    time.Time `json:"created_at"`
}

// Outcome of trying to flip the reminder flag of a match
type MarkResult int

const (
	MarkSent       MarkResult = iota // The flag went from false to true with this call
	MarkAlreadySet                   // Somebody flipped it before
	MarkNotFound                     // The match does not exist (cancelled or reset)
)

func (result MarkResult) String() string {
	switch result {
	case MarkSent:
		return "sent"
	case MarkAlreadySet:
		return "already-set"
	case MarkNotFound:
		return "not-found"
	default:
		return fmt.Sprintf("MarkResult(%d)", int(result))
	}
}

type NoticeKind int

const (
	NoticeReminder  NoticeKind = iota // The match is about to start
	NoticeScheduled                   // An administrator just scheduled the match
)

// Content of a direct message about a match
type Notice struct {
	Kind  NoticeKind
	Match ScheduledMatch
	Home  Club
	Away  Club
	// Time left until the match at the moment the notice is built
	StartsIn time.Duration
}

// Concatenate the lists keeping only the first appearance of every user
func UniqueUsers(lists ...[]UserId) []UserId {
	seen := map[UserId]bool{}
	users := []UserId{}
	for _, list := range lists {
		for _, user := range list {
			if user == "" || seen[user] {
				continue
			}
			seen[user] = true
			users = append(users, user)
		}
	}
	return users
}

// Tell if the match starts in the closed interval [now, now+window]
func (match *ScheduledMatch) StartsWithin(now time.Time, window time.Duration) bool {
	return !match.Start.Before(now) && !match.Start.After(now.Add(window))
}
