package bot

import (
	"context"
	"errors"
	"fmt"

	"leaguebot/internal/league"

	"github.com/rs/zerolog/log"
)

// Commands about the squads, money and transfers of the clubs

// How many players of a squad club_info shows
const squadPreview = 5

func (bot *Bot) listClubs(ctx context.Context) []Response {

	clubs, err := bot.database.ListClubs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Could not read clubs")
		return InternalError()
	}
	return ClubList(clubs)
}

func (bot *Bot) clubInfo(ctx context.Context, name string) []Response {

	club, err := bot.database.GetClubByName(ctx, name)
	if errors.Is(err, league.ErrNotFound) {
		return ClubNotFound(name)
	}
	if err != nil {
		log.Error().Err(err).Str("club", name).Msg("Could not read club")
		return InternalError()
	}
	players, err := bot.database.ClubPlayers(ctx, club.Id)
	if err != nil {
		log.Error().Err(err).Int64("club_id", int64(club.Id)).Msg("Could not read players of club")
		return InternalError()
	}
	return ClubInfo(club, players, squadPreview)
}

func (bot *Bot) setClubMoney(ctx context.Context, args MoneyArguments) []Response {

	club, err := bot.database.GetClubByName(ctx, args.Club)
	if errors.Is(err, league.ErrNotFound) {
		return ClubNotFound(args.Club)
	}
	if err != nil {
		log.Error().Err(err).Str("club", args.Club).Msg("Could not read club")
		return InternalError()
	}
	err = bot.database.SetClubMoney(ctx, club.Id, args.Amount)
	if errors.Is(err, league.ErrNotFound) {
		return ClubNotFound(args.Club)
	}
	if err != nil {
		log.Error().Err(err).Int64("club_id", int64(club.Id)).Msg("Could not set money of club")
		return InternalError()
	}
	log.Info().Int64("club_id", int64(club.Id)).Float64("money", args.Amount).Msg("Club money set")
	return ClubMoneySet(club.Name, args.Amount)
}

func (bot *Bot) setClubRole(ctx context.Context, args RoleArguments) []Response {

	club, err := bot.database.GetClubByName(ctx, args.Club)
	if errors.Is(err, league.ErrNotFound) {
		return ClubNotFound(args.Club)
	}
	if err != nil {
		log.Error().Err(err).Str("club", args.Club).Msg("Could not read club")
		return InternalError()
	}
	err = bot.database.SetClubRole(ctx, club.Id, args.Role)
	if errors.Is(err, league.ErrNotFound) {
		return ClubNotFound(args.Club)
	}
	if err != nil {
		log.Error().Err(err).Int64("club_id", int64(club.Id)).Msg("Could not set role of club")
		return InternalError()
	}
	log.Info().Int64("club_id", int64(club.Id)).Str("role_id", args.Role).Msg("Club role set")
	return ClubRoleSet(club.Name, args.Role)
}

func (bot *Bot) richestClubs(ctx context.Context, limit int) []Response {

	clubs, err := bot.database.RichestClubs(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("Could not read richest clubs")
		return InternalError()
	}
	return RichestClubs(clubs)
}

func (bot *Bot) createPlayer(ctx context.Context, args PlayerArguments) []Response {

	player := league.Player{Name: args.Name, Value: args.Value, Position: args.Position, Age: args.Age}
	team := ""
	if args.Club != "" {
		club, err := bot.database.GetClubByName(ctx, args.Club)
		if errors.Is(err, league.ErrNotFound) {
			return ClubNotFound(args.Club)
		}
		if err != nil {
			log.Error().Err(err).Str("club", args.Club).Msg("Could not read club")
			return InternalError()
		}
		player.Club = club.Id
		team = club.Name
	}

	player, err := bot.database.CreatePlayer(ctx, player)
	if errors.Is(err, league.ErrPlayerExists) {
		return PlayerExists(args.Name)
	}
	// The club was deleted in between
	if errors.Is(err, league.ErrNotFound) {
		return ClubNotFound(args.Club)
	}
	if err != nil {
		log.Error().Err(err).Str("player", args.Name).Msg("Could not create player")
		return InternalError()
	}
	log.Info().Int64("player_id", int64(player.Id)).Str("player", player.Name).Str("club", team).Msg("Player created")
	return PlayerCreated(player, team)
}

func (bot *Bot) playerInfo(ctx context.Context, name string) []Response {

	player, err := bot.database.GetPlayerByName(ctx, name)
	if errors.Is(err, league.ErrNotFound) {
		return PlayerNotFound(name)
	}
	if err != nil {
		log.Error().Err(err).Str("player", name).Msg("Could not read player")
		return InternalError()
	}
	team := ""
	if !player.FreeAgent() {
		club, err := bot.database.GetClub(ctx, player.Club)
		if err != nil {
			log.Error().Err(err).Int64("club_id", int64(player.Club)).Msg("Could not read club")
			return InternalError()
		}
		team = club.Name
	}
	transfers, err := bot.database.PlayerTransferCount(ctx, player.Id)
	if err != nil {
		log.Error().Err(err).Int64("player_id", int64(player.Id)).Msg("Could not count transfers of player")
		return InternalError()
	}
	return PlayerInfo(player, team, transfers)
}

func (bot *Bot) transferPlayer(ctx context.Context, args TransferArguments) []Response {

	player, err := bot.database.GetPlayerByName(ctx, args.Player)
	if errors.Is(err, league.ErrNotFound) {
		return PlayerNotFound(args.Player)
	}
	if err != nil {
		log.Error().Err(err).Str("player", args.Player).Msg("Could not read player")
		return InternalError()
	}
	club, err := bot.database.GetClubByName(ctx, args.Club)
	if errors.Is(err, league.ErrNotFound) {
		return ClubNotFound(args.Club)
	}
	if err != nil {
		log.Error().Err(err).Str("club", args.Club).Msg("Could not read club")
		return InternalError()
	}

	transfer, err := bot.database.TransferPlayer(ctx, player.Id, club.Id, args.Fee)
	switch {
	case errors.Is(err, league.ErrAlreadyInClub):
		return AlreadyInClub(player.Name, club.Name)
	case errors.Is(err, league.ErrInsufficientFunds):
		return InsufficientFunds(club.Name, args.Fee)
	case errors.Is(err, league.ErrNotFound):
		return PlayerNotFound(args.Player)
	case err != nil:
		log.Error().Err(err).Int64("player_id", int64(player.Id)).Int64("club_id", int64(club.Id)).Msg("Could not transfer player")
		return InternalError()
	}

	from := ""
	if transfer.From != 0 {
		seller, err := bot.database.GetClub(ctx, transfer.From)
		if err != nil {
			// The transfer is done, only the name of the seller is missing
			log.Warn().Err(err).Int64("club_id", int64(transfer.From)).Msg("Could not read selling club")
			from = fmt.Sprintf("club #%d", transfer.From)
		} else {
			from = seller.Name
		}
	}
	log.Info().Int64("transfer_id", transfer.Id).Str("player", player.Name).Str("from", from).Str("to", club.Name).Float64("fee", transfer.Fee).Msg("Player transferred")
	return PlayerTransferred(player.Name, from, club.Name, transfer.Fee)
}

func (bot *Bot) freeAgents(ctx context.Context) []Response {

	players, err := bot.database.FreeAgents(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Could not read free agents")
		return InternalError()
	}
	return FreeAgents(players)
}

func (bot *Bot) topPlayers(ctx context.Context, limit int) []Response {

	players, err := bot.database.TopPlayers(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("Could not read top players")
		return InternalError()
	}
	clubs, err := bot.clubsById(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Could not read clubs")
		return InternalError()
	}
	return TopPlayers(players, clubs)
}

func (bot *Bot) recentTransfers(ctx context.Context, limit int) []Response {

	transfers, err := bot.database.RecentTransfers(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("Could not read recent transfers")
		return InternalError()
	}
	clubs, err := bot.clubsById(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Could not read clubs")
		return InternalError()
	}
	players := map[league.PlayerId]string{}
	for _, transfer := range transfers {
		if _, ok := players[transfer.Player]; ok {
			continue
		}
		player, err := bot.database.GetPlayer(ctx, transfer.Player)
		if err != nil {
			log.Error().Err(err).Int64("player_id", int64(transfer.Player)).Msg("Could not read player")
			return InternalError()
		}
		players[player.Id] = player.Name
	}
	return RecentTransfers(transfers, players, clubs)
}

func (bot *Bot) leagueStats(ctx context.Context) []Response {

	summary, err := bot.database.Summary(ctx, bot.clock.Now())
	if err != nil {
		log.Error().Err(err).Msg("Could not compute league statistics")
		return InternalError()
	}
	return LeagueStats(summary)
}

func (bot *Bot) infoBot(ctx context.Context) []Response {

	now := bot.clock.Now()
	summary, err := bot.database.Summary(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Could not compute league statistics")
		return InternalError()
	}
	return BotInfo(summary, now.Sub(bot.started))
}
