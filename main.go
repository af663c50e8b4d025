package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leaguebot/internal/bot"
	"leaguebot/internal/common"
	"leaguebot/internal/config"
	"leaguebot/internal/league"
	"leaguebot/internal/reminder"
	"leaguebot/internal/web"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := run(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Football league bot stopped")
	}
}

func run(configPath string) error {

	// Configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(cfg.LogLevel())
	log.Info().
		Str("database", cfg.Database.Path).
		Dur("window", cfg.Window()).
		Dur("interval", cfg.Interval()).
		Str("timezone", cfg.Location().String()).
		Msg("Starting football league bot")

	clock := clockwork.NewRealClock()

	// Database
	database, err := league.CreateDatabaseLeague(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}
	defer database.Close()

	// Rate limiter shared by every direct message
	limiter := common.CreateRateLimiter(clock, []common.Restriction{
		{Requests: cfg.RateLimit.Requests, Duration: cfg.RatePeriod()},
	})

	// Bot
	discord, err := bot.CreateBot(cfg.Discord.Token, cfg.Discord.GuildId, database, cfg.Location(), clock)
	if err != nil {
		return err
	}
	notifier := bot.CreateDMNotifier(discord.Session(), limiter)
	discord.SetNotifier(notifier)
	// Clubs with a role notify its members instead of the owner
	recipients := bot.CreateRoleRecipients(discord.Session(), cfg.Discord.GuildId)
	discord.SetRecipients(recipients)

	// Reminder scheduler
	scheduler, err := reminder.CreateScheduler(reminder.Config{
		Window:      cfg.Window(),
		Interval:    cfg.Interval(),
		TickTimeout: cfg.TickTimeout(),
		Clock:       clock,
	}, database, notifier)
	if err != nil {
		return err
	}
	scheduler.SetRecipients(recipients)
	scheduler.SetHousekeeping(reminder.CreateHousekeeping(clock, cfg.HousekeepingInterval(), cfg.Retention(), database))
	discord.SetReminders(scheduler)

	if err := discord.Open(); err != nil {
		return err
	}
	defer func() {
		if err := discord.Close(); err != nil {
			log.Error().Err(err).Msg("Could not close discord session")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	// Status page
	var status *web.Server
	if cfg.Web.Enabled {
		status, err = web.CreateServer(fmt.Sprintf(":%d", cfg.Web.Port), "Football League Bot", scheduler, database, clock, cfg.Location())
		if err != nil {
			scheduler.Stop()
			return err
		}
		status.Start()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Let the tick in progress finish before anything it uses goes away
	if err := scheduler.Stop(); err != nil {
		log.Error().Err(err).Msg("Could not stop the reminder scheduler")
	}
	if status != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := status.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Status page shutdown failed")
		}
	}

	log.Info().Msg("Football league bot shutdown complete")
	return nil
}
