package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/naheedroomy/valorantsl-new/internal/config"
	"github.com/naheedroomy/valorantsl-new/internal/constants"
	"github.com/naheedroomy/valorantsl-new/internal/logger"
	"github.com/naheedroomy/valorantsl-new/internal/riot"
	"github.com/naheedroomy/valorantsl-new/internal/storage"
	"github.com/naheedroomy/valorantsl-new/internal/updater"
)

var (
	runOnce   bool
	testPuuid string
	showInfo  bool

	rootCmd = &cobra.Command{
		Use:          "updater",
		Short:        "ValorantSL player updater service",
		Long:         "Periodically refreshes every tracked player's rank data from the Valorant API.",
		SilenceUsage: true,
		RunE:         run,
	}
)

func main() {
	rootCmd.Flags().BoolVar(&runOnce, "once", false, "run a single update cycle and exit")
	rootCmd.Flags().StringVar(&testPuuid, "test", "", "update a single player by puuid and exit")
	rootCmd.Flags().BoolVar(&showInfo, "info", false, "print service configuration and exit")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(logger.New())
	if err != nil {
		return err
	}
	log := logger.SetLevel(cfg.LogLevel)

	if showInfo {
		printInfo(cfg)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewClient(cfg, log)
	if err != nil {
		return fmt.Errorf("storage unavailable: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		if err := db.Disconnect(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("error closing database connection")
		}
	}()

	store := storage.NewPlayerStore(db, cfg, log)
	client := riot.NewClient(cfg, log)
	playerUpdater := updater.NewPlayerUpdater(client, store, cfg, log)

	switch {
	case testPuuid != "":
		log.Info().Str("puuid", testPuuid).Msg("testing single player update")
		if err := playerUpdater.UpdateSinglePlayer(ctx, testPuuid); err != nil {
			return fmt.Errorf("test update failed: %w", err)
		}
		log.Info().Msg("test update completed successfully")
		return nil

	case runOnce:
		log.Info().Msg("running single update cycle")
		stats := playerUpdater.UpdateAllPlayers(ctx)
		if stats.SuccessRate() == 0 {
			return errors.New("update cycle produced no successful updates")
		}
		return nil

	default:
		updater.NewScheduler(playerUpdater, cfg.UpdateInterval, log).Run(ctx)
		return nil
	}
}

func printInfo(cfg *config.Config) {
	fmt.Println("ValorantSL Player Updater Service")
	fmt.Printf("  Database:        %s\n", cfg.MongoDatabase)
	fmt.Printf("  Collection:      %s\n", cfg.MongoCollection)
	fmt.Printf("  API Base URL:    %s\n", cfg.RiotAPIBaseURL)
	fmt.Printf("  Region:          %s\n", cfg.RiotRegion)
	fmt.Printf("  Platform:        %s\n", cfg.RiotPlatform)
	fmt.Printf("  Update Interval: %s\n", cfg.UpdateInterval)
	fmt.Printf("  Request Delay:   %s\n", cfg.RequestDelay)
	fmt.Printf("  Max Retries:     %d\n", cfg.MaxRetries)
	fmt.Printf("  Log Level:       %s\n", cfg.LogLevel)
}
