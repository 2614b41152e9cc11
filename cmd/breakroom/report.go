package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harybot/breakroom/internal/config"
	"github.com/harybot/breakroom/internal/storage"
	"github.com/harybot/breakroom/internal/tracking"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render today's reports from the stored snapshot",
	Long:  `Render the daily or overtime report offline, without talking to Telegram.`,
}

var reportDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Print today's break statistics",
	RunE:  runReportDaily,
}

var reportOvertimeCmd = &cobra.Command{
	Use:   "overtime",
	Short: "Print today's overtime alerts",
	RunE:  runReportOvertime,
}

func init() {
	reportCmd.AddCommand(reportDailyCmd)
	reportCmd.AddCommand(reportOvertimeCmd)
	rootCmd.AddCommand(reportCmd)
}

// loadEngine opens the configured store and builds an engine over the
// stored snapshot for offline report rendering.
func loadEngine() (*tracking.Engine, storage.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := store.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrCorruptSnapshot) {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		fmt.Printf("%s snapshot unreadable, reporting on empty state\n", color.YellowString("!"))
		snap = storage.NewSnapshot()
	}

	loc, err := cfg.Tracking.Location()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	limits, err := cfg.Tracking.ActionLimits()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	engine := tracking.NewEngine(store, snap, tracking.Config{
		Limits:   limits,
		Location: loc,
	}, zerolog.Nop())
	return engine, store, nil
}

func runReportDaily(cmd *cobra.Command, args []string) error {
	engine, store, err := loadEngine()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	report := engine.DailyReport()
	bold := color.New(color.Bold)

	if len(report.Users) == 0 {
		fmt.Printf("No completed breaks on %s\n", report.Day)
		return nil
	}

	_, _ = bold.Printf("Break statistics for %s\n\n", report.Day)
	for _, user := range report.Users {
		fmt.Printf("%-24s today %2d  total %3d\n", user.DisplayName, user.Today, user.Total)
		for _, ac := range user.Actions {
			fmt.Printf("    %-16s %2d / %d\n", string(ac.Action), ac.Today, ac.Total)
		}
	}
	fmt.Println()
	_, _ = bold.Printf("Grand total today: %d (all time: %d)\n", report.GrandToday, report.GrandTotal)
	return nil
}

func runReportOvertime(cmd *cobra.Command, args []string) error {
	engine, store, err := loadEngine()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	report := engine.OvertimeReport()
	if len(report.Users) == 0 {
		fmt.Printf("%s everyone on time on %s\n", color.GreenString("✓"), report.Day)
		return nil
	}

	_, _ = color.New(color.Bold).Printf("Overtime for %s\n\n", report.Day)
	for _, user := range report.Users {
		for _, item := range user.Items {
			marker := ""
			if item.Live {
				marker = color.YellowString(" (still out)")
			}
			fmt.Printf("%-24s %-16s +%d min%s\n", user.DisplayName, string(item.Action), item.Minutes, marker)
		}
	}
	return nil
}
