package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/harybot/breakroom/internal/config"
	"github.com/harybot/breakroom/internal/storage"
	"github.com/spf13/cobra"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the breakroom configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump the resolved configuration")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s Configuration validation failed: %v\n", color.RedString("✗"), err)
		return err
	}

	ok := color.GreenString("✓")
	fmt.Printf("%s Configuration is valid: %s\n", ok, configPath)

	if cfg.Telegram.Token == "" {
		fmt.Printf("%s telegram.token is empty (the server command will refuse to start)\n", color.YellowString("!"))
	}

	if validateDump {
		fmt.Println()
		fmt.Printf("telegram.mode:             %s\n", cfg.Telegram.Mode)
		if cfg.Telegram.Mode == "webhook" {
			fmt.Printf("telegram.webhook_url:      %s\n", cfg.Telegram.WebhookURL)
			fmt.Printf("telegram.webhook_port:     %d\n", cfg.Telegram.WebhookPort)
		}
		fmt.Printf("storage.type:              %s\n", cfg.Storage.Type)
		if cfg.Storage.Type == "redis" {
			fmt.Printf("storage.redis:             %s:%d\n", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port)
		} else {
			fmt.Printf("storage.path:              %s\n", cfg.Storage.Path)
		}
		fmt.Printf("storage.on_save_error:     %s\n", cfg.Storage.OnSaveError)
		fmt.Printf("tracking.timezone:         %s\n", cfg.Tracking.Timezone)
		fmt.Printf("tracking.double_departure: %s\n", cfg.Tracking.DoubleDeparture)

		limits, _ := cfg.Tracking.ActionLimits()
		for _, action := range storage.Actions {
			fmt.Printf("tracking.limits.%-14s %d minutes\n", string(action)+":", limits[action])
		}

		fmt.Printf("logging:                   %s/%s\n", cfg.Logging.Level, cfg.Logging.Format)
		fmt.Printf("metrics.enabled:           %v\n", cfg.Metrics.Enabled)
	}

	return nil
}
