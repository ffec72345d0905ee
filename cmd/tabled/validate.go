package main

import (
	"fmt"
	"os"

	"github.com/cardclub/tabled/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var validateDump bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the tabled configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump the effective configuration")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)

	if validateDump {
		bold := color.New(color.Bold)
		_, _ = bold.Fprintln(os.Stdout, "\nEffective configuration:")
		fmt.Fprintf(os.Stdout, "  web listener:       %s:%d\n", cfg.Server.BindAddress, cfg.Server.WebPort)
		fmt.Fprintf(os.Stdout, "  metrics listener:   %s:%d\n", cfg.Server.BindAddress, cfg.Server.MetricsPort)
		fmt.Fprintf(os.Stdout, "  club database:      %s\n", cfg.Storage.DatabasePath)
		fmt.Fprintf(os.Stdout, "  audit log:          %s\n", valueOrNone(cfg.Storage.AuditPath))
		fmt.Fprintf(os.Stdout, "  club name:          %s\n", cfg.Club.Name)
		fmt.Fprintf(os.Stdout, "  timezone:           %s\n", cfg.Club.Timezone)
		fmt.Fprintf(os.Stdout, "  clock resolution:   %s\n", cfg.Club.ClockResolution)
		fmt.Fprintf(os.Stdout, "  session start time: %s\n", cfg.Club.SessionStartTime)
		if cfg.Admin.PasswordHash == "" {
			yellow := color.New(color.FgYellow)
			_, _ = yellow.Fprintln(os.Stdout, "  operator login:     disabled (no password hash set)")
		} else {
			fmt.Fprintf(os.Stdout, "  operator login:     %s\n", cfg.Admin.Username)
		}
	}

	return nil
}

func valueOrNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
