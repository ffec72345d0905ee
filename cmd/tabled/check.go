package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cardclub/tabled/internal/billing"
	"github.com/cardclub/tabled/internal/clock"
	"github.com/cardclub/tabled/internal/config"
	"github.com/cardclub/tabled/internal/storage"
	"github.com/cardclub/tabled/internal/storage/sqlite"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	checkStart string
	checkStop  string
	checkRate  string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check billing and selection decisions interactively",
	Long:  `Check what tabled would charge for a session or decide for a player pick.`,
}

var checkFeeCmd = &cobra.Command{
	Use:   "fee",
	Short: "Compute the fee for a session",
	Example: `  tabled check fee --start "2025-03-01 19:30" --stop "2025-03-01 21:00" --rate 10
  tabled check fee --start "2025-03-01 19:30" --rate 12`,
	RunE: runCheckFee,
}

var checkPlayerCmd = &cobra.Command{
	Use:   "player PLAYER_ID",
	Short: "Show what selecting a player would do",
	Long:  `Show the decision a roster pick would produce for the player, without changing anything.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckPlayer,
}

func init() {
	checkFeeCmd.Flags().StringVar(&checkStart, "start", "", "Session start (YYYY-MM-DD HH:MM[:SS], required)")
	checkFeeCmd.Flags().StringVar(&checkStop, "stop", "", "Session stop; running until now when omitted")
	checkFeeCmd.Flags().StringVar(&checkRate, "rate", "", "Hourly rate in dollars (required)")
	_ = checkFeeCmd.MarkFlagRequired("start")
	_ = checkFeeCmd.MarkFlagRequired("rate")

	checkCmd.AddCommand(checkFeeCmd)
	checkCmd.AddCommand(checkPlayerCmd)
	rootCmd.AddCommand(checkCmd)
}

func runCheckFee(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	location, err := cfg.Club.Location()
	if err != nil {
		return err
	}

	start, err := clock.ParseClubTime(checkStart, location)
	if err != nil {
		return err
	}

	var stop *time.Time
	now := time.Now().In(location)
	if checkStop != "" {
		parsed, err := clock.ParseClubTime(checkStop, location)
		if err != nil {
			return err
		}
		stop = &parsed
	}

	rate, err := decimal.NewFromString(checkRate)
	if err != nil || rate.Sign() < 0 {
		return fmt.Errorf("invalid rate %q", checkRate)
	}

	seconds, fee := billing.Compute(start, stop, rate, now)

	green := color.New(color.FgGreen, color.Bold)
	fmt.Fprintf(os.Stdout, "Start:    %s\n", start.Format("2006-01-02 15:04:05"))
	if stop != nil {
		fmt.Fprintf(os.Stdout, "Stop:     %s\n", stop.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintf(os.Stdout, "Stop:     (running, computed at %s)\n", now.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(os.Stdout, "Duration: %s\n", billing.FormatDuration(seconds))
	_, _ = green.Fprintf(os.Stdout, "Fee:      %s\n", billing.FormatFee(fee))
	return nil
}

func runCheckPlayer(cmd *cobra.Command, args []string) error {
	playerID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid player id %q", args[0])
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	player, err := store.Players().Get(ctx, playerID)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Player:  %s (balance %s)\n", player.DisplayName(), billing.FormatFee(player.Balance))

	open, err := store.Sessions().FindOpen(ctx, playerID)
	switch {
	case err == nil:
		green := color.New(color.FgGreen, color.Bold)
		start := time.Unix(open.StartEpoch, 0)
		_, _ = green.Fprintf(os.Stdout, "Decision: RESUME session %d (running since %s)\n",
			open.ID, start.Format("2006-01-02 15:04"))
	case err == storage.ErrNotFound && player.Balance.Sign() >= 0:
		cyan := color.New(color.FgCyan, color.Bold)
		_, _ = cyan.Fprintln(os.Stdout, "Decision: START a new session")
	case err == storage.ErrNotFound:
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprintln(os.Stdout, "Decision: REQUEST PAYMENT before seating")
	default:
		return err
	}
	return nil
}
