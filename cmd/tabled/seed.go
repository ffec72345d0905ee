package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cardclub/tabled/internal/config"
	"github.com/cardclub/tabled/internal/storage"
	"github.com/cardclub/tabled/internal/storage/sqlite"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var seedCmd = &cobra.Command{
	Use:   "seed SEED_FILE",
	Short: "Load categories and players into the club database",
	Long: `Load player categories and the player roster from a YAML file into
the club database. Existing rows matched by id are updated.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

type seedCategory struct {
	ID         int64  `mapstructure:"id"`
	Name       string `mapstructure:"name"`
	HourlyRate string `mapstructure:"hourly_rate"`
}

type seedPlayer struct {
	ID       int64  `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	Nickname string `mapstructure:"nickname"`
	Category string `mapstructure:"category"`
	Balance  string `mapstructure:"balance"`
	Email    string `mapstructure:"email"`
	Phone    string `mapstructure:"phone"`
	Inactive bool   `mapstructure:"inactive"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(args[0])
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var categories []seedCategory
	if err := v.UnmarshalKey("categories", &categories); err != nil {
		return fmt.Errorf("parse categories: %w", err)
	}
	var players []seedPlayer
	if err := v.UnmarshalKey("players", &players); err != nil {
		return fmt.Errorf("parse players: %w", err)
	}

	store, err := sqlite.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	categoryIDs := make(map[string]int64)

	for _, c := range categories {
		rate, err := decimal.NewFromString(c.HourlyRate)
		if err != nil || rate.Sign() < 0 {
			return fmt.Errorf("category %q: invalid hourly rate %q", c.Name, c.HourlyRate)
		}
		id, err := store.Categories().Upsert(ctx, storage.PlayerCategory{
			ID:         c.ID,
			Name:       c.Name,
			HourlyRate: rate,
		})
		if err != nil {
			return fmt.Errorf("seed category %q: %w", c.Name, err)
		}
		categoryIDs[c.Name] = id
	}

	for _, p := range players {
		categoryID, ok := categoryIDs[p.Category]
		if !ok {
			return fmt.Errorf("player %q: unknown category %q", p.Name, p.Category)
		}
		balance := decimal.Zero
		if p.Balance != "" {
			if balance, err = decimal.NewFromString(p.Balance); err != nil {
				return fmt.Errorf("player %q: invalid balance %q", p.Name, p.Balance)
			}
		}
		if _, err := store.Players().Upsert(ctx, storage.Player{
			ID:         p.ID,
			Name:       p.Name,
			Nickname:   p.Nickname,
			CategoryID: categoryID,
			Balance:    balance,
			Email:      p.Email,
			Phone:      p.Phone,
			Inactive:   p.Inactive,
		}); err != nil {
			return fmt.Errorf("seed player %q: %w", p.Name, err)
		}
	}

	fmt.Fprintf(os.Stdout, "Seeded %d categories and %d players into %s\n",
		len(categories), len(players), cfg.Storage.DatabasePath)
	return nil
}
