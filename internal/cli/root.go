package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/robalobadob/numguess/internal/config"
	"github.com/robalobadob/numguess/internal/console"
	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/secret"
)

type playFlags struct {
	preset   string
	name     string
	min      int
	max      int
	attempts int
}

func NewRootCmd() *cobra.Command {
	var f playFlags
	cmd := &cobra.Command{
		Use:          "guess",
		Short:        "Guess the secret number in as few attempts as possible",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			p, err := resolvePreset(cmd, f, cfg.Preset)
			if err != nil {
				return err
			}

			lvl := cfg.LogLevel
			if lvl < zerolog.WarnLevel {
				lvl = zerolog.WarnLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(lvl).With().Timestamp().Logger()

			_, err = console.Run(console.Options{
				Preset: p,
				Name:   f.name,
				Source: secret.Crypto(),
				In:     cmd.InOrStdin(),
				Out:    cmd.OutOrStdout(),
				Logger: &logger,
			})
			return err
		},
	}

	cmd.Flags().StringVar(&f.preset, "preset", "", fmt.Sprintf("game preset (%v)", game.PresetNames()))
	cmd.Flags().StringVar(&f.name, "name", "", "player name (prompted when empty)")
	cmd.Flags().IntVar(&f.min, "min", 0, "override the lowest possible number")
	cmd.Flags().IntVar(&f.max, "max", 0, "override the highest possible number")
	cmd.Flags().IntVar(&f.attempts, "attempts", 0, "override the attempt budget")

	return cmd
}

// resolvePreset starts from --preset (or the configured default) and applies
// any explicit --min/--max/--attempts overrides.
func resolvePreset(cmd *cobra.Command, f playFlags, fallback string) (game.Preset, error) {
	name := f.preset
	if name == "" {
		name = fallback
	}
	p, err := game.PresetByName(name)
	if err != nil {
		return game.Preset{}, err
	}
	custom := false
	if cmd.Flags().Changed("min") {
		p.Range.Min, custom = f.min, true
	}
	if cmd.Flags().Changed("max") {
		p.Range.Max, custom = f.max, true
	}
	if cmd.Flags().Changed("attempts") {
		p.Budget, custom = f.attempts, true
	}
	if custom {
		p.Name = "custom"
	}
	return p, nil
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
