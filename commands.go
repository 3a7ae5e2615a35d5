package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/beka-birhanu/vinom-arena/config"
	"github.com/beka-birhanu/vinom-arena/game"
	"github.com/beka-birhanu/vinom-arena/game/episode"
	"github.com/beka-birhanu/vinom-arena/game/mazeconfig"
	"github.com/beka-birhanu/vinom-arena/game/sandbox"
	"github.com/beka-birhanu/vinom-arena/identity"
	"github.com/beka-birhanu/vinom-arena/infrastruture/logger"
	"github.com/beka-birhanu/vinom-arena/infrastruture/token"
	"github.com/beka-birhanu/vinom-arena/service"
	"github.com/spf13/cobra"
)

var errNoStepBudget = errors.New("run needs a positive --max-steps")

// newRunCmd plays episodes of a config file in a sandbox scene.
func newRunCmd() *cobra.Command {
	var (
		configPath string
		episodes   int
		maxSteps   int
		seed       int64
		grid       bool
		savePath   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play episodes headless with a random policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxSteps <= 0 {
				return errNoStepBudget
			}
			settings := config.Envs.ArenaSettings()
			settings.MaxEnvironmentSteps = maxSteps
			settings.UseGridMovement = settings.UseGridMovement || grid
			if cmd.Flags().Changed("seed") {
				settings.Seed = seed
			}

			arenaLogger, err := logger.New("ARENA", config.ColorCyan, os.Stdout)
			if err != nil {
				return err
			}

			var results []episode.Result
			scene := sandbox.New()
			ctrl, err := episode.New(episode.Options{
				Settings:     settings,
				Scene:        scene,
				Logger:       arenaLogger,
				OnEpisodeEnd: func(r episode.Result) { results = append(results, r) },
			})
			if err != nil {
				return err
			}
			if err := ctrl.Construct(episode.FromConfig(configPath)); err != nil {
				return err
			}
			if err := ctrl.Reset(); err != nil {
				return err
			}

			policySeed := settings.Seed
			if policySeed == game.NoSeed {
				policySeed = time.Now().UnixNano()
			}
			driver, err := service.NewDriver(ctrl, scene, rand.New(rand.NewSource(policySeed)))
			if err != nil {
				return err
			}
			if _, err := driver.Run(episodes); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-8s %-12s %6s %6s %12s\n", "EPISODE", "OUTCOME", "STEPS", "GOALS", "GROUP")
			for _, r := range results {
				fmt.Fprintf(out, "%-8d %-12s %6d %6d %12.3f\n", r.Episode, r.Outcome, r.Steps, r.GoalsCompleted, r.GroupReward)
			}

			if savePath != "" {
				cfg, err := ctrl.Dump()
				if err != nil {
					return err
				}
				if err := mazeconfig.SaveFile(savePath, cfg); err != nil {
					return err
				}
				appLogger.Info(fmt.Sprintf("Arena layout written to %s", savePath))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "maze config file (.json, .yaml or .yml)")
	cmd.Flags().IntVarP(&episodes, "episodes", "n", 5, "number of episodes to play")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 500, "step budget per episode")
	cmd.Flags().Int64Var(&seed, "seed", game.NoSeed, "seed for spawning and the policy, -1 for none")
	cmd.Flags().BoolVar(&grid, "grid", false, "move agents cell by cell")
	cmd.Flags().StringVar(&savePath, "save", "", "write the arena layout to this file after the run")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// newHashSecretCmd prints the bcrypt hash of a strong operator secret.
func newHashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret <secret>",
		Short: "Check the strength of an operator secret and print its hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := identity.ValidateSecret(args[0]); err != nil {
				return err
			}
			hash, err := identity.HashSecret(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// newTokenCmd mints an operator token with the configured JWT secret.
func newTokenCmd() *cobra.Command {
	var (
		operator string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an operator",
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.Envs.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			if err := identity.ValidateName(operator); err != nil {
				return err
			}
			tokenizer := token.NewJwtService(config.Envs.JWTSecret, config.Envs.JWTIssuer)
			tok, err := tokenizer.Generate(map[string]interface{}{"operator": operator}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&operator, "operator", "", "operator name carried by the token")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}
