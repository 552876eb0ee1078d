package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/cinnamon-core/internal/experience"
	"github.com/nerrad567/cinnamon-core/internal/infrastructure/config"
	"github.com/nerrad567/cinnamon-core/internal/infrastructure/logging"
	"github.com/nerrad567/cinnamon-core/internal/motion"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <script>",
		Short: "Check an experience script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := experience.LoadScript(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d stages, %d cues, %d materials, %d scenes)\n",
				s.Name, len(s.Stages), len(s.Cues), len(s.Materials), len(s.Scenes))
			return nil
		},
	}
}

func replayCmd() *cobra.Command {
	var (
		scriptPath string
		duration   time.Duration
		threshold  float64
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "replay <log>",
		Short: "Run a recorded sensor log through a motion window",
		Long: "Each line of the log is one raw sensor message, optionally prefixed\n" +
			"with its offset from the window start, e.g. \"2.5s roll = 3, pitch = 1\".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if scriptPath != "" {
				s, err := experience.LoadScript(scriptPath)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("duration") {
					duration = s.Motion.Duration
				}
				if !cmd.Flags().Changed("threshold") {
					threshold = s.Motion.Threshold
				}
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening log: %w", err)
			}
			defer f.Close()

			log := logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, version, cmd.ErrOrStderr())
			if verbose {
				log.SetLevel(slog.LevelDebug)
			}

			res, err := motion.Replay(f, duration, threshold, log)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&scriptPath, "script", "", "Take window duration and threshold from this script")
	cmd.Flags().DurationVar(&duration, "duration", motion.DefaultDuration, "Window duration")
	cmd.Flags().Float64Var(&threshold, "threshold", motion.DefaultThreshold, "Decision threshold")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log rejected lines to stderr")
	return cmd
}
