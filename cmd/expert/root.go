package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manthysbr/aiexpert/internal/config"
)

// globals shared by every subcommand, filled in PersistentPreRunE.
type globals struct {
	logLevel string
	envFiles []string

	env    *config.Environment
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "expert",
		Short: "AI image and chat assistant backed by a cloud model or your own model server",
		Long: `expert talks to a hosted Gemini/Imagen model or to a private model server
reached through a relay.

Examples:
  expert relay                              # run the relay next to your model server
  expert serve                              # browser API on :8080
  expert local set --server http://127.0.0.1:11434 --model llama3 --relay https://my-tunnel.example
  expert provider set local
  expert chat "suggest a moody lighting setup"
  expert imagine "a lighthouse at dusk" -n 2 --aspect 16:9`,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := config.LoadEnvironment(g.envFiles...)
			if err != nil {
				return err
			}
			g.env = env

			level := g.logLevel
			if !cmd.Flags().Changed("log-level") {
				level = env.LogLevel
			}
			logger, err := newLogger(cmd.ErrOrStderr(), level)
			if err != nil {
				return err
			}
			g.logger = logger
			return nil
		},
	}

	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringSliceVar(&g.envFiles, "env-file", nil, "Env files to load (default .env when present)")

	root.AddCommand(
		newRelayCmd(g),
		newServeCmd(g),
		newProviderCmd(g),
		newLocalCmd(g),
		newChatCmd(g),
		newEnhanceCmd(g),
		newDescribeCmd(g),
		newImagineCmd(g),
		newEditCmd(g),
		newRefineCmd(g),
	)
	return root
}

// newLogger builds the JSON logger every binary in this repo uses.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "", "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l})), nil
}
