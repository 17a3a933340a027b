package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manthysbr/aiexpert/internal/core/domain"
)

func newProviderCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Show or switch the active provider (cloud or local)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the active provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = fmt.Fprintln(cmd.OutOrStdout(), a.settings.Provider())
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "set <cloud|local>",
		Short:     "Persist the active provider",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.ProviderCloud), string(domain.ProviderLocal)},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			p := domain.ProviderSelection(strings.ToLower(strings.TrimSpace(args[0])))
			if err := a.settings.SetProvider(cmd.Context(), p); err != nil {
				return err
			}
			if !a.facade.IsConfigured() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: provider %s is selected but not configured\n", p)
			}
			return nil
		},
	})

	return cmd
}

func newLocalCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Manage the private model server settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the local provider settings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			return printJSON(cmd.OutOrStdout(), struct {
				domain.LocalProviderConfig
				Configured bool     `json:"configured"`
				Missing    []string `json:"missing,omitempty"`
			}{
				LocalProviderConfig: a.settings.LocalConfig(),
				Configured:          a.settings.LocalConfig().IsComplete(),
				Missing:             a.settings.LocalConfig().Missing(),
			})
		},
	})

	var server, model, relayURL string
	set := &cobra.Command{
		Use:   "set",
		Short: "Update the local provider settings; unset flags keep their value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.settings.LocalConfig()
			if cmd.Flags().Changed("server") {
				cfg.ServerBaseURL = server
			}
			if cmd.Flags().Changed("model") {
				cfg.ModelName = strings.TrimSpace(model)
			}
			if cmd.Flags().Changed("relay") {
				cfg.RelayBaseURL = relayURL
			}
			return a.settings.SetLocalConfig(cmd.Context(), cfg)
		},
	}
	set.Flags().StringVar(&server, "server", "", "Model server base URL as seen from the relay, e.g. http://127.0.0.1:11434")
	set.Flags().StringVar(&model, "model", "", "Model name, e.g. llama3")
	set.Flags().StringVar(&relayURL, "relay", "", "Externally reachable relay base URL")
	cmd.AddCommand(set)

	var checkServer, checkRelay string
	check := &cobra.Command{
		Use:   "check",
		Short: "Test that the relay can reach the model server",
		Long:  "Test the saved settings, or the --server/--relay values without saving them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.settings.LocalConfig()
			if cmd.Flags().Changed("server") {
				cfg.ServerBaseURL = checkServer
			}
			if cmd.Flags().Changed("relay") {
				cfg.RelayBaseURL = checkRelay
			}

			result := a.providers.Local.CheckConnection(cmd.Context(), cfg.ServerBaseURL, cfg.RelayBaseURL)
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			if !result.Success {
				return fmt.Errorf("connection check failed")
			}
			return nil
		},
	}
	check.Flags().StringVar(&checkServer, "server", "", "Model server base URL to test")
	check.Flags().StringVar(&checkRelay, "relay", "", "Relay base URL to test")
	cmd.AddCommand(check)

	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
