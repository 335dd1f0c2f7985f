package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"opendocs/config"
	"opendocs/provider"
	"opendocs/ui"
)

// providerTimeout bounds the one-shot provider calls of models and ping.
const providerTimeout = 30 * time.Second

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models [FILTER]",
		Short: "List a provider's models, optionally fuzzy-filtered",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), providerTimeout)
			defer cancel()

			providerID := viper.GetString(keyProvider)
			models, err := provider.FetchModels(ctx, provider.NewFactory(cfg), providerID, viper.GetString(keyAPIKey))
			if err != nil {
				return fmt.Errorf("failed to list models: %w", err)
			}

			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}

			current := viper.GetString(keyModel)
			if current == "" && (providerID == "" || providerID == cfg.DefaultProvider) {
				current = cfg.DefaultModel
			}

			fmt.Fprint(cmd.OutOrStdout(), ui.FormatModelTable(ui.FilterModels(models, filter), current, terminalWidth()/2))
			return nil
		},
	}
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that a provider is reachable and accepts the API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), providerTimeout)
			defer cancel()

			f := provider.NewFactory(cfg)
			providerID := viper.GetString(keyProvider)
			if err := provider.PingProvider(ctx, f, providerID, viper.GetString(keyAPIKey)); err != nil {
				return err
			}

			t, _ := f.Resolve(providerID)
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess(fmt.Sprintf("%s is reachable", t)))
			return nil
		},
	}
}

func newProvidersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Show configured providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, id := range config.KnownProviders {
				label := id
				if id == cfg.DefaultProvider {
					label += " (default)"
				}
				label = fmt.Sprintf("%-21s", label)
				if id == cfg.DefaultProvider {
					label = ui.SelectedStyle.Render(label)
				}
				state := ui.SuccessStyle.Render("enabled")
				if !cfg.ProviderEnabled(id) {
					state = ui.WarningStyle.Render("disabled")
				}
				baseURL := cfg.ProviderBaseURL(id)
				if baseURL == "" {
					baseURL = "sdk default"
				}
				if !provider.RequiresAPIKey(provider.MapProviderIDToType(id)) {
					baseURL += ", no API key needed"
				}
				fmt.Fprintf(out, "%s %s  %s\n", label, state, ui.DimStyle.Render(baseURL))
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set PROVIDER FIELD VALUE",
		Short: "Update a provider setting (fields: base_url, enabled)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.UpdateProviderField(cfg.DataDir(), args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSuccess(fmt.Sprintf("%s.%s = %s", args[0], args[1], args[2])))
			return nil
		},
	})
	return cmd
}
