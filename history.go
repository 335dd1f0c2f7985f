package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"opendocs/config"
	"opendocs/mcp"
	"opendocs/storage"
	"opendocs/ui"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent exchanges from the journal (metadata only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.JournalEnabled {
				return fmt.Errorf("exchange journal is disabled; set journal = true under [relay] in %s/config.toml", cfg.DataDir())
			}

			j, err := storage.NewJournal(cfg.DataDir())
			if err != nil {
				return err
			}
			defer j.Close()

			records, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), ui.FormatExchanges(records))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of exchanges to show")
	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the relay as MCP tools over stdio",
		Long: `Start an MCP server on stdin/stdout exposing:

  ask_document      ask a question about a PDF (file_path and/or context)
  recent_exchanges  list journaled exchanges (when the journal is enabled)

The API key comes from --api-key, OPENDOCS_API_KEY or GEMINI_API_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			journal, closeJournal, err := openJournal(cfg)
			if err != nil {
				return err
			}
			defer closeJournal()

			opts := mcp.Options{
				Version:  Version,
				Provider: viper.GetString(keyProvider),
				Model:    viper.GetString(keyModel),
				APIKey:   viper.GetString(keyAPIKey),
			}
			if journal != nil {
				opts.Journal = journal
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			config.DebugLog.Info("serving MCP tools on stdio", "version", Version)
			s := mcp.NewServer(mcp.NewTools(newRelay(cfg, journal), opts))
			return mcp.ServeStdio(ctx, s, os.Stdin, os.Stdout)
		},
	}
}
