package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"opendocs/config"
	"opendocs/relay"
	"opendocs/storage"
	"opendocs/ui"
)

const Version = "v0.1.0"

// viper keys
const (
	keyAPIKey   = "api_key"
	keyProvider = "provider"
	keyModel    = "model"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderError(err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "opendocs",
		Short:         "AI chat relay for the OpenDocs PDF reader",
		Long:          "opendocs relays chat requests from the reader UI to Gemini, Anthropic, OpenAI, OpenRouter or Ollama and streams the replies back.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				return config.SetLogLevel(logLevel)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "", "log level on stderr: debug, info, warn, error")
	flags.String("api-key", "", "provider API key (env: OPENDOCS_API_KEY, GEMINI_API_KEY)")
	flags.StringP("provider", "p", "", "provider id (default from config)")
	flags.StringP("model", "m", "", "model name (default from config or provider)")

	bindFlag(keyAPIKey, flags.Lookup("api-key"), "OPENDOCS_API_KEY", "GEMINI_API_KEY")
	bindFlag(keyProvider, flags.Lookup("provider"), "OPENDOCS_PROVIDER")
	bindFlag(keyModel, flags.Lookup("model"), "OPENDOCS_MODEL")

	root.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newModelsCmd(),
		newPingCmd(),
		newProvidersCmd(),
		newHistoryCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
	return root
}

// bindFlag lets key come from the flag or, when the flag is unset, the first
// env var that is set.
func bindFlag(key string, flag *pflag.Flag, envs ...string) {
	if err := viper.BindEnv(append([]string{key}, envs...)...); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// loadConfig reads the configuration and starts debug logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.InitDebugLog(cfg.DataDir())
	return cfg, nil
}

// openJournal opens the exchange journal when the config enables it.
// The returned close func is never nil.
func openJournal(cfg *config.Config) (*storage.Journal, func(), error) {
	if !cfg.JournalEnabled {
		return nil, func() {}, nil
	}
	j, err := storage.NewJournal(cfg.DataDir())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open exchange journal: %w", err)
	}
	return j, func() {
		if err := j.Close(); err != nil {
			config.DebugLog.Warn("failed to close journal", "err", err)
		}
	}, nil
}

// newRelay builds the relay, journaling when j is non-nil.
func newRelay(cfg *config.Config, j *storage.Journal) *relay.Relay {
	if j == nil {
		return relay.FromConfig(cfg, nil)
	}
	return relay.FromConfig(cfg, j)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// terminalWidth honours $COLUMNS and falls back to 100.
func terminalWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return 100
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "opendocs", Version)
		},
	}
}
