package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"opendocs/bridge"
	"opendocs/config"
	"opendocs/storage"
)

func newServeCmd() *cobra.Command {
	var (
		stdio   bool
		listen  string
		origins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat relay for the reader UI",
		Long: `Run the chat relay.

With --stdio the relay reads chat-stream envelopes from stdin and writes
chat-chunk/chat-done/chat-error envelopes to stdout, one JSON object per
line, and exits when stdin closes. Without it (or with --listen) the same
envelopes are served over WebSocket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			lock := storage.NewInstanceLock(cfg.DataDir())
			if err := lock.Acquire(); err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					config.DebugLog.Warn("failed to release instance lock", "path", lock.Path(), "err", err)
				}
			}()

			journal, closeJournal, err := openJournal(cfg)
			if err != nil {
				return err
			}
			defer closeJournal()

			addr := ""
			if !stdio || cmd.Flags().Changed("listen") {
				addr = cfg.Listen
				if listen != "" {
					addr = listen
				}
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return serve(ctx, &bridge.Server{Relay: newRelay(cfg, journal), MaxEnvelopeBytes: cfg.MaxRequestBytes}, stdio, addr, cfg.WSPath, origins)
		},
	}

	cmd.Flags().BoolVar(&stdio, "stdio", false, "serve over stdin/stdout")
	cmd.Flags().StringVar(&listen, "listen", "", "WebSocket listen address (default from config)")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "extra browser origins allowed to connect, e.g. app://opendocs")
	return cmd
}

// serve runs the requested transports until ctx is done. Losing the stdio
// peer stops every transport: the UI process that owns the relay is gone.
func serve(ctx context.Context, srv *bridge.Server, stdio bool, addr, wsPath string, origins []string) error {
	if !stdio && addr == "" {
		return fmt.Errorf("nothing to serve: enable --stdio or set a listen address")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if stdio {
		g.Go(func() error {
			defer cancel()
			config.DebugLog.Info("serving relay on stdio")
			return srv.Serve(gctx, bridge.NewStdioConn(os.Stdin, os.Stdout, bridge.WithMaxEnvelopeBytes(srv.MaxEnvelopeBytes)))
		})
	}

	if addr != "" {
		g.Go(func() error {
			return bridge.ListenAndServe(gctx, addr, wsPath, srv, origins...)
		})
	}

	return g.Wait()
}
