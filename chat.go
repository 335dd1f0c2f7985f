package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"opendocs/bridge"
	"opendocs/model"
	"opendocs/relay"
	"opendocs/ui"
)

func newChatCmd() *cobra.Command {
	var (
		file         string
		contextFile  string
		instructions string
		render       bool
		copyReply    bool
	)

	cmd := &cobra.Command{
		Use:   "chat QUESTION...",
		Short: "Ask one question, optionally about a document",
		Example: `  opendocs chat "Summarize the introduction" --file paper.pdf
  opendocs chat "What does table 2 show?" --context-file page4.txt --render`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			req := model.ChatRequest{
				Messages:           []model.ChatMessage{{Role: model.RoleUser, Content: strings.Join(args, " ")}},
				APIKey:             viper.GetString(keyAPIKey),
				Provider:           viper.GetString(keyProvider),
				Model:              viper.GetString(keyModel),
				CustomInstructions: instructions,
			}
			if file != "" {
				if req.FilePath, err = filepath.Abs(file); err != nil {
					return err
				}
			}
			if contextFile != "" {
				data, err := os.ReadFile(contextFile)
				if err != nil {
					return fmt.Errorf("failed to read context file: %w", err)
				}
				req.DocumentContext = string(data)
			}

			journal, closeJournal, err := openJournal(cfg)
			if err != nil {
				return err
			}
			defer closeJournal()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			out := cmd.OutOrStdout()
			reply, err := runChat(ctx, newRelay(cfg, journal), req, out, !render, bridge.WithMaxEnvelopeBytes(cfg.MaxRequestBytes))
			if err != nil {
				return err
			}

			if render {
				fmt.Fprintln(out, ui.RenderMarkdown(reply, terminalWidth()))
			}
			if copyReply {
				if err := clipboard.WriteAll(reply); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), ui.WarningStyle.Render("could not copy reply: "+err.Error()))
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderSuccess("reply copied to clipboard"))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "document to attach to the question")
	cmd.Flags().StringVar(&contextFile, "context-file", "", "text file with the extracted document context")
	cmd.Flags().StringVar(&instructions, "instructions", "", "custom instructions (default from config)")
	cmd.Flags().BoolVar(&render, "render", false, "render the finished reply as markdown instead of streaming raw text")
	cmd.Flags().BoolVar(&copyReply, "copy", false, "copy the reply to the clipboard")
	return cmd
}

// runChat plays the reader UI against an in-process relay: a bridge client
// and server talk over in-memory pipes exactly as they would over stdio.
// Fragments are written to out as they arrive when stream is set. Cancelling
// ctx stops the exchange and returns the partial reply. opts configure the
// relay end of the link.
func runChat(ctx context.Context, r *relay.Relay, req model.ChatRequest, out io.Writer, stream bool, opts ...bridge.ConnOption) (string, error) {
	upR, upW := io.Pipe()
	downR, downW := io.Pipe()
	serverConn := bridge.NewStdioConn(upR, downW, opts...)
	client := bridge.NewClient(bridge.NewStdioConn(downR, upW))

	// The transport outlives ctx so a stop still gets its terminal event.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.Go(func() error { return (&bridge.Server{Relay: r}).Serve(gctx, serverConn) })
	g.Go(func() error { return client.Run(gctx) })

	var reply strings.Builder
	var failure string
	sub, err := client.StreamChat(req, bridge.Handlers{
		OnFragment: func(text string) {
			reply.WriteString(text)
			if stream {
				fmt.Fprint(out, text)
			}
		},
		OnError: func(msg string) { failure = msg },
	})
	if err != nil {
		client.Close()
		_ = g.Wait()
		return "", err
	}

	select {
	case <-sub.Done():
	case <-ctx.Done():
		if err := sub.Cancel(); err != nil {
			sub.Close()
		}
		<-sub.Done()
	}

	client.Close()
	if err := g.Wait(); err != nil {
		return reply.String(), err
	}

	if stream && reply.Len() > 0 && !strings.HasSuffix(reply.String(), "\n") {
		fmt.Fprintln(out)
	}
	if failure != "" {
		return reply.String(), errors.New(failure)
	}
	return reply.String(), nil
}
