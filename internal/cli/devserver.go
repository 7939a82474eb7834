package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"leadboard/internal/devserver"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newDevServerCmd(app *App) *cobra.Command {
	var addr string
	var seed bool
	var latency time.Duration
	var redisURL string

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Serve the CRM REST API from memory (for local development)",
		Example: strings.TrimSpace(`
# Seeded mock CRM on localhost, then open the board against it
leadboard dev-server --addr 127.0.0.1:8085 --seed
leadboard --api http://127.0.0.1:8085 --workspace <id>

# Slow responses to watch per-board loading, with idempotency keys in Redis
leadboard dev-server --latency 400ms --redis-url redis://localhost:6379/0
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				return writeErr(cmd, errors.New("dev-server: missing --addr"))
			}

			opts := devserver.Options{Logger: app.log, Latency: latency}
			if u := strings.TrimSpace(redisURL); u != "" {
				ro, err := redis.ParseURL(u)
				if err != nil {
					return writeErr(cmd, fmt.Errorf("parse --redis-url: %w", err))
				}
				rc := redis.NewClient(ro)
				defer rc.Close()
				opts.Deduper = devserver.NewRedisDeduper(rc, 24*time.Hour)
			}

			state := devserver.NewState()
			var seeded string
			if seed {
				ws, err := state.Seed()
				if err != nil {
					return writeErr(cmd, err)
				}
				seeded = ws.ID
			}
			srv := devserver.New(state, opts)

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}
			actualAddr := ln.Addr().String()

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"url":       "http://" + actualAddr,
					"workspace": seeded,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "leadboard dev-server running at http://%s\n", actualAddr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			errc := make(chan error, 1)
			go func() { errc <- srv.Serve(ln) }()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return writeErr(cmd, err)
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8085", "Listen address")
	cmd.Flags().BoolVar(&seed, "seed", false, "Start with a demo workspace")
	cmd.Flags().DurationVar(&latency, "latency", 0, "Artificial delay per request")
	cmd.Flags().StringVar(&redisURL, "redis-url", "", "Record idempotency keys in Redis instead of memory")

	return cmd
}
