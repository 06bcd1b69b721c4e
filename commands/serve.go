package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andrewpaige1/stratdesk-api/handlers"
	"github.com/andrewpaige1/stratdesk-api/vault"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			v, err := vault.New(cfg.VaultKey)
			if err != nil {
				return err
			}
			router, err := handlers.New(db, logger, cfg, v).NewRouter()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = "0.0.0.0:" + cfg.Port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
			return runServer(ctx, srv, ln, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default 0.0.0.0:$PORT)")
	return cmd
}

// runServer serves on ln until ctx is cancelled, then drains in-flight
// requests.
func runServer(ctx context.Context, srv *http.Server, ln net.Listener, log *zap.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("serve: listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("serve: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
