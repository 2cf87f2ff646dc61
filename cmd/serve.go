package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apiquery/internal/gui"
	"apiquery/internal/handler"
	"apiquery/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var withGUI bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backend resource API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log := appLog.Logger

			gin.SetMode(gin.ReleaseMode)

			var db service.DBClient
			if cfg.DatabaseURL != "" {
				pg := service.NewPostgresClient()
				if err := pg.Connect(cfg.DatabaseURL); err != nil {
					return err
				}
				defer pg.Disconnect()
				db = pg
			} else {
				log.Info("DATABASE_URL not set, waiting for POST /connect")
			}
			handler.Configure(db, cfg.Tables)

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return listen(ctx, log.WithName("api"), ":"+cfg.Port, handler.NewRouter(log, cfg.Mount))
			})
			if withGUI {
				srv := gui.NewServer(newController(), log)
				g.Go(func() error {
					return listen(ctx, log.WithName("gui"), ":"+cfg.GUIPort, srv.Handler())
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&withGUI, "with-gui", false, "also serve the web client on the GUI port")
	return cmd
}

func newGUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Serve the web client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gin.SetMode(gin.ReleaseMode)
			srv := gui.NewServer(newController(), appLog.Logger)
			return listen(ctx, appLog.WithName("gui"), ":"+cfg.GUIPort, srv.Handler())
		},
	}
}

// listen serves h on addr until ctx is done, then shuts down gracefully.
func listen(ctx context.Context, log logr.Logger, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	log.Info("shutting down", "addr", addr)
	return srv.Shutdown(shutdownCtx)
}
