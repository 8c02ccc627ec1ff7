package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"folio/internal/apihandlers"
	"folio/internal/catalog"
	"folio/internal/models"
)

var (
	serveAddr string // Listen address
	servePort string // Listen port
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portfolio project API server",
	Long: `Starts an HTTP server exposing the project collection, its category tabs and a
live event stream of load cycles. A first load cycle starts immediately.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		cfg := appInstance.Config
		if cmd.Flags().Changed("addr") || cfg.Server.Addr == "" {
			cfg.Server.Addr = serveAddr
		}
		if cmd.Flags().Changed("port") || cfg.Server.Port == "" {
			cfg.Server.Port = servePort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Catalog.Path != "" && cfg.Server.WatchCatalog {
			watcher, err := catalog.NewWatcher(cfg.Catalog.Path)
			if err != nil {
				return fmt.Errorf("failed to watch catalog: %w", err)
			}
			if err := watcher.Start(); err != nil {
				return fmt.Errorf("failed to watch catalog: %w", err)
			}
			defer watcher.Stop()
			go applyCatalogReloads(ctx, appInstance.ProjectService, watcher.Reloads)
		}

		if _, err := appInstance.ProjectService.LoadAsync(ctx); err != nil {
			log.WithError(err).Warn("Initial load cycle not started")
		}

		if cfg.Server.ReleaseMode {
			gin.SetMode(gin.ReleaseMode)
		}
		router := gin.Default() // Includes logger and recovery middleware
		apihandlers.RegisterRoutes(router, apihandlers.NewAPIHandler(appInstance).WithBaseContext(ctx))

		listenAddr := fmt.Sprintf("%s:%s", cfg.Server.Addr, cfg.Server.Port)
		srv := &http.Server{Addr: listenAddr, Handler: router}
		errCh := make(chan error, 1)
		go func() {
			log.Infof("Starting folio API server on http://%s", listenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("failed to run API server: %w", err)
			}
		case <-ctx.Done():
			log.Info("Shutdown signal received, stopping API server")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down API server: %w", err)
		}
		// Cycles share ctx, so they are winding down; the cache must outlive them.
		stop()
		if err := appInstance.ProjectService.Wait(shutdownCtx); err != nil {
			log.WithError(err).Warn("Load cycle still running at shutdown")
		}
		log.Info("folio API server stopped.")
		return nil
	},
}

// catalogApplier takes catalog edits and makes them visible.
type catalogApplier interface {
	ApplyCatalog(ctx context.Context, entries []models.CatalogEntry) error
}

// applyCatalogReloads swaps in each valid catalog edit. Invalid edits keep the
// previous catalog.
func applyCatalogReloads(ctx context.Context, svc catalogApplier, reloads <-chan catalog.Reload) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-reloads:
			if !ok {
				return
			}
			if r.Err != nil {
				continue
			}
			if err := svc.ApplyCatalog(ctx, r.Entries); err != nil {
				log.WithError(err).Warn("Failed to start load cycle after catalog change")
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost", "Address to listen on (e.g., '0.0.0.0' for all interfaces)")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")
}
