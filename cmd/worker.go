package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"folio/internal/app"
	"folio/internal/tasks"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background refresh worker",
	Long: `Starts the Asynq worker process that runs queued catalog refreshes, and a
scheduler that enqueues a refresh on worker.refresh_cron (empty disables it).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get application context: %w", err)
		}
		if err := runWorker(appInstance); err != nil {
			log.WithError(err).Error("Worker exited with error")
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

// runWorker initializes and runs the Asynq worker server and refresh scheduler.
func runWorker(appInstance *app.App) error {
	cfg := appInstance.Config

	redisOpts := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues:      cfg.Worker.Queues,
			Logger:      log.StandardLogger(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID, _ := asynq.GetTaskID(ctx)
				log.WithFields(log.Fields{"task_id": taskID, "type": task.Type()}).WithError(err).Error("Asynq task failed")
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeCatalogRefresh, tasks.HandleRefresh(appInstance.ProjectService))

	var scheduler *asynq.Scheduler
	if cfg.Worker.RefreshCron != "" {
		scheduler = asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{Logger: log.StandardLogger()})
		task, err := tasks.NewRefreshTask("schedule", time.Time{})
		if err != nil {
			return err
		}
		entryID, err := scheduler.Register(cfg.Worker.RefreshCron, task, asynq.Queue(tasks.QueueCatalog))
		if err != nil {
			return fmt.Errorf("invalid worker.refresh_cron %q: %w", cfg.Worker.RefreshCron, err)
		}
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start refresh scheduler: %w", err)
		}
		log.WithFields(log.Fields{"cron": cfg.Worker.RefreshCron, "entry_id": entryID}).Info("Scheduled catalog refresh")
	}

	log.Infof("Starting Asynq worker server (Concurrency: %d, Queues: %v)...", cfg.Worker.Concurrency, cfg.Worker.Queues)
	if err := srv.Start(mux); err != nil {
		if scheduler != nil {
			scheduler.Shutdown()
		}
		return fmt.Errorf("failed to start Asynq server: %w", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	log.Info("Shutdown signal received. Initiating graceful shutdown...")
	if scheduler != nil {
		scheduler.Shutdown()
	}
	srv.Stop()
	srv.Shutdown()
	log.Info("Worker shutdown complete.")
	return nil
}
