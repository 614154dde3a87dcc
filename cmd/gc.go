package cmd

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emrgen/revision/internal/audit"
	"github.com/emrgen/revision/internal/cache"
	"github.com/emrgen/revision/internal/config"
	"github.com/emrgen/revision/internal/jobs"
	"github.com/emrgen/revision/internal/projection"
	"github.com/emrgen/revision/internal/queue"
	"github.com/emrgen/revision/internal/sanitize"
	"github.com/emrgen/revision/internal/service"
	"github.com/emrgen/revision/internal/store"
)

func init() {
	rootCmd.AddCommand(gcCmd())
}

func gcCmd() *cobra.Command {
	var watch bool

	command := &cobra.Command{
		Use:   "gc",
		Short: "remove auto-save snapshots outside the retention window",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.LoadConfig()
			db := config.GetDb(cfg)

			gormStore := store.NewGormStore(db)
			versions := service.NewVersionService(
				gormStore,
				cache.NewNop(),
				queue.NewNop(),
				audit.NewLogger(gormStore),
				sanitize.NewHTMLSanitizer(),
				service.AllowAll{},
				projection.NewGormProjection(db),
				service.NopQuotaReporter{},
			)
			autosaves := service.NewAutosaveService(versions, gormStore, cfg.AutoSaveKeep, cfg.AutoSaveRetention)

			if !watch {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				defer cancel()

				removed, err := autosaves.SweepStale(ctx)
				if err != nil {
					logrus.Fatalf("sweep failed: %v", err)
				}
				logrus.Infof("removed %d stale auto-save snapshots", removed)
				return
			}

			executor := jobs.NewTaskExecutor(nil, []jobs.CronJob{
				jobs.NewRetentionTask(cfg.SweepSchedule, autosaves),
			})
			executor.Run()
			defer executor.Stop()

			select {}
		},
	}

	command.Flags().BoolVarP(&watch, "watch", "w", false, "keep running on the configured schedule")

	return command
}
