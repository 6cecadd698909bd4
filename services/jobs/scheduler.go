package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"sustain_score_app_go/config"
	"sustain_score_app_go/models"
	"sustain_score_app_go/services"

	"github.com/robfig/cron/v3"
)

// Session pruning runs on a fixed cadence; the report archive follows REPORT_ARCHIVE_CRON.
const sessionPruneSpec = "@every 15m"

// Deps are the services the scheduled jobs operate on
type Deps struct {
	Sessions *services.SessionRegistry
	Projects *services.ProjectService
	Storage  services.StorageProvider
}

// StartScheduler registers the background jobs and starts the cron runner.
// The caller stops it on shutdown.
func StartScheduler(cfg *config.Config, deps Deps) (*cron.Cron, error) {
	c, err := NewScheduler(cfg, deps)
	if err != nil {
		return nil, err
	}
	c.Start()
	log.Printf("[CRON] Scheduler started (%d jobs)", len(c.Entries()))
	return c, nil
}

// NewScheduler builds the cron runner without starting it
func NewScheduler(cfg *config.Config, deps Deps) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("[CRON] Unknown timezone %q, using UTC", cfg.Timezone)
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	if deps.Sessions != nil && cfg.SessionIdleMinutes > 0 {
		idle := time.Duration(cfg.SessionIdleMinutes) * time.Minute
		if _, err := c.AddFunc(sessionPruneSpec, func() {
			PruneSessions(deps.Sessions, idle)
		}); err != nil {
			return nil, fmt.Errorf("failed to schedule session pruning: %w", err)
		}
	}

	if deps.Projects != nil && deps.Storage != nil && cfg.ReportArchiveCron != "" {
		if !deps.Storage.IsConfigured() {
			log.Println("[CRON] Report storage is not configured, nightly archive disabled")
			return c, nil
		}
		retention := time.Duration(cfg.ReportRetentionDays) * 24 * time.Hour
		if _, err := c.AddFunc(cfg.ReportArchiveCron, func() {
			log.Println("[CRON] Running nightly comparison report archive...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			now := time.Now()
			if _, err := ArchiveReport(ctx, deps.Projects, deps.Storage, now); err != nil {
				log.Printf("[CRON] Report archive failed: %v", err)
			}
			PruneArchive(ctx, deps.Storage, retention, now)
		}); err != nil {
			return nil, fmt.Errorf("failed to schedule report archive %q: %w", cfg.ReportArchiveCron, err)
		}
	}

	return c, nil
}

// PruneSessions drops assessment sessions idle for longer than idle
func PruneSessions(registry *services.SessionRegistry, idle time.Duration) int {
	removed := registry.Prune(idle)
	if removed > 0 {
		log.Printf("[CRON] Pruned %d idle assessment sessions (%d remaining)", removed, registry.Len())
	}
	return removed
}

// ArchiveReport snapshots the comparison of every stored project into storage
func ArchiveReport(ctx context.Context, projects *services.ProjectService, storage services.StorageProvider, now time.Time) (*services.StorageResult, error) {
	report, err := projects.ComparisonReport(ctx, services.ProjectFilter{}, now)
	if err != nil {
		return nil, err
	}
	result, err := services.ArchiveComparisonReport(ctx, storage, report)
	if err != nil {
		return nil, err
	}

	services.LogAuditEvent(projects.AuditDB, services.AuditContext{UserName: "scheduler"}, models.AuditActionExport,
		models.AuditResourceReport, result.Key, result.FileName, "Comparison report archived", nil,
		map[string]interface{}{"projects": len(report.Rows), "taxonomy_version": report.TaxonomyVersion})
	return result, nil
}

// PruneArchive applies the archive retention window. A zero retention keeps
// every workbook.
func PruneArchive(ctx context.Context, storage services.StorageProvider, retention time.Duration, now time.Time) int {
	if retention <= 0 {
		return 0
	}
	deleted, err := services.PruneArchivedReports(ctx, storage, now.Add(-retention))
	if err != nil {
		log.Printf("[CRON] Report retention failed after %d deletion(s): %v", len(deleted), err)
	}
	return len(deleted)
}
