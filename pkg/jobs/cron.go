package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/formlift/formlift/pkg/database"
	"github.com/formlift/formlift/pkg/store"
)

// Daily test counters older than this are pruned
const usageRetentionDays = 30

// CronManager manages scheduled jobs
type CronManager struct {
	cron    *cron.Cron
	usage   *store.UsageStore
	monitor *UsageMonitor
	logger  *log.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(db *database.Client, usage *store.UsageStore, dispatcher Notifier, logger *log.Logger) *CronManager {
	if logger == nil {
		logger = log.Default()
	}

	return &CronManager{
		cron:    cron.New(),
		usage:   usage,
		monitor: NewUsageMonitor(db, dispatcher, logger),
		logger:  logger,
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	cm.logger.Println("Setting up cron jobs...")

	// Daily at 2 AM: prune old daily test counters
	_, err := cm.cron.AddFunc("0 2 * * *", func() {
		cm.logger.Println("🕐 Running daily usage prune job...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		cutoff := store.Day(time.Now().UTC().AddDate(0, 0, -usageRetentionDays))
		pruned, err := cm.usage.PruneBefore(ctx, cutoff)
		if err != nil {
			cm.logger.Printf("❌ Failed to prune usage counters: %v", err)
			return
		}

		cm.logger.Printf("✅ Pruned %d usage counter rows older than %s", pruned, cutoff)
	})

	if err != nil {
		return err
	}

	// Daily at 8 AM: warn owners approaching their lead limit
	_, err = cm.cron.AddFunc("0 8 * * *", func() {
		cm.logger.Println("🕐 Running lead quota warning job...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		sent, err := cm.monitor.WarnAccountsNearLeadLimit(ctx, 0.8)
		if err != nil {
			cm.logger.Printf("❌ Failed to warn accounts near lead limit: %v", err)
			return
		}

		if sent == 0 {
			cm.logger.Println("✅ No accounts near their lead limit")
			return
		}
		cm.logger.Printf("✅ Sent %d lead quota warnings", sent)
	})

	if err != nil {
		return err
	}

	// Daily at 4 AM: log platform statistics
	_, err = cm.cron.AddFunc("0 4 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()

		stats, err := cm.monitor.GetUsageStats(ctx)
		if err != nil {
			cm.logger.Printf("❌ Failed to get usage stats: %v", err)
			return
		}

		cm.logger.Printf("📊 Platform statistics:")
		cm.logger.Printf("  Active accounts: %d", stats["accounts"])
		cm.logger.Printf("  Forms: %d", stats["forms"])
		cm.logger.Printf("  Leads: %d", stats["leads"])
	})

	if err != nil {
		return err
	}

	cm.logger.Println("✅ Cron jobs configured successfully")
	cm.logger.Println("  - Daily at 2 AM: Prune old usage counters")
	cm.logger.Println("  - Daily at 8 AM: Warn accounts near their lead limit")
	cm.logger.Println("  - Daily at 4 AM: Log platform statistics")

	return nil
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.logger.Println("🚀 Starting cron scheduler...")
	cm.cron.Start()
}

// Stop stops the cron scheduler
func (cm *CronManager) Stop() {
	cm.logger.Println("🛑 Stopping cron scheduler...")
	cm.cron.Stop()
}

// GetMonitor returns the usage monitor (for manual triggers)
func (cm *CronManager) GetMonitor() *UsageMonitor {
	return cm.monitor
}
