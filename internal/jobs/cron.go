// Package jobs runs the background schedules: the daily scan that notifies
// groups about subscriptions coming due.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/splitpot/splitpot/internal/notify"
	"github.com/splitpot/splitpot/internal/service"
	"github.com/splitpot/splitpot/internal/storage"
)

// Start schedules the background jobs and starts the cron runner. The caller
// owns the returned cron and stops it on shutdown.
func Start(store storage.Store, hub *notify.Hub) *cron.Cron {
	c := cron.New()

	// Runs daily at midnight: notify groups about due subscriptions.
	if _, err := c.AddFunc("0 0 * * *", func() {
		if err := NotifyDueSubscriptions(store, hub); err != nil {
			slog.Error("due-subscription scan failed", "error", err)
		}
	}); err != nil {
		slog.Error("failed to schedule due-subscription scan", "error", err)
	}

	c.Start()
	slog.Info("cron jobs started", "jobs", "due-subscription scan daily at midnight")
	return c
}

// NotifyDueSubscriptions publishes a subscription_due event to every member
// of every group holding a subscription due on or before today.
func NotifyDueSubscriptions(store storage.Store, hub *notify.Hub) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	subs, err := store.ListSubscriptionsDueBy(ctx, time.Now())
	if err != nil {
		return err
	}

	for _, sub := range subs {
		group, err := store.GetGroup(ctx, sub.GroupID)
		if err != nil {
			slog.Error("failed to load group for due subscription",
				"subscription_id", sub.ID, "group_id", sub.GroupID, "error", err)
			continue
		}
		hub.Publish(group.Members, notify.Event{Type: service.EventSubscriptionDue, Data: map[string]any{
			"subscription_id": sub.ID,
			"group_id":        sub.GroupID,
			"name":            sub.Name,
			"next_due_date":   sub.NextDueDate.Format("2006-01-02"),
		}})
	}

	if len(subs) > 0 {
		slog.Info("due-subscription scan complete", "due", len(subs))
	}
	return nil
}
