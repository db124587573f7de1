// event-replay moves DEAD domain events back to FAILED so the dispatcher retries them.
//
// Usage:
//   go run ./cmd/event-replay --event-id=<uuid>
//   go run ./cmd/event-replay --all-dead --confirm=REPLAY
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/models"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
)

func main() {
	eventId := flag.String("event-id", "", "Event id to replay")
	allDead := flag.Bool("all-dead", false, "Replay every DEAD event")
	confirm := flag.String("confirm", "", "Type REPLAY to proceed with --all-dead")
	flag.Parse()

	if strings.TrimSpace(*eventId) == "" && !*allDead {
		fmt.Fprintln(os.Stderr, "--event-id or --all-dead is required")
		os.Exit(1)
	}
	if *allDead && strings.TrimSpace(*confirm) != "REPLAY" {
		fmt.Fprintln(os.Stderr, "set --confirm=REPLAY to proceed")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	ctx := utils.SetSkipOrganizationScopeInContext(context.Background(), true)

	ids := []string{strings.TrimSpace(*eventId)}
	if *allDead {
		ids = nil
		if err := db.WithContext(ctx).Model(&models.DomainEventRecord{}).
			Where("status = ?", models.DomainEventStatusDead).
			Order("id").
			Pluck("event_id", &ids).Error; err != nil {
			fmt.Fprintf(os.Stderr, "lookup failed: %v\n", err)
			os.Exit(1)
		}
	}

	failed := 0
	for _, id := range ids {
		rec, err := models.ReplayDeadDomainEvent(ctx, db, id)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "event_id=%s: %v\n", id, err)
			continue
		}
		fmt.Printf("event_id=%s type=%s status=%s\n", rec.EventId, rec.EventType, rec.Status)
	}
	fmt.Printf("replayed %d of %d event(s)\n", len(ids)-failed, len(ids))
	if failed > 0 {
		os.Exit(1)
	}
}
