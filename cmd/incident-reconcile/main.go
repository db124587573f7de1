// incident-reconcile writes the standalone incident log entry for every tenant incident that is missing one.
//
// Usage:
//   go run ./cmd/incident-reconcile --dry-run=true
//   go run ./cmd/incident-reconcile --dry-run=false --limit=1000
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/models"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"bitbucket.org/mmdatafocus/frontdesk_backend/workflow"
)

func main() {
	limit := flag.Int("limit", 500, "Maximum number of incidents to repair in one run")
	dryRun := flag.Bool("dry-run", true, "List missing incidents only (no writes)")
	flag.Parse()

	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be positive")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := config.GetLogger()
	ctx := utils.SetSkipOrganizationScopeInContext(context.Background(), true)

	if *dryRun {
		missing, err := models.FindUnpropagatedIncidents(ctx, db, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lookup failed: %v\n", err)
			os.Exit(1)
		}
		for _, incident := range missing {
			fmt.Printf("missing incident_id=%s tenant_id=%s type=%s\n", incident.ID, incident.TenantId, incident.IncidentType)
		}
		fmt.Printf("dry-run: %d incident(s) without a standalone log entry\n", len(missing))
		return
	}

	repaired, err := workflow.ReconcileIncidentLogs(ctx, db, logger, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconcile stopped after %d repair(s): %v\n", repaired, err)
		os.Exit(1)
	}
	fmt.Printf("repaired %d incident(s)\n", repaired)
}
