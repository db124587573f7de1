package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/metrics"
	"bitbucket.org/mmdatafocus/frontdesk_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReconcileIncidentLogs writes the standalone copy of every embedded incident that lacks one.
// Safe to run while the dispatcher is running: propagation is keyed by incident id.
func ReconcileIncidentLogs(ctx context.Context, db *gorm.DB, logger *logrus.Logger, limit int) (int, error) {
	if logger == nil {
		logger = config.GetLogger()
	}
	missing, err := models.FindUnpropagatedIncidents(ctx, db, limit)
	if err != nil {
		config.LogError(logger, "incidentReconcile.go", "ReconcileIncidentLogs", "finding unpropagated incidents", limit, err)
		return 0, err
	}

	repaired := 0
	for _, incident := range missing {
		if err := models.PropagateIncident(ctx, db, incident.Payload()); err != nil {
			config.LogError(logger, "incidentReconcile.go", "ReconcileIncidentLogs", "propagating incident", incident.ID, err)
			metrics.AddIncidentRepairs(repaired)
			return repaired, err
		}
		repaired++
	}
	metrics.AddIncidentRepairs(repaired)

	if repaired > 0 {
		logger.WithFields(logrus.Fields{
			"field":    "ReconcileIncidentLogs",
			"repaired": repaired,
		}).Info("standalone incident log repaired")
	}
	return repaired, nil
}
