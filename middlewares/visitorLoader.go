package middlewares

import (
	"context"

	"bitbucket.org/mmdatafocus/frontdesk_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type visitorReader struct {
	db *gorm.DB
}

func (r *visitorReader) getVisitors(ctx context.Context, ids []string) []*dataloader.Result[*models.VisitorProfile] {
	var results []models.VisitorProfile
	err := r.db.WithContext(ctx).
		Preload("VisitsLogs", func(tx *gorm.DB) *gorm.DB { return tx.Order("visit_date DESC, id DESC") }).
		Where("id IN ?", ids).
		Find(&results).Error
	if err != nil {
		return handleError[*models.VisitorProfile](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(v *models.VisitorProfile) string { return v.ID }, "visitor not found")
}

// GetVisitor loads the visitor with its visits, newest first.
func GetVisitor(ctx context.Context, id string) (*models.VisitorProfile, error) {
	loaders := For(ctx)
	return loaders.VisitorLoader.Load(ctx, id)()
}
