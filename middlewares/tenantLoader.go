package middlewares

import (
	"context"

	"bitbucket.org/mmdatafocus/frontdesk_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type tenantReader struct {
	db *gorm.DB
}

func (r *tenantReader) getTenants(ctx context.Context, ids []string) []*dataloader.Result[*models.Tenant] {
	var results []models.Tenant
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Tenant](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(t *models.Tenant) string { return t.ID }, "tenant not found")
}

// GetTenant loads the tenant row without its visitor projections.
func GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	loaders := For(ctx)
	return loaders.TenantLoader.Load(ctx, id)()
}
