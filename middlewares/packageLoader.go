package middlewares

import (
	"context"

	"bitbucket.org/mmdatafocus/frontdesk_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type packageReader struct {
	db *gorm.DB
}

func (r *packageReader) getPackages(ctx context.Context, ids []string) []*dataloader.Result[*models.Package] {
	var results []models.Package
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Package](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(p *models.Package) string { return p.ID }, "package not found")
}

func GetPackage(ctx context.Context, id string) (*models.Package, error) {
	loaders := For(ctx)
	return loaders.PackageLoader.Load(ctx, id)()
}
