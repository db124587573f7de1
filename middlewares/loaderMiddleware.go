package middlewares

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/models"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders batch by-id reads within one request.
type Loaders struct {
	TenantLoader  *dataloader.Loader[string, *models.Tenant]
	VisitorLoader *dataloader.Loader[string, *models.VisitorProfile]
	PackageLoader *dataloader.Loader[string, *models.Package]
}

func NewLoaders(conn *gorm.DB) *Loaders {
	tenantReader := &tenantReader{db: conn}
	visitorReader := &visitorReader{db: conn}
	packageReader := &packageReader{db: conn}

	return &Loaders{
		TenantLoader:  dataloader.NewBatchedLoader(tenantReader.getTenants, dataloader.WithWait[string, *models.Tenant](time.Millisecond)),
		VisitorLoader: dataloader.NewBatchedLoader(visitorReader.getVisitors, dataloader.WithWait[string, *models.VisitorProfile](time.Millisecond)),
		PackageLoader: dataloader.NewBatchedLoader(packageReader.getPackages, dataloader.WithWait[string, *models.Package](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.GetDB())
		ctx := WithLoaders(c.Request.Context(), loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// For returns the request's loaders, or fresh unbatched ones outside a request.
func For(ctx context.Context) *Loaders {
	if loaders, ok := ctx.Value(loadersKey).(*Loaders); ok && loaders != nil {
		return loaders
	}
	return NewLoaders(config.GetDB())
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// generateLoaderResults orders rows by the requested ids. Missing ids get a NOT_FOUND error.
func generateLoaderResults[T any](results []T, ids []string, key func(*T) string, notFound string) []*dataloader.Result[*T] {
	resultMap := make(map[string]*T, len(results))
	for i := range results {
		resultMap[key(&results[i])] = &results[i]
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		data, ok := resultMap[id]
		if !ok {
			loaderResults = append(loaderResults, &dataloader.Result[*T]{Error: utils.NewNotFoundError(notFound)})
			continue
		}
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: data})
	}
	return loaderResults
}
