package utils

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// FetchModel loads one row by primary key.
// (may return ErrorRecordNotFound; other store errors are returned as is)
func FetchModel[T any](ctx context.Context, db *gorm.DB, id string, associations ...string) (*T, error) {
	dbCtx := db.WithContext(ctx)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.Where("id = ?", id).Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}
