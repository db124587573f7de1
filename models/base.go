package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// requireActor returns the request actor or UNAUTHENTICATED.
func requireActor(ctx context.Context) (*utils.Actor, error) {
	return utils.GetActorFromContext(ctx)
}

func actorDisplayName(actor *utils.Actor) string {
	if actor == nil {
		return ""
	}
	return actor.Name
}

func now() time.Time {
	return time.Now().UTC()
}

// notFoundOr translates a store miss into NOT_FOUND and anything else into INTERNAL.
func notFoundOr(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, utils.ErrorRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NewNotFoundError(message)
	}
	return utils.WrapInternal(err, message)
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func getDB() (*gorm.DB, error) {
	db := config.GetDB()
	if db == nil {
		return nil, utils.WrapInternal(errors.New("db is nil"), "database not ready")
	}
	return db, nil
}

func fullName(first string, last string) string {
	return strings.TrimSpace(first + " " + last)
}
