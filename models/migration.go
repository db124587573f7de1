package models

import (
	"log"
	"strings"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"gorm.io/gorm"
)

func MigrateTable() {
	if err := Migrate(config.GetDB()); err != nil {
		log.Fatal(err)
	}
}

// Migrate creates or updates every table. The visitor FULLTEXT index is MySQL only.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Employee{},
		&Tenant{}, &TenantIncident{},
		&VisitorProfile{}, &VisitEntry{},
		&VisitorAccess{}, &VisitorAccessHistory{},
		&Package{},
		&IncidentLog{}, &IncidentField{},
		&Activity{},
		&DomainEventRecord{},
	)
	if err != nil {
		return err
	}
	if config.IsMySQL(db) {
		return ensureVisitorFulltextIndex(db)
	}
	return nil
}

func ensureVisitorFulltextIndex(db *gorm.DB) error {
	const name = "idx_visitor_profiles_fulltext"
	if db.Migrator().HasIndex(&VisitorProfile{}, name) {
		return nil
	}
	err := db.Exec("ALTER TABLE visitor_profiles ADD FULLTEXT INDEX " + name + " (visitor_name, visitor_last_name)").Error
	if err != nil && strings.Contains(err.Error(), "Duplicate key name") {
		return nil
	}
	return err
}
