package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VisitorProfile struct {
	ID                    string        `gorm:"primary_key;size:36" json:"id"`
	OrganizationId        string        `gorm:"size:36;not null;index" json:"organizationId"`
	VisitorName           string        `gorm:"size:100;not null;index" json:"visitorName"`
	VisitorLastName       string        `gorm:"size:100;not null;index" json:"visitorLastName"`
	Notes                 string        `gorm:"type:text" json:"notes"`
	RegisteredForTenantId *string       `gorm:"size:36;index" json:"registeredForTenantId"`
	CreatedByName         string        `gorm:"size:200" json:"createdBy"`
	EmployeeId            string        `gorm:"size:36" json:"employeeId"`
	CreatedAt             time.Time     `gorm:"not null;index" json:"createdAt"`
	VisitsLogs            []*VisitEntry `gorm:"foreignKey:VisitorId" json:"visitsLogs"`
}

// VisitEntry is one check-in. Entries are read back most recent first.
type VisitEntry struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"size:36;not null;index" json:"-"`
	VisitorId      string    `gorm:"size:36;not null;index:idx_visit_entry_visitor,priority:1" json:"visitorId"`
	TenantId       string    `gorm:"size:36;not null;index" json:"tenantId"`
	VisitDate      time.Time `gorm:"not null;index:idx_visit_entry_visitor,priority:2" json:"visitDate"`
	CreatedByName  string    `gorm:"size:200" json:"createdBy"`
	EmployeeId     string    `gorm:"size:36" json:"employeeId"`
}

type NewVisitorInput struct {
	TenantId        *string `json:"tenantId"`
	VisitorName     string  `json:"visitorName" validate:"required,max=100"`
	VisitorLastName string  `json:"visitorLastName" validate:"required,max=100"`
	Notes           string  `json:"notes"`
}

func (v *VisitorProfile) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = utils.NewId()
	}
	return nil
}

func (v VisitorProfile) FullName() string {
	return fullName(v.VisitorName, v.VisitorLastName)
}

func newestVisitsFirst(db *gorm.DB) *gorm.DB {
	return db.Order("visit_date DESC, id DESC")
}

func fetchVisitor(ctx context.Context, db *gorm.DB, visitorId string) (*VisitorProfile, error) {
	visitor, err := utils.FetchModel[VisitorProfile](ctx, db, visitorId)
	if err != nil {
		return nil, notFoundOr(err, "visitor not found")
	}
	return visitor, nil
}

func fetchVisitorWithVisits(ctx context.Context, db *gorm.DB, visitorId string) (*VisitorProfile, error) {
	var visitor VisitorProfile
	err := db.WithContext(ctx).
		Preload("VisitsLogs", newestVisitsFirst).
		Where("id = ?", visitorId).
		Take(&visitor).Error
	if err != nil {
		return nil, notFoundOr(err, "visitor not found")
	}
	return &visitor, nil
}

// RegisterVisitor creates a profile with an empty visit log. Registering is not a check-in.
func RegisterVisitor(ctx context.Context, input NewVisitorInput) (*VisitorProfile, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	utils.TrimAll(&input)
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	db, err := getDB()
	if err != nil {
		return nil, err
	}

	var tenantId *string
	if input.TenantId != nil && *input.TenantId != "" {
		tenantId = input.TenantId
	}

	visitor := VisitorProfile{
		OrganizationId:        actor.OrganizationId,
		VisitorName:           input.VisitorName,
		VisitorLastName:       input.VisitorLastName,
		Notes:                 input.Notes,
		RegisteredForTenantId: tenantId,
		CreatedByName:         actorDisplayName(actor),
		EmployeeId:            actor.EmployeeId,
		CreatedAt:             now(),
	}

	var eventIds []string
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tenantId != nil {
			if _, err := fetchTenant(ctx, tx, *tenantId); err != nil {
				return err
			}
		}
		if err := tx.WithContext(ctx).Create(&visitor).Error; err != nil {
			return err
		}
		eventId, err := emitActivity(ctx, tx, actor, ActivityTypeNewVisitorCreated,
			fmt.Sprintf("Visitor %q created", visitor.FullName()), ReferenceTypeVisitor, visitor.ID)
		if err != nil {
			return err
		}
		eventIds = append(eventIds, eventId)
		return nil
	})
	if err != nil {
		return nil, utils.WrapInternal(err, "register visitor")
	}

	ProcessEventsNow(ctx, eventIds)
	visitor.VisitsLogs = []*VisitEntry{}
	return &visitor, nil
}

// LogVisit checks a visitor in for a tenant. Banned visitors are FORBIDDEN.
func LogVisit(ctx context.Context, tenantId string, visitorId string) (*VisitorProfile, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	tenantId, visitorId = strings.TrimSpace(tenantId), strings.TrimSpace(visitorId)
	if err := utils.RequiredFields(map[string]string{"tenantId": tenantId, "visitorId": visitorId}); err != nil {
		return nil, err
	}
	db, err := getDB()
	if err != nil {
		return nil, err
	}

	var eventIds []string
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, err := fetchTenant(ctx, tx, tenantId)
		if err != nil {
			return err
		}
		visitor, err := fetchVisitor(ctx, tx, visitorId)
		if err != nil {
			return err
		}
		status, err := GetVisitorAccessStatus(ctx, tx, tenantId, visitorId)
		if err != nil {
			return err
		}
		if status == VisitorAccessBanned {
			return utils.NewForbiddenError("visitor is banned")
		}

		entry := VisitEntry{
			OrganizationId: visitor.OrganizationId,
			VisitorId:      visitorId,
			TenantId:       tenant.ID,
			VisitDate:      now(),
			CreatedByName:  actorDisplayName(actor),
			EmployeeId:     actor.EmployeeId,
		}
		if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
			return err
		}
		eventId, err := emitActivity(ctx, tx, actor, ActivityTypeNewVisitorLogged,
			fmt.Sprintf("Visitor %q just checked in", visitor.FullName()), ReferenceTypeVisitor, visitorId)
		if err != nil {
			return err
		}
		eventIds = append(eventIds, eventId)
		return nil
	})
	if err != nil {
		return nil, utils.WrapInternal(err, "log visit")
	}

	ProcessEventsNow(ctx, eventIds)
	return fetchVisitorWithVisits(ctx, db, visitorId)
}

// SearchVisitors returns at most config.SearchLimit profiles by relevance.
// MySQL ranks with the FULLTEXT index; other stores rank exact name > prefix > substring, then newest.
func SearchVisitors(ctx context.Context, filter string) ([]*VisitorProfile, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	filter = strings.TrimSpace(filter)
	results := []*VisitorProfile{}
	if filter == "" {
		return results, nil
	}
	db, err := getDB()
	if err != nil {
		return nil, err
	}

	q := db.WithContext(ctx).Preload("VisitsLogs", newestVisitsFirst)
	if config.IsMySQL(db) {
		const match = "MATCH(visitor_name, visitor_last_name) AGAINST (? IN NATURAL LANGUAGE MODE)"
		q = q.Where(match, filter).
			Clauses(clause.OrderBy{Expression: clause.Expr{SQL: match + " DESC, created_at DESC", Vars: []interface{}{filter}, WithoutParentheses: true}})
	} else {
		terms := searchTerms(filter)
		if len(terms) == 0 {
			return results, nil
		}
		var conds []string
		var vars []interface{}
		var prefixConds []string
		var prefixVars []interface{}
		for _, term := range terms {
			conds = append(conds, "LOWER(visitor_name) LIKE ? OR LOWER(visitor_last_name) LIKE ?")
			vars = append(vars, "%"+term+"%", "%"+term+"%")
			prefixConds = append(prefixConds, "LOWER(visitor_name) LIKE ? OR LOWER(visitor_last_name) LIKE ?")
			prefixVars = append(prefixVars, term+"%", term+"%")
		}
		// one ORDER BY expression: gorm drops an Expression when plain columns are merged in
		rank := "CASE WHEN LOWER(visitor_name) IN (?) OR LOWER(visitor_last_name) IN (?) THEN 0 WHEN " +
			strings.Join(prefixConds, " OR ") + " THEN 1 ELSE 2 END, created_at DESC, id DESC"
		rankVars := append([]interface{}{terms, terms}, prefixVars...)
		q = q.Where(strings.Join(conds, " OR "), vars...).
			Clauses(clause.OrderBy{Expression: clause.Expr{SQL: rank, Vars: rankVars, WithoutParentheses: true}})
	}

	if err := q.Limit(config.SearchLimit).Find(&results).Error; err != nil {
		return nil, utils.WrapInternal(err, "search visitors")
	}
	return results, nil
}

// searchTerms lower-cases the filter and drops LIKE wildcards.
func searchTerms(filter string) []string {
	cleaned := strings.NewReplacer("%", " ", "_", " ", "\\", " ").Replace(strings.ToLower(filter))
	terms := utils.UniqueSlice(strings.Fields(cleaned))
	if len(terms) > 5 {
		terms = terms[:5]
	}
	return terms
}

// GetVisitorLogs lists all visitor profiles, newest first.
func GetVisitorLogs(ctx context.Context) ([]*VisitorProfile, error) {
	db, err := getDB()
	if err != nil {
		return nil, err
	}
	var visitors []*VisitorProfile
	if err := db.WithContext(ctx).
		Preload("VisitsLogs", newestVisitsFirst).
		Order("created_at DESC, id DESC").
		Find(&visitors).Error; err != nil {
		return nil, utils.WrapInternal(err, "list visitors")
	}
	return visitors, nil
}

// GetVisitorsByTenantId lists profiles that visited the tenant at least once.
func GetVisitorsByTenantId(ctx context.Context, tenantId string) ([]*VisitorProfile, error) {
	if err := utils.RequiredFields(map[string]string{"tenantId": tenantId}); err != nil {
		return nil, err
	}
	db, err := getDB()
	if err != nil {
		return nil, err
	}
	if _, err := fetchTenant(ctx, db, tenantId); err != nil {
		return nil, err
	}
	visited := db.Model(&VisitEntry{}).Select("visitor_id").Where("tenant_id = ?", tenantId)
	var visitors []*VisitorProfile
	if err := db.WithContext(ctx).
		Preload("VisitsLogs", newestVisitsFirst).
		Where("id IN (?)", visited).
		Order("created_at DESC, id DESC").
		Find(&visitors).Error; err != nil {
		return nil, utils.WrapInternal(err, "list tenant visitors")
	}
	return visitors, nil
}

// GetTenantVisitLogs returns the visitor with only the visits made to the tenant.
func GetTenantVisitLogs(ctx context.Context, tenantId string, visitorId string) (*VisitorProfile, error) {
	if err := utils.RequiredFields(map[string]string{"tenantId": tenantId, "visitorId": visitorId}); err != nil {
		return nil, err
	}
	db, err := getDB()
	if err != nil {
		return nil, err
	}
	if _, err := fetchTenant(ctx, db, tenantId); err != nil {
		return nil, err
	}
	var visitor VisitorProfile
	err = db.WithContext(ctx).
		Preload("VisitsLogs", func(tx *gorm.DB) *gorm.DB {
			return newestVisitsFirst(tx.Where("tenant_id = ?", tenantId))
		}).
		Where("id = ?", visitorId).
		Take(&visitor).Error
	if err != nil {
		return nil, notFoundOr(err, "visitor not found")
	}
	return &visitor, nil
}
