package config

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/frontdesk_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const organizationGuardName = "organization_guard"

// OrganizationGuardPlugin scopes queries/updates/deletes to the request's organization_id
// when the model has an organization_id column.
//
// NOTE:
// - This does NOT apply to Raw SQL queries. Those must include organization_id manually.
// - Background workers run without an organization in context and are not scoped.
type OrganizationGuardPlugin struct{}

func NewOrganizationGuardPlugin() *OrganizationGuardPlugin { return &OrganizationGuardPlugin{} }

func (p *OrganizationGuardPlugin) Name() string { return organizationGuardName }

func (p *OrganizationGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("organization_guard:query", organizationGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("organization_guard:row", organizationGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("organization_guard:update", organizationGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("organization_guard:delete", organizationGuardCallback); err != nil {
		return err
	}
	return nil
}

func organizationGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	if shouldBypassOrganizationScope(ctx) {
		return
	}
	organizationId := organizationIdFromContext(ctx)
	if organizationId == "" {
		return
	}
	if db.Statement.Schema == nil {
		return
	}
	if db.Statement.Schema.LookUpField("organization_id") == nil {
		return
	}
	if whereHasOrganizationId(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "organization_id"},
				Value:  organizationId,
			},
		},
	})
}

func organizationIdFromContext(ctx context.Context) string {
	if v, ok := appctx.GetString(ctx, appctx.ContextKeyOrganizationId); ok {
		return v
	}
	return ""
}

// super admins work across organizations
func shouldBypassOrganizationScope(ctx context.Context) bool {
	if v, ok := appctx.GetBool(ctx, appctx.ContextKeySkipOrganizationScope); ok && v {
		return true
	}
	if v, ok := appctx.GetBool(ctx, appctx.ContextKeyIsSuperAdmin); ok && v {
		return true
	}
	return false
}

func whereHasOrganizationId(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasOrganizationId(e) {
			return true
		}
	}
	return false
}

func exprHasOrganizationId(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsOrganizationId(v.Column)
	case clause.Neq:
		return colIsOrganizationId(v.Column)
	case clause.IN:
		return colIsOrganizationId(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasOrganizationId(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasOrganizationId(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		return strings.Contains(strings.ToLower(v.SQL), "organization_id")
	default:
		return false
	}
}

func colIsOrganizationId(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "organization_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "organization_id")
	default:
		return false
	}
}
