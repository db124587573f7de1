package graph

import (
	"context"
	"encoding/json"

	"bitbucket.org/mmdatafocus/frontdesk_backend/directives"
	"bitbucket.org/mmdatafocus/frontdesk_backend/models"
)

type operationKind string

const (
	kindQuery    operationKind = "query"
	kindMutation operationKind = "mutation"
)

type operation struct {
	kind    operationKind
	guard   func(ctx context.Context, next directives.Resolver) (interface{}, error)
	resolve func(ctx context.Context, variables json.RawMessage) (interface{}, error)
}

type tenantVars struct {
	TenantId string `json:"tenantId"`
}

type visitorPairVars struct {
	TenantId  string `json:"tenantId"`
	VisitorId string `json:"visitorId"`
}

type visitorLogVars struct {
	TenantId     string `json:"tenantId"`
	VisitorLogId string `json:"visitorLogId"`
}

type searchVars struct {
	Filter string `json:"filter"`
}

type packageVars struct {
	PackageId string `json:"packageId"`
}

type incidentLogVars struct {
	TenantId      string `json:"tenantId"`
	IncidentLogId string `json:"incidentLogId"`
}

type incidentFieldVars struct {
	FieldId string `json:"fieldId"`
}

type activitiesVars struct {
	Limit        *int                 `json:"limit"`
	After        *string              `json:"after"`
	ActivityType *models.ActivityType `json:"activityType"`
}

type activityVars struct {
	ActivityId string `json:"activityId"`
}

type noVars struct{}

// bind decodes the operation variables into T before calling fn.
func bind[T any](fn func(ctx context.Context, in T) (interface{}, error)) func(context.Context, json.RawMessage) (interface{}, error) {
	return func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var in T
		if err := decodeVariables(raw, &in); err != nil {
			return nil, err
		}
		return fn(ctx, in)
	}
}

func query(fn func(context.Context, json.RawMessage) (interface{}, error)) operation {
	return operation{kind: kindQuery, guard: directives.Auth, resolve: fn}
}

func mutation(fn func(context.Context, json.RawMessage) (interface{}, error)) operation {
	return operation{kind: kindMutation, guard: directives.Auth, resolve: fn}
}

func adminMutation(fn func(context.Context, json.RawMessage) (interface{}, error)) operation {
	return operation{kind: kindMutation, guard: directives.AdminOnly, resolve: fn}
}

func superAdminMutation(fn func(context.Context, json.RawMessage) (interface{}, error)) operation {
	return operation{kind: kindMutation, guard: directives.SuperAdminOnly, resolve: fn}
}

func (r *Resolver) registerOperations() map[string]operation {
	return map[string]operation{
		// visitors
		"registerVisitor": mutation(bind(func(ctx context.Context, in models.NewVisitorInput) (interface{}, error) {
			return models.RegisterVisitor(ctx, in)
		})),
		"logVisit": mutation(bind(func(ctx context.Context, in visitorPairVars) (interface{}, error) {
			return models.LogVisit(ctx, in.TenantId, in.VisitorId)
		})),
		"banVisitor": adminMutation(bind(func(ctx context.Context, in visitorPairVars) (interface{}, error) {
			return models.BanVisitor(ctx, in.TenantId, in.VisitorId)
		})),
		"makeVisitorPermanent": adminMutation(bind(func(ctx context.Context, in visitorPairVars) (interface{}, error) {
			return models.MakeVisitorPermanent(ctx, in.TenantId, in.VisitorId)
		})),
		"removeBannedVisitor": adminMutation(bind(func(ctx context.Context, in visitorPairVars) (interface{}, error) {
			return models.RemoveBannedVisitor(ctx, in.TenantId, in.VisitorId)
		})),
		"removePermanentVisitor": adminMutation(bind(func(ctx context.Context, in visitorPairVars) (interface{}, error) {
			return models.RemovePermanentVisitor(ctx, in.TenantId, in.VisitorId)
		})),
		"searchVisitors": query(bind(func(ctx context.Context, in searchVars) (interface{}, error) {
			return models.SearchVisitors(ctx, in.Filter)
		})),
		"getVisitorLogs": query(bind(func(ctx context.Context, _ noVars) (interface{}, error) {
			return models.GetVisitorLogs(ctx)
		})),
		"getVisitorLog": query(bind(func(ctx context.Context, in visitorLogVars) (interface{}, error) {
			return getVisitorLog(ctx, in.TenantId, in.VisitorLogId)
		})),
		"getVisitorsByTenantId": query(bind(func(ctx context.Context, in tenantVars) (interface{}, error) {
			return models.GetVisitorsByTenantId(ctx, in.TenantId)
		})),
		"getTenantVisitLogs": query(bind(func(ctx context.Context, in visitorPairVars) (interface{}, error) {
			return models.GetTenantVisitLogs(ctx, in.TenantId, in.VisitorId)
		})),
		"getVisitorAccessHistory": query(bind(func(ctx context.Context, in visitorPairVars) (interface{}, error) {
			return models.GetVisitorAccessHistory(ctx, in.TenantId, in.VisitorId)
		})),

		// packages
		"createPackage": mutation(bind(func(ctx context.Context, in models.NewPackageInput) (interface{}, error) {
			return models.CreatePackage(ctx, in)
		})),
		"deliverPackage": mutation(bind(func(ctx context.Context, in models.DeliverPackageInput) (interface{}, error) {
			return models.DeliverPackage(ctx, in)
		})),
		"getPackages": query(bind(func(ctx context.Context, _ noVars) (interface{}, error) {
			return models.GetPackages(ctx)
		})),
		"getPackageById": query(bind(func(ctx context.Context, in packageVars) (interface{}, error) {
			return getPackageById(ctx, in.PackageId)
		})),
		"getPackagesByTenantId": query(bind(func(ctx context.Context, in tenantVars) (interface{}, error) {
			return models.GetPackagesByTenantId(ctx, in.TenantId)
		})),

		// incidents
		"createIncidentLog": mutation(bind(func(ctx context.Context, in models.NewIncidentInput) (interface{}, error) {
			return models.CreateIncidentLog(ctx, in)
		})),
		"getIncidentLogs": query(bind(func(ctx context.Context, _ noVars) (interface{}, error) {
			return models.GetIncidentLogs(ctx)
		})),
		"getIncidentLog": query(bind(func(ctx context.Context, in incidentLogVars) (interface{}, error) {
			return models.GetIncidentLog(ctx, in.TenantId, in.IncidentLogId)
		})),

		"getCustomFields": query(bind(func(ctx context.Context, _ noVars) (interface{}, error) {
			return models.GetIncidentFields(ctx)
		})),
		"createCustomField": superAdminMutation(bind(func(ctx context.Context, in models.NewIncidentFieldInput) (interface{}, error) {
			return models.CreateIncidentField(ctx, in)
		})),
		"deleteCustomField": superAdminMutation(bind(func(ctx context.Context, in incidentFieldVars) (interface{}, error) {
			return models.DeleteIncidentField(ctx, in.FieldId)
		})),

		// audit
		"getSystemActivities": query(bind(func(ctx context.Context, in activitiesVars) (interface{}, error) {
			return models.GetSystemActivities(ctx, in.Limit, in.After, in.ActivityType)
		})),
		"getSystemActivityById": query(bind(func(ctx context.Context, in activityVars) (interface{}, error) {
			return models.GetSystemActivity(ctx, in.ActivityId)
		})),

		// tenants
		"getTenant": query(bind(func(ctx context.Context, in tenantVars) (interface{}, error) {
			return models.GetTenant(ctx, in.TenantId)
		})),
		"getTenants": query(bind(func(ctx context.Context, _ noVars) (interface{}, error) {
			return models.GetTenants(ctx)
		})),
	}
}
