package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/frontdesk_backend/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeyToken          = appctx.ContextKeyToken
	ContextKeyUsername       = appctx.ContextKeyUsername
	ContextKeyEmployeeId     = appctx.ContextKeyEmployeeId
	ContextKeyEmployeeName   = appctx.ContextKeyEmployeeName
	ContextKeyOrganizationId = appctx.ContextKeyOrganizationId
	ContextKeyCorrelationId  = appctx.ContextKeyCorrelationId

	ContextKeyIsAdmin               = appctx.ContextKeyIsAdmin
	ContextKeyIsSuperAdmin          = appctx.ContextKeyIsSuperAdmin
	ContextKeySkipOrganizationScope = appctx.ContextKeySkipOrganizationScope
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUsername)
}

func GetEmployeeIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyEmployeeId)
}

func GetEmployeeNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyEmployeeName)
}

func GetOrganizationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyOrganizationId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.Set(ctx, ContextKeyUsername, username)
}

func SetEmployeeIdInContext(ctx context.Context, employeeId string) context.Context {
	return appctx.Set(ctx, ContextKeyEmployeeId, employeeId)
}

func SetEmployeeNameInContext(ctx context.Context, name string) context.Context {
	return appctx.Set(ctx, ContextKeyEmployeeName, name)
}

func SetOrganizationIdInContext(ctx context.Context, organizationId string) context.Context {
	return appctx.Set(ctx, ContextKeyOrganizationId, organizationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetIsAdminFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeyIsAdmin)
}

func SetIsAdminInContext(ctx context.Context, isAdmin bool) context.Context {
	return appctx.Set(ctx, ContextKeyIsAdmin, isAdmin)
}

func GetIsSuperAdminFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeyIsSuperAdmin)
}

func SetIsSuperAdminInContext(ctx context.Context, isSuperAdmin bool) context.Context {
	return appctx.Set(ctx, ContextKeyIsSuperAdmin, isSuperAdmin)
}

func GetSkipOrganizationScopeFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeySkipOrganizationScope)
}

func SetSkipOrganizationScopeInContext(ctx context.Context, skip bool) context.Context {
	return appctx.Set(ctx, ContextKeySkipOrganizationScope, skip)
}

// Actor is the authenticated employee performing the current request.
type Actor struct {
	EmployeeId     string
	Name           string
	OrganizationId string
	IsAdmin        bool
	IsSuperAdmin   bool
}

// SetActorInContext writes every actor key at once. Used by the auth directive, tools and tests.
func SetActorInContext(ctx context.Context, actor Actor) context.Context {
	ctx = SetEmployeeIdInContext(ctx, actor.EmployeeId)
	ctx = SetEmployeeNameInContext(ctx, actor.Name)
	ctx = SetOrganizationIdInContext(ctx, actor.OrganizationId)
	ctx = SetIsAdminInContext(ctx, actor.IsAdmin)
	ctx = SetIsSuperAdminInContext(ctx, actor.IsSuperAdmin)
	return ctx
}

// GetActorFromContext returns the resolved actor, or UNAUTHENTICATED when no employee was resolved.
func GetActorFromContext(ctx context.Context) (*Actor, error) {
	employeeId, ok := GetEmployeeIdFromContext(ctx)
	if !ok || employeeId == "" {
		return nil, NewAuthenticationError("authentication required")
	}
	name, _ := GetEmployeeNameFromContext(ctx)
	orgId, _ := GetOrganizationIdFromContext(ctx)
	isAdmin, _ := GetIsAdminFromContext(ctx)
	isSuperAdmin, _ := GetIsSuperAdminFromContext(ctx)
	return &Actor{
		EmployeeId:     employeeId,
		Name:           name,
		OrganizationId: orgId,
		IsAdmin:        isAdmin,
		IsSuperAdmin:   isSuperAdmin,
	}, nil
}
