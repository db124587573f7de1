package directives

import (
	"context"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/middlewares"
	"bitbucket.org/mmdatafocus/frontdesk_backend/models"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/sirupsen/logrus"
)

// Resolver is the operation body a directive wraps.
type Resolver func(ctx context.Context) (interface{}, error)

// retrieve employee from the session username or the bearer claims
func getEmployee(ctx context.Context) (*models.Employee, error) {
	if username, ok := utils.GetUsernameFromContext(ctx); ok && username != "" {
		employee, err := models.GetEmployeeByUsername(ctx, username)
		if utils.IsErrorKind(err, utils.ErrorKindNotFound) {
			// destroy current session if the employee has been deleted
			if token, ok := utils.GetTokenFromContext(ctx); ok && token != "" {
				if rmErr := config.RemoveRedisKey("Token:" + token); rmErr != nil {
					config.GetLogger().WithFields(logrus.Fields{"field": "getEmployee"}).
						Warn("could not remove stale session: " + rmErr.Error())
				}
			}
		}
		return employee, err
	}
	if claims := middlewares.CtxValue(ctx); claims != nil {
		return models.GetEmployeeById(ctx, claims.EmployeeId)
	}
	return nil, utils.NewAuthenticationError("Access Denied")
}

// ResolveActor attaches the acting employee to ctx. An actor already in ctx is reused.
func ResolveActor(ctx context.Context) (context.Context, *utils.Actor, error) {
	if actor, err := utils.GetActorFromContext(ctx); err == nil {
		return ctx, actor, nil
	}

	employee, err := getEmployee(ctx)
	if err != nil {
		if utils.IsErrorKind(err, utils.ErrorKindNotFound) {
			return ctx, nil, utils.NewAuthenticationError("Access Denied")
		}
		return ctx, nil, err
	}
	if !employee.Active() {
		return ctx, nil, utils.NewForbiddenError("Employee is disabled")
	}

	actor := utils.Actor{
		EmployeeId:     employee.ID,
		Name:           employee.FullName(),
		OrganizationId: employee.OrganizationId,
		IsAdmin:        employee.IsAdmin || employee.IsSuperAdmin,
		IsSuperAdmin:   employee.IsSuperAdmin,
	}
	ctx = utils.SetActorInContext(ctx, actor)
	return ctx, &actor, nil
}

// Auth requires any active employee.
func Auth(ctx context.Context, next Resolver) (interface{}, error) {
	ctx, _, err := ResolveActor(ctx)
	if err != nil {
		return nil, err
	}
	return next(ctx)
}

// AdminOnly requires an admin when ACCESS_LIST_REQUIRES_ADMIN is on, otherwise behaves like Auth.
func AdminOnly(ctx context.Context, next Resolver) (interface{}, error) {
	ctx, actor, err := ResolveActor(ctx)
	if err != nil {
		return nil, err
	}
	if config.AccessListRequiresAdmin() && !actor.IsAdmin && !actor.IsSuperAdmin {
		return nil, utils.NewForbiddenError("Unauthorized")
	}
	return next(ctx)
}

// SuperAdminOnly requires a super admin regardless of ACCESS_LIST_REQUIRES_ADMIN.
func SuperAdminOnly(ctx context.Context, next Resolver) (interface{}, error) {
	ctx, actor, err := ResolveActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin {
		return nil, utils.NewForbiddenError("Unauthorized. Operation not allowed")
	}
	return next(ctx)
}
