package graph

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/frontdesk_backend/middlewares"
	"bitbucket.org/mmdatafocus/frontdesk_backend/models"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
)

func getPackageById(ctx context.Context, packageId string) (*models.Package, error) {
	packageId = strings.TrimSpace(packageId)
	if err := utils.RequiredFields(map[string]string{"packageId": packageId}); err != nil {
		return nil, err
	}
	pkg, err := middlewares.GetPackage(ctx, packageId)
	if err != nil {
		return nil, utils.WrapInternal(err, "load package")
	}
	return pkg, nil
}

// getVisitorLog returns the visitor profile with all visits. The tenant only has to exist.
func getVisitorLog(ctx context.Context, tenantId string, visitorLogId string) (*models.VisitorProfile, error) {
	if err := utils.RequiredFields(map[string]string{"tenantId": tenantId, "visitorLogId": visitorLogId}); err != nil {
		return nil, err
	}
	if _, err := middlewares.GetTenant(ctx, tenantId); err != nil {
		return nil, utils.WrapInternal(err, "load tenant")
	}
	visitor, err := middlewares.GetVisitor(ctx, visitorLogId)
	if err != nil {
		return nil, utils.WrapInternal(err, "load visitor")
	}
	return visitor, nil
}
