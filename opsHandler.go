package main

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/directives"
	"bitbucket.org/mmdatafocus/frontdesk_backend/models"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type eventReplayRequest struct {
	EventId string `json:"event_id"`
}

func httpStatusFor(err error) int {
	switch utils.ErrorKindOf(err) {
	case utils.ErrorKindValidation:
		return http.StatusBadRequest
	case utils.ErrorKindNotFound:
		return http.StatusNotFound
	case utils.ErrorKindConflict:
		return http.StatusConflict
	case utils.ErrorKindAuthentication:
		return http.StatusUnauthorized
	case utils.ErrorKindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// eventReplayHandler moves a DEAD domain event back to FAILED. Admins only, regardless of the access list flag.
func eventReplayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, actor, err := directives.ResolveActor(c.Request.Context())
		if err != nil {
			c.JSON(httpStatusFor(err), gin.H{"error": err.Error()})
			return
		}
		if !actor.IsAdmin && !actor.IsSuperAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
			return
		}

		var req eventReplayRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.EventId) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event_id is required"})
			return
		}

		rec, err := models.ReplayDeadDomainEvent(ctx, config.GetDB(), strings.TrimSpace(req.EventId))
		if err != nil {
			if utils.IsErrorKind(err, utils.ErrorKindInternal) {
				config.LogError(config.GetLogger(), "opsHandler.go", "eventReplayHandler", "ReplayDeadDomainEvent", req, err)
				_ = c.Error(err)
			}
			c.JSON(httpStatusFor(err), gin.H{"error": err.Error()})
			return
		}

		cid, _ := utils.GetCorrelationIdFromContext(ctx)
		config.GetLogger().WithFields(logrus.Fields{
			"field":          "eventReplayHandler",
			"event_id":       rec.EventId,
			"employee_id":    actor.EmployeeId,
			"correlation_id": cid,
		}).Info("domain event replayed")
		c.JSON(http.StatusOK, gin.H{
			"event_id":        rec.EventId,
			"status":          rec.Status,
			"next_attempt_at": rec.NextAttemptAt,
			"correlation_id":  cid,
		})
	}
}
