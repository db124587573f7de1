package models

import (
	"context"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Activity is one audit trail entry. Rows are only ever appended.
type Activity struct {
	ID             int           `gorm:"primary_key" json:"id"`
	EventId        string        `gorm:"size:36;not null;uniqueIndex" json:"eventId"`
	OrganizationId string        `gorm:"size:36;not null;index" json:"organizationId"`
	ActivityType   ActivityType  `gorm:"size:50;not null;index" json:"activityType"`
	CreatedByName  string        `gorm:"size:200" json:"createdBy"`
	CreatedAt      time.Time     `gorm:"not null;index" json:"createdAt"`
	EmployeeId     string        `gorm:"size:36;index" json:"employeeId"`
	Message        string        `gorm:"type:text" json:"message"`
	ReferenceId    string        `gorm:"size:36;index" json:"referenceId"`
	ReferenceType  ReferenceType `gorm:"size:20" json:"referenceType"`
}

type NewActivity struct {
	EventId        string        `json:"eventId" validate:"required"`
	OrganizationId string        `json:"organizationId"`
	ActivityType   ActivityType  `json:"activityType" validate:"required"`
	CreatedByName  string        `json:"createdBy"`
	CreatedAt      time.Time     `json:"createdAt"`
	EmployeeId     string        `json:"employeeId"`
	Message        string        `json:"message"`
	ReferenceId    string        `json:"referenceId"`
	ReferenceType  ReferenceType `json:"referenceType"`
}

type ActivityEdge struct {
	Cursor string    `json:"cursor"`
	Node   *Activity `json:"node"`
}

type ActivitiesConnection struct {
	Edges    []*ActivityEdge `json:"edges"`
	PageInfo *PageInfo       `json:"pageInfo"`
}

// RecordActivity appends the entry for input.EventId. A second delivery of the same event
// appends nothing and returns the existing row.
func RecordActivity(ctx context.Context, db *gorm.DB, input NewActivity) (*Activity, error) {
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	if !input.ActivityType.IsValid() {
		return nil, utils.NewValidationError("invalid activity type", map[string]string{"activityType": "activityType is invalid"})
	}
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = now()
	}
	activity := Activity{
		EventId:        input.EventId,
		OrganizationId: input.OrganizationId,
		ActivityType:   input.ActivityType,
		CreatedByName:  input.CreatedByName,
		CreatedAt:      createdAt.UTC(),
		EmployeeId:     input.EmployeeId,
		Message:        input.Message,
		ReferenceId:    input.ReferenceId,
		ReferenceType:  input.ReferenceType,
	}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(&activity).Error; err != nil {
		return nil, utils.WrapInternal(err, "record activity")
	}

	var stored Activity
	if err := db.WithContext(ctx).Where("event_id = ?", input.EventId).Take(&stored).Error; err != nil {
		return nil, utils.WrapInternal(err, "load recorded activity")
	}
	return &stored, nil
}

// GetSystemActivities lists activities newest first using keyset pagination on id.
func GetSystemActivities(ctx context.Context, limit *int, after *string, activityType *ActivityType) (*ActivitiesConnection, error) {
	db, err := getDB()
	if err != nil {
		return nil, err
	}
	afterId, err := DecodeCursor(after)
	if err != nil {
		return nil, err
	}
	size := pageSize(limit)

	dbCtx := db.WithContext(ctx)
	if afterId > 0 {
		dbCtx = dbCtx.Where("id < ?", afterId)
	}
	if activityType != nil && *activityType != "" {
		if !activityType.IsValid() {
			return nil, utils.NewValidationError("invalid activity type", map[string]string{"activityType": "activityType is invalid"})
		}
		dbCtx = dbCtx.Where("activity_type = ?", *activityType)
	}

	var rows []*Activity
	if err := dbCtx.Order("id DESC").Limit(size + 1).Find(&rows).Error; err != nil {
		return nil, utils.WrapInternal(err, "list activities")
	}

	hasNext := len(rows) > size
	if hasNext {
		rows = rows[:size]
	}
	conn := &ActivitiesConnection{
		Edges:    make([]*ActivityEdge, 0, len(rows)),
		PageInfo: &PageInfo{HasNextPage: hasNext},
	}
	for _, row := range rows {
		conn.Edges = append(conn.Edges, &ActivityEdge{Cursor: EncodeCursor(row.ID), Node: row})
	}
	if len(conn.Edges) > 0 {
		conn.PageInfo.StartCursor = conn.Edges[0].Cursor
		conn.PageInfo.EndCursor = conn.Edges[len(conn.Edges)-1].Cursor
	}
	return conn, nil
}

func GetSystemActivity(ctx context.Context, activityId string) (*Activity, error) {
	if err := utils.RequiredFields(map[string]string{"activityId": activityId}); err != nil {
		return nil, err
	}
	id, err := strconv.Atoi(activityId)
	if err != nil {
		return nil, utils.NewNotFoundError("activity not found")
	}
	db, err := getDB()
	if err != nil {
		return nil, err
	}
	var activity Activity
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&activity).Error; err != nil {
		return nil, notFoundOr(err, "activity not found")
	}
	return &activity, nil
}
