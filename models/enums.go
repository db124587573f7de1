package models

type ActivityType string

const (
	ActivityTypeNewVisitorCreated       ActivityType = "NEW_VISITOR_CREATED"
	ActivityTypeNewVisitorLogged        ActivityType = "NEW_VISITOR_LOGGED"
	ActivityTypeVisitorBanned           ActivityType = "VISITOR_BANNED"
	ActivityTypeVisitorTurnedPermanent  ActivityType = "VISITOR_TURNED_PERMANENT"
	ActivityTypeBannedVisitorRemoved    ActivityType = "BANNED_VISITOR_REMOVED"
	ActivityTypePermanentVisitorRemoved ActivityType = "PERMANENT_VISITOR_REMOVED"
	ActivityTypeNewPackageReceived      ActivityType = "NEW_PACKAGE_RECEIVED"
	ActivityTypePackageDelivered        ActivityType = "PACKAGE_DELIVERED"
	ActivityTypeNewIncidentCreated      ActivityType = "NEW_INCIDENT_CREATED"
)

func (t ActivityType) IsValid() bool {
	switch t {
	case ActivityTypeNewVisitorCreated, ActivityTypeNewVisitorLogged, ActivityTypeVisitorBanned,
		ActivityTypeVisitorTurnedPermanent, ActivityTypeBannedVisitorRemoved, ActivityTypePermanentVisitorRemoved,
		ActivityTypeNewPackageReceived, ActivityTypePackageDelivered, ActivityTypeNewIncidentCreated:
		return true
	}
	return false
}

type VisitorAccessStatus string

const (
	VisitorAccessUnrestricted VisitorAccessStatus = "UNRESTRICTED"
	VisitorAccessPermanent    VisitorAccessStatus = "PERMANENT"
	VisitorAccessBanned       VisitorAccessStatus = "BANNED"
)

type ReferenceType string

const (
	ReferenceTypeVisitor  ReferenceType = "VISITOR"
	ReferenceTypeTenant   ReferenceType = "TENANT"
	ReferenceTypePackage  ReferenceType = "PACKAGE"
	ReferenceTypeIncident ReferenceType = "INCIDENT"
)

type DomainEventType string

const (
	DomainEventActivityRecorded DomainEventType = "ACTIVITY_RECORDED"
	DomainEventIncidentCreated  DomainEventType = "INCIDENT_CREATED"
)

// Domain event statuses (DB values).
const (
	DomainEventStatusPending    = "PENDING"
	DomainEventStatusProcessing = "PROCESSING"
	DomainEventStatusSucceeded  = "SUCCEEDED"
	DomainEventStatusFailed     = "FAILED"
	DomainEventStatusDead       = "DEAD"
)
