package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Employee is a front-desk user. Only read here, to resolve the request actor.
type Employee struct {
	ID             string    `gorm:"primary_key;size:36" json:"id"`
	OrganizationId string    `gorm:"size:36;not null;index" json:"organizationId"`
	Username       string    `gorm:"size:100;not null;uniqueIndex" json:"username"`
	FirstName      string    `gorm:"size:100;not null" json:"firstName"`
	LastName       string    `gorm:"size:100" json:"lastName"`
	Email          string    `gorm:"size:100" json:"email"`
	Password       string    `gorm:"size:255;not null" json:"-"`
	IsAdmin        bool      `gorm:"not null;default:false" json:"isAdmin"`
	IsSuperAdmin   bool      `gorm:"not null;default:false" json:"isSuperAdmin"`
	IsActive       *bool     `gorm:"not null;default:true" json:"isActive"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

const employeeCacheTTL = 30 * time.Minute

/*
caches:
	Employee:$username
*/

func employeeCacheKey(username string) string {
	return "Employee:" + username
}

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.NewId()
	}
	return nil
}

func (e Employee) FullName() string {
	return fullName(e.FirstName, e.LastName)
}

func (e Employee) Active() bool {
	return e.IsActive == nil || *e.IsActive
}

func (e Employee) RemoveInstanceRedis() error {
	return config.RemoveRedisKey(employeeCacheKey(e.Username))
}

// GetEmployeeByUsername reads through the redis cache. Cache failures are logged and ignored.
func GetEmployeeByUsername(ctx context.Context, username string) (*Employee, error) {
	logger := config.GetLogger()
	var cached Employee
	exists, err := config.GetRedisObject(employeeCacheKey(username), &cached)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "GetEmployeeByUsername", "username": username}).
			Warn("employee cache read failed: " + err.Error())
	}
	if exists && cached.ID != "" {
		return &cached, nil
	}

	db, err := getDB()
	if err != nil {
		return nil, err
	}
	var employee Employee
	if err := db.WithContext(ctx).Where("username = ?", username).Take(&employee).Error; err != nil {
		return nil, notFoundOr(err, "employee not found")
	}
	if err := config.SetRedisObject(employeeCacheKey(username), &employee, employeeCacheTTL); err != nil {
		logger.WithFields(logrus.Fields{"field": "GetEmployeeByUsername", "username": username}).
			Warn("employee cache write failed: " + err.Error())
	}
	return &employee, nil
}

func GetEmployeeById(ctx context.Context, id string) (*Employee, error) {
	db, err := getDB()
	if err != nil {
		return nil, err
	}
	employee, err := utils.FetchModel[Employee](ctx, db, id)
	if err != nil {
		return nil, notFoundOr(err, "employee not found")
	}
	return employee, nil
}
