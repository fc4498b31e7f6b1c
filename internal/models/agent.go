package models

import (
	"time"

	"calldesk/internal/domain"

	"gorm.io/gorm"
)

type Agent struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	AgentNumber  string         `gorm:"uniqueIndex;size:32;not null" json:"agent_number"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	IsAdmin      bool           `gorm:"default:false;index" json:"is_admin"`
	Status       string         `gorm:"size:20;not null;default:'Active';index" json:"status"` // Active | Inactive
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Agent) TableName() string {
	return "agents"
}

func (a *Agent) Role() string {
	if a.IsAdmin {
		return domain.RoleAdmin
	}
	return domain.RoleAgent
}

func (a *Agent) IsActive() bool { return a.Status == domain.AgentActive }
