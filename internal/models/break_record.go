package models

import (
	"time"

	"calldesk/internal/domain"
)

// BreakRecord is one row of the append-mostly presence ledger. A row is
// written for every status transition; only an open break row (status Break,
// break_end null) is ever mutated again, exactly once, to close it.
type BreakRecord struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	AgentNumber     string     `gorm:"size:32;not null;index" json:"agent_number"`
	Status          string     `gorm:"size:20;not null" json:"status"` // Working | Break
	BreakStart      *time.Time `gorm:"index" json:"break_start"`
	BreakEnd        *time.Time `json:"break_end"`
	DurationSeconds *int64     `json:"duration_seconds"`
	Remark          string     `gorm:"size:512" json:"remark"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (BreakRecord) TableName() string {
	return "agent_breaks"
}

// Open reports whether this row is a break that has not been closed yet.
func (r *BreakRecord) Open() bool {
	return r.Status == domain.StatusBreak && r.BreakEnd == nil
}

// LedgerDay returns the calendar day the record belongs to: the day of
// break_start when present, otherwise the day the row was created.
func (r *BreakRecord) LedgerDay() time.Time {
	if r.BreakStart != nil {
		return *r.BreakStart
	}
	return r.CreatedAt
}
