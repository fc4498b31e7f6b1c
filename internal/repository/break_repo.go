package repository

import (
	"errors"
	"math"
	"time"

	"calldesk/internal/domain"
	"calldesk/internal/ledger"
	"calldesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrBreakAlreadyOpen is returned when an agent tries to start a break
	// while a previous one is still open.
	ErrBreakAlreadyOpen = errors.New("an open break already exists for this agent")
	// ErrNoOpenBreak is returned by CloseLatestOpen when nothing is open.
	// Callers treat it as a no-op success, not a failure.
	ErrNoOpenBreak = errors.New("no open break found")
)

type BreakRepository struct {
	db *gorm.DB
}

func NewBreakRepository(db *gorm.DB) *BreakRepository {
	return &BreakRepository{db: db}
}

// Create appends a status row to the ledger. Starting a break is rejected
// while another break is still open, so the invariant "at most one open
// break per agent" holds at the serialization point, not just in clients.
func (r *BreakRepository) Create(rec *models.BreakRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if rec.Status == domain.StatusBreak {
			// Locking read: under MySQL's REPEATABLE READ a plain SELECT
			// takes no locks, so two concurrent starts would both count
			// zero open rows and both insert. FOR UPDATE holds the
			// agent_number index range until commit; SQLite drops the
			// clause and serializes writers on its own.
			var open int64
			err := tx.Model(&models.BreakRecord{}).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("agent_number = ? AND status = ? AND break_end IS NULL", rec.AgentNumber, domain.StatusBreak).
				Count(&open).Error
			if err != nil {
				return err
			}
			if open > 0 {
				return ErrBreakAlreadyOpen
			}
		}
		return tx.Create(rec).Error
	})
}

// CloseLatestOpen closes the most recent open break for the agent by setting
// break_end and duration_seconds. The update is guarded on break_end still
// being null, so a concurrent close cannot close the same row twice.
func (r *BreakRepository) CloseLatestOpen(agentNumber string, end time.Time) (*models.BreakRecord, error) {
	var rec models.BreakRecord
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("agent_number = ? AND status = ? AND break_end IS NULL", agentNumber, domain.StatusBreak).
			Order("break_start DESC").
			First(&rec).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoOpenBreak
			}
			return err
		}
		// Duration is recomputed here from the stored start, never trusted
		// from the client.
		start := rec.CreatedAt
		if rec.BreakStart != nil {
			start = *rec.BreakStart
		}
		duration := int64(math.Round(end.Sub(start).Seconds()))
		res := tx.Model(&models.BreakRecord{}).
			Where("id = ? AND break_end IS NULL", rec.ID).
			Updates(map[string]interface{}{
				"break_end":        end,
				"duration_seconds": duration,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoOpenBreak
		}
		rec.BreakEnd = &end
		rec.DurationSeconds = &duration
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecords returns all ledger rows joined with agent identity, newest
// break first. search filters by agent number or name substring.
func (r *BreakRepository) ListRecords(search string) ([]ledger.Record, error) {
	q := r.db.Table("agent_breaks ab").
		Select("ab.id, ab.agent_number, a.name, a.email, ab.status, ab.break_start, ab.break_end, ab.duration_seconds, ab.remark, ab.created_at").
		Joins("JOIN agents a ON ab.agent_number = a.agent_number")
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("a.name LIKE ? OR ab.agent_number LIKE ?", like, like)
	}
	var rows []ledger.Record
	err := q.Order("ab.break_start DESC").Scan(&rows).Error
	return rows, err
}

// StatusRow is one agent's derived presence, as served by current-status.
type StatusRow struct {
	AgentNumber   string     `json:"agent_number"`
	CurrentStatus string     `json:"current_status"`
	BreakStart    *time.Time `json:"break_start"`
	BreakEnd      *time.Time `json:"break_end"`
}

// CurrentStatus derives the presence snapshot for the given agents: the
// status of each agent's latest row, Break only while that row is an open
// break, Working otherwise (including agents with no rows at all).
func (r *BreakRepository) CurrentStatus(agents []models.Agent) (map[string]string, []StatusRow, error) {
	snapshot := make(map[string]string, len(agents))
	rows := make([]StatusRow, 0, len(agents))
	if len(agents) == 0 {
		return snapshot, rows, nil
	}

	numbers := make([]string, len(agents))
	for i, a := range agents {
		numbers[i] = a.AgentNumber
	}
	// One query: the highest-id row per agent is the latest write, the
	// ledger being append-mostly.
	latestIDs := r.db.Model(&models.BreakRecord{}).
		Select("MAX(id)").
		Where("agent_number IN ?", numbers).
		Group("agent_number")
	var recs []models.BreakRecord
	if err := r.db.Where("id IN (?)", latestIDs).Find(&recs).Error; err != nil {
		return nil, nil, err
	}
	latest := make(map[string]*models.BreakRecord, len(recs))
	for i := range recs {
		latest[recs[i].AgentNumber] = &recs[i]
	}

	for _, a := range agents {
		row := StatusRow{AgentNumber: a.AgentNumber, CurrentStatus: domain.StatusWorking}
		if rec := latest[a.AgentNumber]; rec != nil {
			row.BreakStart = rec.BreakStart
			row.BreakEnd = rec.BreakEnd
			if rec.Open() {
				row.CurrentStatus = domain.StatusBreak
			}
		}
		snapshot[a.AgentNumber] = row.CurrentStatus
		rows = append(rows, row)
	}
	return snapshot, rows, nil
}
