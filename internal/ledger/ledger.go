// Package ledger reconciles raw break records into the date-grouped view
// served to admins: records bucketed by calendar day, newest day and newest
// break first, with a per-day total of closed break minutes.
package ledger

import (
	"math"
	"sort"
	"time"

	"calldesk/internal/domain"
)

// Record is one ledger row joined with agent identity.
type Record struct {
	ID              uint       `json:"id"`
	AgentNumber     string     `json:"agent_number"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Status          string     `json:"status"`
	BreakStart      *time.Time `json:"break_start"`
	BreakEnd        *time.Time `json:"break_end"`
	DurationSeconds *int64     `json:"duration_seconds"`
	Remark          string     `json:"remark"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Ongoing reports whether the record is a break that has not been closed.
// Ongoing records display as "Ongoing" and contribute nothing to day totals.
func (r Record) Ongoing() bool {
	return r.Status == domain.StatusBreak && r.BreakEnd == nil
}

// Minutes returns the record's closed-break duration in whole minutes,
// rounded half-up. ok is false for ongoing breaks and plain status rows.
func (r Record) Minutes() (minutes int, ok bool) {
	if r.Ongoing() || r.DurationSeconds == nil {
		return 0, false
	}
	return RoundMinutes(*r.DurationSeconds), true
}

// day returns the calendar day the record is bucketed under.
func (r Record) day() time.Time {
	if r.BreakStart != nil {
		return *r.BreakStart
	}
	return r.CreatedAt
}

// sortKey orders records within a day, most recent first.
func (r Record) sortKey() time.Time {
	return r.day()
}

// RoundMinutes converts whole seconds to whole minutes, rounding half-up.
func RoundMinutes(seconds int64) int {
	return int(math.Round(float64(seconds) / 60))
}

// Day is one calendar day of an agent ledger.
type Day struct {
	Date         string   `json:"date"` // YYYY-MM-DD
	TotalMinutes int      `json:"total_minutes"`
	Records      []Record `json:"records"`
}

// GroupByDay buckets records by calendar day, orders days descending and
// records within a day by recency (stable on equal timestamps), and computes
// each day's total minutes.
func GroupByDay(records []Record) []Day {
	buckets := make(map[string][]Record)
	for _, r := range records {
		key := r.day().Format("2006-01-02")
		buckets[key] = append(buckets[key], r)
	}
	days := make([]Day, 0, len(buckets))
	for date, recs := range buckets {
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].sortKey().After(recs[j].sortKey())
		})
		days = append(days, Day{
			Date:         date,
			TotalMinutes: DayTotalMinutes(recs),
			Records:      recs,
		})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date > days[j].Date
	})
	return days
}

// DayTotalMinutes sums the rounded minutes of each closed break. Rounding
// happens per record before summing so the total always matches the per-row
// minute display; summing raw seconds first would disagree with it.
func DayTotalMinutes(records []Record) int {
	total := 0
	for _, r := range records {
		if m, ok := r.Minutes(); ok {
			total += m
		}
	}
	return total
}
