package handler

import (
	"errors"
	"net/http"
	"time"

	"calldesk/internal/domain"
	"calldesk/internal/ledger"
	"calldesk/internal/logger"
	"calldesk/internal/middleware"
	"calldesk/internal/models"
	"calldesk/internal/repository"
	"calldesk/internal/ws"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
)

const snapshotCacheKey = "current-status:all"

type BreakHandler struct {
	repo      *repository.BreakRepository
	agentRepo *repository.AgentRepository
	hub       *ws.StatusHub
	cache     *gocache.Cache
}

func NewBreakHandler(repo *repository.BreakRepository, agentRepo *repository.AgentRepository, hub *ws.StatusHub, snapshotTTL time.Duration) *BreakHandler {
	return &BreakHandler{
		repo:      repo,
		agentRepo: agentRepo,
		hub:       hub,
		cache:     gocache.New(snapshotTTL, 2*snapshotTTL),
	}
}

type breakRequest struct {
	AgentNumber     string     `json:"agent_number" binding:"required"`
	Status          string     `json:"status" binding:"required,oneof=Working Break"`
	BreakStart      *time.Time `json:"break_start"`
	BreakEnd        *time.Time `json:"break_end"`
	DurationSeconds *int64     `json:"duration_seconds"`
	Remark          string     `json:"remark"`
}

type closeRequest struct {
	AgentNumber string     `json:"agent_number" binding:"required"`
	BreakEnd    *time.Time `json:"break_end"`
}

// ownStream rejects writes to another agent's ledger. Admins are exempt.
func (h *BreakHandler) ownStream(c *gin.Context, agentNumber string) bool {
	if middleware.GetRole(c) == domain.RoleAdmin {
		return true
	}
	if middleware.GetAgentNumber(c) != agentNumber {
		c.JSON(http.StatusForbidden, gin.H{"message": "cannot write another agent's status"})
		return false
	}
	return true
}

// Create records a status transition: a break start (open row) or a plain
// working/status log with no time fields.
func (h *BreakHandler) Create(c *gin.Context) {
	var req breakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "agent_number and a valid status are required"})
		return
	}
	if !h.ownStream(c, req.AgentNumber) {
		return
	}
	rec := &models.BreakRecord{
		AgentNumber: req.AgentNumber,
		Status:      req.Status,
		Remark:      req.Remark,
	}
	if req.Status == domain.StatusBreak {
		if req.Remark == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "remark is required when starting a break"})
			return
		}
		start := time.Now()
		if req.BreakStart != nil {
			start = *req.BreakStart
		}
		rec.BreakStart = &start
	}
	// Working rows never carry time fields, whatever the client sent.
	if err := h.repo.Create(rec); err != nil {
		if errors.Is(err, repository.ErrBreakAlreadyOpen) {
			c.JSON(http.StatusConflict, gin.H{"message": "a break is already open for this agent"})
			return
		}
		logger.L.WithError(err).Error("create break record failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to record status"})
		return
	}
	h.cache.Delete(snapshotCacheKey)
	h.hub.BroadcastStatus(rec.AgentNumber, rec.Status)
	c.JSON(http.StatusCreated, gin.H{"message": "Break/working status recorded successfully"})
}

// Close ends the latest open break. Closing when nothing is open is a no-op
// success so rapid toggles and retries stay idempotent.
func (h *BreakHandler) Close(c *gin.Context) {
	var req closeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "agent_number is required"})
		return
	}
	if !h.ownStream(c, req.AgentNumber) {
		return
	}
	end := time.Now()
	if req.BreakEnd != nil {
		end = *req.BreakEnd
	}
	rec, err := h.repo.CloseLatestOpen(req.AgentNumber, end)
	if err != nil {
		if errors.Is(err, repository.ErrNoOpenBreak) {
			c.JSON(http.StatusOK, gin.H{"message": "no open break"})
			return
		}
		logger.L.WithError(err).Error("close break failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to close break"})
		return
	}
	h.cache.Delete(snapshotCacheKey)
	h.hub.BroadcastStatus(req.AgentNumber, domain.StatusWorking)
	c.JSON(http.StatusOK, gin.H{"message": "Break closed successfully", "duration_seconds": rec.DurationSeconds})
}

// Ledger serves the date-grouped break history, optionally filtered by an
// agent number or name search term. Admin only.
func (h *BreakHandler) Ledger(c *gin.Context) {
	rows, err := h.repo.ListRecords(c.Query("search"))
	if err != nil {
		logger.L.WithError(err).Error("ledger query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to load break records"})
		return
	}
	days := ledger.GroupByDay(rows)
	if len(days) == 0 {
		// Explicit empty state: a blank table must mean "no records", not
		// "the fetch failed".
		c.JSON(http.StatusOK, gin.H{"breaks": []ledger.Day{}, "message": "no records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"breaks": days})
}

type snapshotResponse struct {
	CurrentStatus map[string]string      `json:"current_status"`
	Rows          []repository.StatusRow `json:"rows"`
}

// CurrentStatus returns the presence snapshot. Admins get all active
// non-admin agents; agents get only their own row. The admin snapshot is
// cached briefly since every admin client polls it on an interval.
func (h *BreakHandler) CurrentStatus(c *gin.Context) {
	if middleware.GetRole(c) != domain.RoleAdmin {
		agentNumber := middleware.GetAgentNumber(c)
		a, err := h.agentRepo.GetByAgentNumber(agentNumber)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to load agent"})
			return
		}
		snapshot, rows, err := h.repo.CurrentStatus([]models.Agent{*a})
		if err != nil {
			logger.L.WithError(err).Error("current-status query failed")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to load current status"})
			return
		}
		c.JSON(http.StatusOK, snapshotResponse{CurrentStatus: snapshot, Rows: rows})
		return
	}
	if cached, ok := h.cache.Get(snapshotCacheKey); ok {
		c.JSON(http.StatusOK, cached.(snapshotResponse))
		return
	}
	agents, err := h.agentRepo.ListActiveAgents()
	if err != nil {
		logger.L.WithError(err).Error("agent list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to load agents"})
		return
	}
	snapshot, rows, err := h.repo.CurrentStatus(agents)
	if err != nil {
		logger.L.WithError(err).Error("current-status query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to load current status"})
		return
	}
	resp := snapshotResponse{CurrentStatus: snapshot, Rows: rows}
	h.cache.SetDefault(snapshotCacheKey, resp)
	c.JSON(http.StatusOK, resp)
}
