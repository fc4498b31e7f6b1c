package repository

import (
	"calldesk/internal/domain"
	"calldesk/internal/models"

	"gorm.io/gorm"
)

type AgentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

func (r *AgentRepository) Create(a *models.Agent) error {
	return r.db.Create(a).Error
}

func (r *AgentRepository) GetByAgentNumber(agentNumber string) (*models.Agent, error) {
	var a models.Agent
	err := r.db.Where("agent_number = ?", agentNumber).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AgentRepository) GetByID(id uint) (*models.Agent, error) {
	var a models.Agent
	err := r.db.First(&a, id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListActiveAgents returns active non-admin agents, ordered by agent number.
// The presence snapshot is built over exactly this set.
func (r *AgentRepository) ListActiveAgents() ([]models.Agent, error) {
	var agents []models.Agent
	err := r.db.
		Where("status = ? AND is_admin = ?", domain.AgentActive, false).
		Order("agent_number").
		Find(&agents).Error
	return agents, err
}
