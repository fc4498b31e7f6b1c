package service

import (
	"errors"
	"fmt"

	"calldesk/config"
	"calldesk/internal/auth"
	"calldesk/internal/models"
	"calldesk/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCreds  = errors.New("invalid agent number or password")
	ErrAgentInactive = errors.New("agent account is inactive")
)

type AuthService struct {
	cfg       *config.Config
	agentRepo *repository.AgentRepository
}

func NewAuthService(cfg *config.Config, agentRepo *repository.AgentRepository) *AuthService {
	return &AuthService{cfg: cfg, agentRepo: agentRepo}
}

func (s *AuthService) Login(agentNumber, password string) (*models.Agent, string, string, error) {
	a, err := s.agentRepo.GetByAgentNumber(agentNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", ErrInvalidCreds
		}
		return nil, "", "", err
	}
	if !a.IsActive() {
		return nil, "", "", ErrAgentInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", ErrInvalidCreds
	}
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, a.ID, a.AgentNumber, a.Role())
	if err != nil {
		return nil, "", "", err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, a.ID)
	if err != nil {
		return nil, "", "", err
	}
	return a, access, refresh, nil
}

func (s *AuthService) RefreshToken(refreshToken string) (access, refresh string, err error) {
	token, err := jwt.ParseWithClaims(refreshToken, &jwt.RegisteredClaims{}, func(_ *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.RefreshSecret), nil
	})
	if err != nil || !token.Valid {
		return "", "", auth.ErrInvalidToken
	}
	claims := token.Claims.(*jwt.RegisteredClaims)
	var agentID uint
	fmt.Sscanf(claims.Subject, "%d", &agentID)
	a, err := s.agentRepo.GetByID(agentID)
	if err != nil {
		return "", "", err
	}
	if !a.IsActive() {
		return "", "", ErrAgentInactive
	}
	access, _ = auth.GenerateAccessToken(&s.cfg.JWT, a.ID, a.AgentNumber, a.Role())
	refresh, _ = auth.GenerateRefreshToken(&s.cfg.JWT, a.ID)
	return access, refresh, nil
}
