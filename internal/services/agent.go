package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/normalization"
	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/types"
)

type ProfileInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Bio       string `json:"bio"`
}

// PublicProfile is the shape exposed on /p/:slug. Email, phone and anything
// else private never leave through it.
type PublicProfile struct {
	FullName    string `json:"full_name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
	ProfileSlug string `json:"profile_slug"`
}

type AgentService interface {
	GetMe(ctx context.Context, rd *requestdata.RequestData) (*types.Agent, error)
	UpdateProfile(ctx context.Context, rd *requestdata.RequestData, input ProfileInput) (*types.Agent, error)
	UpdateAvatar(ctx context.Context, rd *requestdata.RequestData, raw []byte) (*types.Agent, error)
	GetPublicProfile(ctx context.Context, slug string) (*PublicProfile, error)
}

type agentService struct {
	log           *logger.Logger
	db            *gorm.DB
	agentRepo     repos.AgentRepo
	avatarService AvatarService
}

func NewAgentService(log *logger.Logger, db *gorm.DB, agentRepo repos.AgentRepo, avatarService AvatarService) AgentService {
	return &agentService{
		log:           log.With("service", "AgentService"),
		db:            db,
		agentRepo:     agentRepo,
		avatarService: avatarService,
	}
}

func (s *agentService) GetMe(ctx context.Context, rd *requestdata.RequestData) (*types.Agent, error) {
	agent, err := s.agentRepo.GetByID(ctx, nil, rd.AgentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ErrNotFound
	}
	return agent, nil
}

func (s *agentService) UpdateProfile(ctx context.Context, rd *requestdata.RequestData, input ProfileInput) (*types.Agent, error) {
	input.FirstName = normalization.TrimInputString(input.FirstName)
	input.LastName = normalization.TrimInputString(input.LastName)
	if input.FirstName == "" {
		return nil, NewValidationError("invalid profile", map[string]string{
			"first_name": "first name is required",
		})
	}

	agent, err := s.GetMe(ctx, rd)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"first_name": input.FirstName,
		"last_name":  input.LastName,
		"phone":      input.Phone,
		"bio":        input.Bio,
	}
	if err := s.agentRepo.UpdateFields(ctx, nil, agent.ID, updates); err != nil {
		return nil, err
	}
	return s.agentRepo.GetByID(ctx, nil, agent.ID)
}

func (s *agentService) UpdateAvatar(ctx context.Context, rd *requestdata.RequestData, raw []byte) (*types.Agent, error) {
	if len(raw) == 0 {
		return nil, NewValidationError("invalid avatar", map[string]string{
			"avatar": "an image file is required",
		})
	}

	agent, err := s.GetMe(ctx, rd)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.avatarService.CreateAndUploadAgentAvatarFromImage(ctx, tx, agent, raw); err != nil {
			return err
		}
		return s.agentRepo.UpdateFields(ctx, tx, agent.ID, map[string]interface{}{
			"avatar_bucket_key": agent.AvatarBucketKey,
			"avatar_url":        agent.AvatarURL,
		})
	})
	if err != nil {
		return nil, err
	}
	return agent, nil
}

func (s *agentService) GetPublicProfile(ctx context.Context, slug string) (*PublicProfile, error) {
	slug = normalization.ParseInputString(slug)
	if slug == "" {
		return nil, ErrNotFound
	}
	agent, err := s.agentRepo.GetBySlug(ctx, nil, slug)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ErrNotFound
	}
	return &PublicProfile{
		FullName:    agent.FirstName + " " + agent.LastName,
		Bio:         agent.Bio,
		AvatarURL:   agent.AvatarURL,
		ProfileSlug: agent.ProfileSlug,
	}, nil
}
