package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/normalization"
	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/types"
)

type JWTClaims struct {
	jwt.RegisteredClaims
}

type AuthService interface {
	RegisterAgent(ctx context.Context, agent *types.Agent) error
	LoginAgent(ctx context.Context, email, password string) (string, string, error)
	RefreshAgent(ctx context.Context) (string, string, error)
	LogoutAgent(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db             *gorm.DB
	log            *logger.Logger
	agentRepo      repos.AgentRepo
	agentTokenRepo repos.AgentTokenRepo
	avatarService  AvatarService
	jwtSecretKey   string
	accessTTL      time.Duration
	refreshTTL     time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	agentRepo repos.AgentRepo,
	agentTokenRepo repos.AgentTokenRepo,
	avatarService AvatarService,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:             db,
		log:            serviceLog,
		agentRepo:      agentRepo,
		agentTokenRepo: agentTokenRepo,
		avatarService:  avatarService,
		jwtSecretKey:   jwtSecretKey,
		accessTTL:      accessTTL,
		refreshTTL:     refreshTTL,
	}
}

func (as *authService) RegisterAgent(ctx context.Context, agent *types.Agent) error {
	agent.Email = normalization.ParseInputString(agent.Email)
	agent.FirstName = normalization.TrimInputString(agent.FirstName)
	agent.LastName = normalization.TrimInputString(agent.LastName)

	fields := map[string]string{}
	if agent.Email == "" || !strings.Contains(agent.Email, "@") {
		fields["email"] = "a valid email is required"
	}
	if len(agent.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if agent.FirstName == "" {
		fields["first_name"] = "first name is required"
	}
	if len(fields) > 0 {
		return NewValidationError("invalid registration", fields)
	}

	exists, err := as.agentRepo.EmailExists(ctx, nil, agent.Email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return NewValidationError("email already registered", map[string]string{"email": "already in use"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(agent.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	agent.Password = string(hashed)

	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agent.ID = uuid.New()
		slug, sErr := as.uniqueSlug(ctx, tx, agent.FirstName, agent.LastName)
		if sErr != nil {
			return sErr
		}
		agent.ProfileSlug = slug
		if as.avatarService != nil {
			if aErr := as.avatarService.CreateAndUploadAgentAvatar(ctx, tx, agent); aErr != nil {
				return fmt.Errorf("create agent avatar: %w", aErr)
			}
		}
		if _, cErr := as.agentRepo.Create(ctx, tx, []*types.Agent{agent}); cErr != nil {
			return fmt.Errorf("create agent: %w", cErr)
		}
		return nil
	})
}

func (as *authService) uniqueSlug(ctx context.Context, tx *gorm.DB, firstName, lastName string) (string, error) {
	base := normalization.ParseInputString(firstName + " " + lastName)
	base = strings.ReplaceAll(base, " ", "-")
	if base == "" || base == "-" {
		base = "agente"
	}
	slug := base
	for i := 2; ; i++ {
		exists, err := as.agentRepo.SlugExists(ctx, tx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func (as *authService) LoginAgent(ctx context.Context, email, password string) (string, string, error) {
	email = normalization.ParseInputString(email)
	if email == "" || password == "" {
		return "", "", NewValidationError("invalid login", map[string]string{
			"credentials": "email and password are required",
		})
	}

	agent, err := as.agentRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return "", "", fmt.Errorf("load agent by email: %w", err)
	}
	if agent == nil {
		return "", "", ErrUnauthorized
	}
	if hErr := bcrypt.CompareHashAndPassword([]byte(agent.Password), []byte(password)); hErr != nil {
		return "", "", ErrUnauthorized
	}

	var accessToken string
	var refreshToken string
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dErr := as.agentTokenRepo.DeleteExpired(ctx, tx); dErr != nil {
			return fmt.Errorf("prune expired tokens: %w", dErr)
		}
		tok, genErr := as.generateAccessToken(agent)
		if genErr != nil {
			return fmt.Errorf("generate access token: %w", genErr)
		}
		accessToken = tok
		refreshToken = uuid.New().String()
		agentToken := types.AgentToken{
			ID:           uuid.New(),
			AgentID:      agent.ID,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if _, cErr := as.agentTokenRepo.Create(ctx, tx, []*types.AgentToken{&agentToken}); cErr != nil {
			return fmt.Errorf("create agent token: %w", cErr)
		}
		return nil
	}); err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) RefreshAgent(ctx context.Context) (string, string, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.RefreshToken == "" {
		return "", "", ErrUnauthorized
	}

	var accessToken string
	var newRefreshToken string
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, ftErr := as.agentTokenRepo.GetByRefreshToken(ctx, tx, rd.RefreshToken)
		if ftErr != nil {
			return fmt.Errorf("load refresh token: %w", ftErr)
		}
		if existing == nil {
			return ErrUnauthorized
		}
		if existing.ExpiresAt.Before(time.Now()) {
			if dErr := as.agentTokenRepo.DeleteByRefreshToken(ctx, tx, rd.RefreshToken); dErr != nil {
				return fmt.Errorf("delete expired refresh token: %w", dErr)
			}
			return ErrUnauthorized
		}
		agent, aErr := as.agentRepo.GetByID(ctx, tx, existing.AgentID)
		if aErr != nil {
			return fmt.Errorf("load agent for refresh: %w", aErr)
		}
		if agent == nil {
			return ErrUnauthorized
		}
		tok, genErr := as.generateAccessToken(agent)
		if genErr != nil {
			return fmt.Errorf("generate access token: %w", genErr)
		}
		accessToken = tok
		newRefreshToken = uuid.New().String()
		newToken := types.AgentToken{
			ID:           uuid.New(),
			AgentID:      agent.ID,
			AccessToken:  accessToken,
			RefreshToken: newRefreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if _, cErr := as.agentTokenRepo.Create(ctx, tx, []*types.AgentToken{&newToken}); cErr != nil {
			return fmt.Errorf("create agent token: %w", cErr)
		}
		if dErr := as.agentTokenRepo.DeleteByRefreshToken(ctx, tx, rd.RefreshToken); dErr != nil {
			return fmt.Errorf("delete old refresh token: %w", dErr)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, newRefreshToken, nil
}

func (as *authService) LogoutAgent(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return ErrUnauthorized
	}
	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		token, ftErr := as.agentTokenRepo.GetByAccessToken(ctx, tx, rd.TokenString)
		if ftErr != nil {
			return fmt.Errorf("load token: %w", ftErr)
		}
		if token == nil {
			return nil
		}
		return as.agentTokenRepo.DeleteByRefreshToken(ctx, tx, token.RefreshToken)
	})
}

func (as *authService) generateAccessToken(agent *types.Agent) (string, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   agent.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, ErrUnauthorized
	}
	agentID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid agent id in token: %w", err)
	}
	var refreshToken string
	found, ftErr := as.agentTokenRepo.GetByAccessToken(ctx, nil, tokenString)
	if ftErr != nil {
		return ctx, fmt.Errorf("load token row: %w", ftErr)
	}
	if found != nil {
		refreshToken = found.RefreshToken
	}
	rd := &requestdata.RequestData{
		TokenString:  tokenString,
		RefreshToken: refreshToken,
		AgentID:      agentID,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
