package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"CoachCheck/config"
	"CoachCheck/internal/model/dto"
	"CoachCheck/internal/repository"
	"CoachCheck/pkg/errors"
	"CoachCheck/pkg/token"
)

// AuthService token 刷新
// 登录由外部身份服务负责，这里只做 refresh token 轮换
type AuthService struct {
	repo   *repository.Repository
	tokens RefreshTokenStore
	logger *zap.Logger
}

func NewAuthService(repo *repository.Repository, tokens RefreshTokenStore, logger *zap.Logger) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, logger: logger}
}

// RefreshToken 用 refresh token 换一对新 token，旧 refresh token 随即失效
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	id, err := token.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.Unauthorized, err)
	}

	stored, err := s.tokens.GetRefreshToken(ctx, string(id.Role), id.PublicID)
	if err != nil {
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}
	// 已轮换过的旧 token 不能再用
	if stored != "" && stored != refreshToken {
		return nil, fmt.Errorf("%w: refresh token revoked", errors.Unauthorized)
	}

	if err := s.ensureIdentity(ctx, id); err != nil {
		return nil, err
	}

	access, refresh, expiresIn, err := token.GenerateTokenPair(id)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	ttl := time.Duration(config.Cfg.JWTRefreshDays) * 24 * time.Hour
	if err := s.tokens.SetRefreshToken(ctx, string(id.Role), id.PublicID, refresh, ttl); err != nil {
		s.logger.Warn("Failed to store refresh token",
			zap.String("public_id", id.PublicID),
			zap.Error(err),
		)
	}

	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresIn,
	}, nil
}

func (s *AuthService) ensureIdentity(ctx context.Context, id token.Identity) error {
	var err error
	switch id.Role {
	case token.RoleCoach:
		_, err = s.repo.Coaches.GetByPublicID(ctx, id.PublicID)
	case token.RoleClient:
		_, err = s.repo.Clients.GetByPublicID(ctx, id.PublicID)
	default:
		return errors.Unauthorized
	}
	if err != nil {
		if _, ok := errors.As(err); ok {
			return fmt.Errorf("%w: %s no longer exists", errors.Unauthorized, id.PublicID)
		}
		return err
	}
	return nil
}
