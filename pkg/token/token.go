package token

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/hertz-contrib/jwt"

	"CoachCheck/config"
	"CoachCheck/pkg/errors"
)

const (
	IdentityKey = "uid"
	RoleKey     = "role"
)

// Role 调用方身份：教练或客户
type Role string

const (
	RoleCoach  Role = "coach"
	RoleClient Role = "client"
)

// Identity 从 token 中解析出的调用方
type Identity struct {
	PublicID string
	Role     Role
}

var (
	// 这个实例会被 middleware 和 token 包共同使用
	sharedGenerator *jwt.HertzJWTMiddleware
)

func Init() error {
	var err error
	sharedGenerator, err = jwt.New(&jwt.HertzJWTMiddleware{
		Key:         []byte(config.Cfg.JWTSecret),
		Timeout:     time.Duration(config.Cfg.JWTExpireMinutes) * time.Minute,
		MaxRefresh:  time.Duration(config.Cfg.JWTRefreshDays) * 24 * time.Hour,
		IdentityKey: IdentityKey,
		TimeFunc:    time.Now,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token generator: %w", err)
	}

	return nil
}

// GetGenerator 获取共享的 token 生成器（供 middleware 使用）
func GetGenerator() *jwt.HertzJWTMiddleware {
	return sharedGenerator
}

// GenerateTokenPair 生成 access token 和 refresh token
// 登录流程不在本服务内，签发入口留给运维脚本与测试
func GenerateTokenPair(id Identity) (accessToken, refreshToken string, expiresIn int, err error) {
	if sharedGenerator == nil {
		return "", "", 0, errors.ErrTokenGeneratorNotInitialized
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(config.Cfg.JWTExpireMinutes) * time.Minute)

	accessToken, err = sign(jwtv5.MapClaims{
		IdentityKey: id.PublicID,
		RoleKey:     string(id.Role),
		"iat":       now.Unix(),
		"exp":       expiresAt.Unix(),
	})
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err = sign(jwtv5.MapClaims{
		IdentityKey: id.PublicID,
		RoleKey:     string(id.Role),
		"iat":       now.Unix(),
		"type":      "refresh",
		"exp":       now.Add(time.Duration(config.Cfg.JWTRefreshDays) * 24 * time.Hour).Unix(),
	})
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, int(time.Until(expiresAt).Seconds()), nil
}

// ValidateRefreshToken 验证 refresh token 并返回身份
func ValidateRefreshToken(tokenString string) (Identity, error) {
	claims, err := parse(tokenString)
	if err != nil {
		return Identity{}, err
	}

	if tokenType, ok := claims["type"].(string); !ok || tokenType != "refresh" {
		return Identity{}, errors.ErrInvalidTokenType
	}

	return IdentityFromClaims(claims)
}

// IdentityFromClaims 从 JWT claims 中取出 uid 与 role
func IdentityFromClaims(claims map[string]interface{}) (Identity, error) {
	uid, ok := claims[IdentityKey].(string)
	if !ok {
		uidFloat, ok := claims[IdentityKey].(float64)
		if !ok {
			return Identity{}, errors.ErrUserIDNotFound
		}
		uid = fmt.Sprintf("%.0f", uidFloat)
	}

	role, _ := claims[RoleKey].(string)
	switch Role(role) {
	case RoleCoach, RoleClient:
	default:
		return Identity{}, errors.ErrInvalidTokenClaims
	}

	return Identity{PublicID: uid, Role: Role(role)}, nil
}

func sign(claims jwtv5.MapClaims) (string, error) {
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(config.Cfg.JWTSecret))
}

func parse(tokenString string) (jwtv5.MapClaims, error) {
	tok, err := jwtv5.ParseWithClaims(tokenString, jwtv5.MapClaims{}, func(t *jwtv5.Token) (interface{}, error) {
		if t.Method != jwtv5.SigningMethodHS256 {
			return nil, fmt.Errorf("%w: %v, expected HS256", errors.ErrUnexpectedSigningMethod, t.Header["alg"])
		}
		return []byte(config.Cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !tok.Valid {
		return nil, errors.ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, errors.ErrInvalidTokenClaims
	}
	return claims, nil
}
