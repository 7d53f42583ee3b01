package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/voltdrop/internal/cache"
	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/models"
	"github.com/voltdrop/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtIssuer          = "voltdrop-admin"
	defaultExpireHours = 24
)

// 用户不存在时也做一次 bcrypt 比较，两种失败耗时一致
var dummyPasswordHash, _ = bcrypt.GenerateFromPassword([]byte("voltdrop-dummy-password"), bcrypt.DefaultCost)

// AuthService 后台管理员认证
type AuthService struct {
	cfg       *config.Config
	adminRepo repository.AdminRepository
}

func NewAuthService(cfg *config.Config, adminRepo repository.AdminRepository) *AuthService {
	return &AuthService{cfg: cfg, adminRepo: adminRepo}
}

// JWTClaims 后台 token 声明，TokenVersion 用于吊销
type JWTClaims struct {
	AdminID      uint   `json:"admin_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// LoginResult 登录结果
type LoginResult struct {
	Admin     *models.Admin
	Token     string
	ExpiresAt time.Time
}

// SecretConfigured 是否已配置 JWT 密钥
func (s *AuthService) SecretConfigured() bool {
	return s != nil && s.cfg != nil && s.cfg.JWT.SecretKey != ""
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func (s *AuthService) tokenTTL() time.Duration {
	hours := s.cfg.JWT.ExpireHours
	if hours <= 0 {
		hours = defaultExpireHours
	}
	return time.Duration(hours) * time.Hour
}

// GenerateJWT 签发 HS256 token
func (s *AuthService) GenerateJWT(admin *models.Admin) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL())
	claims := JWTClaims{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			Subject:   strconv.FormatUint(uint64(admin.ID), 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseJWT 校验签名、签发方与过期时间
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(jwtIssuer),
		jwt.WithExpirationRequired(),
	)
	claims := &JWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ResolveAdmin 鉴权时读取管理员状态，优先走 Redis 缓存
func (s *AuthService) ResolveAdmin(ctx context.Context, adminID uint) (*models.Admin, error) {
	if state, hit, err := cache.GetAdminAuthState(ctx, adminID); err == nil && hit {
		return state.ToAdmin(), nil
	}
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrNotFound
	}
	_ = cache.SetAdminAuthState(ctx, cache.BuildAdminAuthState(admin))
	return admin, nil
}

// Login 校验用户名密码并签发 token
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	admin, err := s.adminRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.GenerateJWT(admin)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := s.adminRepo.TouchLogin(admin.ID, now); err != nil {
		return nil, err
	}
	admin.LastLoginAt = &now
	_ = cache.SetAdminAuthState(ctx, cache.BuildAdminAuthState(admin))
	return &LoginResult{Admin: admin, Token: token, ExpiresAt: expiresAt}, nil
}
