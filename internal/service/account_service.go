package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forum-next/internal/config"
	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserJWTClaims 用户访问令牌声明
type UserJWTClaims struct {
	UserID uint   `json:"user_id"`
	UID    string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// EnsureUserInput 创建账号参数
type EnsureUserInput struct {
	Username string
	Email    string
	Password string
	Role     models.UserRole
}

// AccountService 账号辅助服务：默认管理员、种子账号与开发令牌
// 正式登录与会话签发由外部身份系统负责
type AccountService struct {
	cfg      config.JWTConfig
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewAccountService 创建账号辅助服务
func NewAccountService(cfg config.JWTConfig, userRepo repository.UserRepository) *AccountService {
	return &AccountService{cfg: cfg, userRepo: userRepo, now: time.Now}
}

// EnsureUser 按用户名幂等创建账号，已存在时原样返回
func (s *AccountService) EnsureUser(input EnsureUserInput) (*models.User, bool, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, false, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	role := input.Role
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, false, ErrInvalidRole
	}
	existing, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	if len(input.Password) < 6 {
		return nil, false, fmt.Errorf("%w: password too short", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}
	user := &models.User{
		UID:          uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: string(hash),
		Role:         role,
		Status:       constants.UserStatusActive,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// EnsureDefaultAdmin 根据配置创建默认管理员，未配置密码时跳过
func (s *AccountService) EnsureDefaultAdmin(cfg config.AdminConfig) error {
	if strings.TrimSpace(cfg.Password) == "" {
		logger.Debugw("default_admin_skip_empty_password", "username", cfg.Username)
		return nil
	}
	user, created, err := s.EnsureUser(EnsureUserInput{
		Username: cfg.Username,
		Password: cfg.Password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	if created {
		logger.Infow("default_admin_created", "username", user.Username, "uid", user.UID)
	}
	return nil
}

// IssueToken 签发用户访问令牌
func (s *AccountService) IssueToken(user *models.User) (string, time.Time, error) {
	if user == nil || user.ID == 0 {
		return "", time.Time{}, ErrUserNotFound
	}
	if strings.TrimSpace(s.cfg.SecretKey) == "" {
		return "", time.Time{}, errors.New("jwt secret is empty")
	}
	hours := s.cfg.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	now := s.now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := UserJWTClaims{
		UserID: user.ID,
		UID:    user.UID,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseUserToken 解析并校验用户访问令牌
func ParseUserToken(secretKey, tokenString string) (*UserJWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &UserJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}
