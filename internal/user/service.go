package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrEmailTaken 表示邮箱已经注册过
	ErrEmailTaken = errors.New("该邮箱已被注册")
	// ErrInvalidCredentials 不区分“邮箱不存在”和“密码错误”
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	// ErrInvalidInput 表示注册参数不合法
	ErrInvalidInput = errors.New("注册信息不合法")
)

// bcrypt 只使用密码的前72个字节
const maxPasswordBytes = 72

// Credentials 是注册和登录共用的请求体
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate 校验注册参数
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.EmailFormat),
		validation.Field(&c.Password, validation.Required, validation.RuneLength(8, 0), validation.Length(0, maxPasswordBytes)),
	)
}

// Service 是身份提供方：注册、登录和令牌签发
type Service struct {
	db     *gorm.DB
	tokens *TokenIssuer
	cost   int
}

func NewService(db *gorm.DB, tokens *TokenIssuer) *Service {
	return &Service{db: db, tokens: tokens, cost: bcrypt.DefaultCost}
}

// Tokens 返回令牌签发器，供中间件校验使用
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register 创建新账户
func (s *Service) Register(ctx context.Context, creds Credentials) (*User, error) {
	creds.Email = normalizeEmail(creds.Email)
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("无法计算密码哈希: %w", err)
	}

	u := &User{Email: creds.Email, PasswordHash: string(hash)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).Where("email = ?", creds.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		return tx.Create(u).Error
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("无法创建用户: %w", err)
	}
	return u, nil
}

// Authenticate 校验邮箱和密码，成功时返回用户
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(creds.Email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("无法查询用户: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// Login 认证并签发访问令牌
func (s *Service) Login(ctx context.Context, creds Credentials) (string, *User, error) {
	u, err := s.Authenticate(ctx, creds)
	if err != nil {
		return "", nil, err
	}
	token, _, err := s.tokens.Issue(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}
