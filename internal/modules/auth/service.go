package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"villabook/internal/domain"
)

// Service contains all business logic for authentication
type Service struct {
	users    UserRepository
	jwt      jwtService
	tokenTTL time.Duration
	crm      ContactSyncer
	loggerf  func(format string, args ...interface{})
}

func NewService(users UserRepository, jwt jwtService, tokenTTL time.Duration, crm ContactSyncer) *Service {
	return &Service{
		users:    users,
		jwt:      jwt,
		tokenTTL: tokenTTL,
		crm:      crm,
		loggerf:  log.Printf,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a guest or owner account and signs it in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	role := req.Role
	if role == "" {
		role = domain.RoleGuest
	}
	if role != domain.RoleGuest && role != domain.RoleOwner {
		return nil, ErrInvalidRole
	}

	user, err := s.createUser(ctx, req.Email, req.Password, req.Name, req.Phone, role)
	if err != nil {
		return nil, err
	}
	s.loggerf("level=info msg=user registered user_id=%d role=%s", user.ID, user.Role)

	if s.crm != nil {
		s.crm.SyncUserAsync(user.ID)
	}
	return s.issue(user)
}

// CreateAdmin is used by the CLI seed. Admins cannot self-register.
func (s *Service) CreateAdmin(ctx context.Context, email, password, name string) (*domain.User, error) {
	return s.createUser(ctx, email, password, name, "", domain.RoleAdmin)
}

func (s *Service) createUser(ctx context.Context, email, password, name, phone string, role domain.UserRole) (*domain.User, error) {
	if err := s.validateEmailUnique(ctx, email); err != nil {
		return nil, err
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        normalizeEmail(email),
		PasswordHash: hashed,
		Name:         strings.TrimSpace(name),
		Phone:        strings.TrimSpace(phone),
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.loggerf("level=info msg=login rejected user_id=%d", user.ID)
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *Service) Me(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *Service) issue(user *domain.User) (*AuthResult, error) {
	token, err := s.jwt.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokenTTL / time.Second),
	}, nil
}

func (s *Service) validateEmailUnique(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return ErrEmailAlreadyExists
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
