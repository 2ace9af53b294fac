package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"villabook/internal/domain"
	"villabook/internal/pkg/jwt"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	if args.Error(0) == nil {
		u.ID = 42
	}
	return args.Error(0)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) SyncUserAsync(userID int64) {
	m.Called(userID)
}

func newTestService(repo *mockUserRepo, crm ContactSyncer) *Service {
	svc := NewService(repo, jwt.New("test-secret", time.Hour), time.Hour, crm)
	svc.loggerf = func(string, ...interface{}) {}
	return svc
}

func TestRegister_DefaultsToGuestAndSyncsCRM(t *testing.T) {
	repo := new(mockUserRepo)
	crm := new(mockSyncer)
	svc := newTestService(repo, crm)

	repo.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, gorm.ErrRecordNotFound)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "new@example.com" && u.Role == domain.RoleGuest && u.PasswordHash != "secret123"
	})).Return(nil)
	crm.On("SyncUserAsync", int64(42)).Return()

	res, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "  New@Example.com ",
		Password: "secret123",
		Name:     "New User",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.User.ID)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(res.User.PasswordHash), []byte("secret123")))

	repo.AssertExpectations(t)
	crm.AssertExpectations(t)
}

func TestRegister_Owner(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newTestService(repo, nil)

	repo.On("GetByEmail", mock.Anything, "host@example.com").Return(nil, gorm.ErrRecordNotFound)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	res, err := svc.Register(context.Background(), RegisterRequest{
		Email: "host@example.com", Password: "secret123", Name: "Host", Role: domain.RoleOwner,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, res.User.Role)
}

func TestRegister_Rejections(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newTestService(repo, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "a@example.com", Password: "secret123", Name: "A", Role: domain.RoleAdmin,
	})
	assert.ErrorIs(t, err, ErrInvalidRole)

	repo.On("GetByEmail", mock.Anything, "taken@example.com").Return(&domain.User{ID: 1}, nil)
	_, err = svc.Register(context.Background(), RegisterRequest{
		Email: "taken@example.com", Password: "secret123", Name: "B",
	})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLogin(t *testing.T) {
	repo := new(mockUserRepo)
	svc := newTestService(repo, nil)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{ID: 7, Email: "guest@example.com", PasswordHash: string(hash), Role: domain.RoleGuest}
	repo.On("GetByEmail", mock.Anything, "guest@example.com").Return(user, nil)
	repo.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, gorm.ErrRecordNotFound)

	res, err := svc.Login(context.Background(), LoginRequest{Email: "GUEST@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	claims, err := jwt.New("test-secret", time.Hour).ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, domain.RoleGuest, claims.Role)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "guest@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestHandler_RegisterAndLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := new(mockUserRepo)
	svc := newTestService(repo, nil)
	r := gin.New()
	NewHandler(svc).RegisterPublicRoutes(r.Group("/api"), func(c *gin.Context) { c.Next() })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"bad","password":"short","name":""}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")

	repo.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, gorm.ErrRecordNotFound)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"nobody@example.com","password":"whatever"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
}
