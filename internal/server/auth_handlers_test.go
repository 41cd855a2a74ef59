package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"labbook/internal/config"
	"labbook/internal/middleware"
	"labbook/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockProfileRepository is a mock of the ProfileRepository interface
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id uint) (*models.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Profile, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]models.Profile), args.Error(1)
}

func (m *MockProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestSignup(t *testing.T) {
	cfg := &config.Config{JWTSecret: testJWTSecret, AuthCookieName: "lb_session"}
	middleware.InitMiddleware(cfg)

	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func(m *MockProfileRepository)
		expectedStatus int
	}{
		{
			name: "Success",
			body: map[string]string{
				"username": "tinkerer",
				"email":    " Tinker@Example.com ",
				"password": "Password123",
			},
			mockSetup: func(m *MockProfileRepository) {
				m.On("GetByEmail", mock.Anything, "tinker@example.com").Return(nil, nil)
				m.On("GetByUsername", mock.Anything, "tinkerer").Return(nil, nil)
				m.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Profile) bool {
					return p.Email == "tinker@example.com" && p.Password != "Password123"
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*models.Profile).ID = 7
				}).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Duplicate Email",
			body: map[string]string{
				"username": "tinkerer",
				"email":    "exists@example.com",
				"password": "Password123",
			},
			mockSetup: func(m *MockProfileRepository) {
				m.On("GetByEmail", mock.Anything, "exists@example.com").Return(&models.Profile{ID: 1}, nil)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "Duplicate Username",
			body: map[string]string{
				"username": "taken",
				"email":    "fresh@example.com",
				"password": "Password123",
			},
			mockSetup: func(m *MockProfileRepository) {
				m.On("GetByEmail", mock.Anything, "fresh@example.com").Return(nil, nil)
				m.On("GetByUsername", mock.Anything, "taken").Return(&models.Profile{ID: 2}, nil)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Weak Password",
			body:           map[string]string{"username": "tinkerer", "email": "a@example.com", "password": "short"},
			mockSetup:      func(m *MockProfileRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Missing Fields",
			body:           map[string]string{"username": "tinkerer"},
			mockSetup:      func(m *MockProfileRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockProfileRepository)
			tt.mockSetup(mockRepo)
			s := &Server{config: cfg, profileRepo: mockRepo}
			app := fiber.New()
			app.Post("/signup", s.Signup)

			resp := postJSON(t, app, "/signup", tt.body)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			mockRepo.AssertExpectations(t)

			if tt.expectedStatus == http.StatusCreated {
				var body struct {
					Token string         `json:"token"`
					User  models.Profile `json:"user"`
				}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.NotEmpty(t, body.Token)
				assert.Equal(t, uint(7), body.User.ID)

				session, err := middleware.ParseSession(body.Token)
				require.NoError(t, err)
				assert.Equal(t, uint(7), session.UserID)
				assert.NotEmpty(t, session.JTI)
				assert.Contains(t, resp.Header.Get("Set-Cookie"), "lb_session=")
			}
		})
	}
}

func TestLogin(t *testing.T) {
	cfg := &config.Config{JWTSecret: testJWTSecret}
	middleware.InitMiddleware(cfg)

	hash, err := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &models.Profile{ID: 3, Username: "maker", Email: "maker@example.com", Password: string(hash)}

	mockRepo := new(MockProfileRepository)
	mockRepo.On("GetByEmail", mock.Anything, "maker@example.com").Return(stored, nil)
	mockRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

	s := &Server{config: cfg, profileRepo: mockRepo}
	app := fiber.New()
	app.Post("/login", s.Login)

	tests := []struct {
		name           string
		email          string
		password       string
		expectedStatus int
	}{
		{"Success", "Maker@Example.com", "Password123", http.StatusOK},
		{"Wrong Password", "maker@example.com", "Password999", http.StatusUnauthorized},
		{"Unknown Email", "ghost@example.com", "Password123", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, app, "/login", map[string]string{"email": tt.email, "password": tt.password})
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}
