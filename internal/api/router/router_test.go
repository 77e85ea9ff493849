package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapleads/zapleads/internal/accounts"
	"github.com/zapleads/zapleads/internal/conversations"
	"github.com/zapleads/zapleads/internal/leads"
	"github.com/zapleads/zapleads/internal/messaging"
	"github.com/zapleads/zapleads/pkg/logging"
)

type stubAccountsRepo struct {
	user *accounts.User
}

func (s *stubAccountsRepo) Create(_ context.Context, email, hash, company string) (*accounts.User, error) {
	s.user = &accounts.User{ID: "user-1", Email: email, PasswordHash: hash, CompanyName: company}
	return s.user, nil
}

func (s *stubAccountsRepo) GetByID(_ context.Context, id string) (*accounts.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, accounts.ErrUserNotFound
}

func (s *stubAccountsRepo) GetByEmail(_ context.Context, email string) (*accounts.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, accounts.ErrUserNotFound
}

func (s *stubAccountsRepo) GetByAccountSID(context.Context, string) (*accounts.User, error) {
	return nil, accounts.ErrUserNotFound
}

func (s *stubAccountsRepo) UpdateSettings(_ context.Context, _ string, _ accounts.Settings) (*accounts.User, error) {
	return s.user, nil
}

type stubLeadsRepo struct{}

func (stubLeadsRepo) List(context.Context, string) ([]*leads.Lead, error) { return nil, nil }
func (stubLeadsRepo) GetByID(context.Context, string, string) (*leads.Lead, error) {
	return nil, leads.ErrLeadNotFound
}
func (stubLeadsRepo) Create(context.Context, string, leads.CreateParams) (*leads.Lead, error) {
	return &leads.Lead{ID: "lead-1"}, nil
}
func (stubLeadsRepo) FindOrCreateByPhone(context.Context, string, string, string, *string) (*leads.Lead, bool, error) {
	return &leads.Lead{ID: "lead-1"}, true, nil
}
func (stubLeadsRepo) UpdateName(context.Context, string, string, string) error { return nil }
func (stubLeadsRepo) ApplyPatch(context.Context, string, string, leads.Patch) (*leads.Lead, error) {
	return nil, leads.ErrLeadNotFound
}
func (stubLeadsRepo) Delete(context.Context, string, string) error { return leads.ErrLeadNotFound }

type stubSender struct{}

func (stubSender) Send(context.Context, messaging.SendRequest) (string, error) { return "SM1", nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	logger := logging.Default()
	sessions := accounts.NewSessionIssuer("test-secret", time.Hour)
	accountsRepo := &stubAccountsRepo{}
	store := conversations.NewStore(mock)

	webhook := messaging.NewWebhookHandler(messaging.WebhookConfig{
		Tenants:       accountsRepo,
		Conversations: store,
		Leads:         stubLeadsRepo{},
		Logger:        logger,
	})

	return New(&Config{
		Logger:               logger,
		Sessions:             sessions,
		AccountsHandler:      accounts.NewHandler(accountsRepo, sessions, logger),
		LeadsHandler:         leads.NewHandler(stubLeadsRepo{}, logger),
		ConversationsHandler: conversations.NewHandler(store, logger),
		WebhookHandler:       webhook,
		SendHandler:          messaging.NewSendHandler(accountsRepo, store, stubSender{}, nil, logger),
		CORSAllowedOrigins:   []string{"*"},
	})
}

func TestHealthIsPublic(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestPrivateRoutesRequireSession(t *testing.T) {
	router := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/leads"},
		{http.MethodGet, "/api/conversations"},
		{http.MethodGet, "/api/settings"},
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/messages/send"},
	}
	for _, tc := range paths {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestRegisterThenAccessPrivateRoute(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`{"email":"ana@empresa.com","password":"supersegura","companyName":"Empresa"}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
