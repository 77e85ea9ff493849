package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapleads/zapleads/internal/tenancy"
	"github.com/zapleads/zapleads/pkg/logging"
)

type fakeRepo struct {
	byID    map[string]*User
	byEmail map[string]*User
	nextID  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]*User{}, byEmail: map[string]*User{}}
}

func (f *fakeRepo) Create(_ context.Context, email, passwordHash, companyName string) (*User, error) {
	if _, ok := f.byEmail[email]; ok {
		return nil, ErrEmailTaken
	}
	f.nextID++
	user := &User{
		ID:           "user-" + string(rune('0'+f.nextID)),
		Email:        email,
		PasswordHash: passwordHash,
		CompanyName:  companyName,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.byID[user.ID] = user
	f.byEmail[email] = user
	return user, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*User, error) {
	if user, ok := f.byID[id]; ok {
		return user, nil
	}
	return nil, ErrUserNotFound
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	if user, ok := f.byEmail[email]; ok {
		return user, nil
	}
	return nil, ErrUserNotFound
}

func (f *fakeRepo) GetByAccountSID(_ context.Context, accountSID string) (*User, error) {
	for _, user := range f.byID {
		if user.TwilioAccountSID == accountSID {
			return user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeRepo) UpdateSettings(_ context.Context, userID string, settings Settings) (*User, error) {
	user, ok := f.byID[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	user.CompanyName = settings.CompanyName
	user.TwilioAccountSID = settings.TwilioAccountSID
	user.TwilioAuthToken = settings.TwilioAuthToken
	user.TwilioPhoneNumber = settings.TwilioPhoneNumber
	user.OpenAIAPIKey = settings.OpenAIAPIKey
	user.AIPrompt = settings.AIPrompt
	return user, nil
}

func newTestHandler(repo Repository) *Handler {
	return NewHandler(repo, NewSessionIssuer("test-secret", time.Hour), logging.Default())
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeRepo()
	handler := newTestHandler(repo)

	body := []byte(`{"email":"ana@empresa.com","password":"supersegura","companyName":"Empresa"}`)
	w := httptest.NewRecorder()
	handler.Register(w, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created sessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "ana@empresa.com", created.User.Email)

	login := []byte(`{"email":"ana@empresa.com","password":"supersegura"}`)
	w = httptest.NewRecorder()
	handler.Login(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(login)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRegisterRejectsBadPayloads(t *testing.T) {
	handler := newTestHandler(newFakeRepo())

	cases := []struct {
		name string
		body string
	}{
		{"invalid email", `{"email":"no-at-sign","password":"supersegura"}`},
		{"short password", `{"email":"ana@empresa.com","password":"curta"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.Register(w, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader([]byte(tc.body))))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	handler := newTestHandler(newFakeRepo())

	body := `{"email":"ana@empresa.com","password":"supersegura"}`
	w := httptest.NewRecorder()
	handler.Register(w, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader([]byte(body))))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	handler.Register(w, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader([]byte(body))))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	handler := newTestHandler(newFakeRepo())

	register := `{"email":"ana@empresa.com","password":"supersegura"}`
	w := httptest.NewRecorder()
	handler.Register(w, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader([]byte(register))))
	require.Equal(t, http.StatusCreated, w.Code)

	login := `{"email":"ana@empresa.com","password":"errada12345"}`
	w = httptest.NewRecorder()
	handler.Login(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte(login))))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginUnknownEmailLooksLikeBadPassword(t *testing.T) {
	handler := newTestHandler(newFakeRepo())

	login := `{"email":"ninguem@empresa.com","password":"qualquercoisa"}`
	w := httptest.NewRecorder()
	handler.Login(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte(login))))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	handler := newTestHandler(repo)

	user, err := repo.Create(context.Background(), "ana@empresa.com", "hash", "Empresa")
	require.NoError(t, err)

	update := `{
		"companyName":"Empresa Nova",
		"twilioAccountSid":"AC123",
		"twilioAuthToken":"tok",
		"twilioPhoneNumber":"whatsapp:+14155238886",
		"openaiApiKey":"sk-abc",
		"aiPrompt":"Você é um atendente."
	}`
	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader([]byte(update)))
	req = req.WithContext(tenancy.WithUserID(req.Context(), user.ID))
	w := httptest.NewRecorder()
	handler.UpdateSettings(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req = req.WithContext(tenancy.WithUserID(req.Context(), user.ID))
	w = httptest.NewRecorder()
	handler.GetSettings(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var settings Settings
	require.NoError(t, json.NewDecoder(w.Body).Decode(&settings))
	assert.Equal(t, "Empresa Nova", settings.CompanyName)
	assert.Equal(t, "AC123", settings.TwilioAccountSID)
	assert.Equal(t, "sk-abc", settings.OpenAIAPIKey)
}

func TestMeRequiresSession(t *testing.T) {
	handler := newTestHandler(newFakeRepo())

	w := httptest.NewRecorder()
	handler.Me(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
