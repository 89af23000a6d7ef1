package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/highscore-service/internal/api/http/handlers"
	"github.com/spec-kit/highscore-service/internal/auth"
	"github.com/spec-kit/highscore-service/internal/domain"
	"github.com/spec-kit/highscore-service/internal/observability"
	"github.com/spec-kit/highscore-service/internal/persistence"
	"github.com/spec-kit/highscore-service/internal/service"
)

type memoryUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*domain.User)}
}

func (m *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	user.ID = strconv.Itoa(m.seq)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (m *memoryUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryUserRepo) UpdateHighScore(_ context.Context, id string, score int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.HighScore = score
	return nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	repo := newMemoryUserRepo()

	tokens := auth.NewTokenManager("test-secret", 30)
	authService := service.NewAuthService(repo, tokens, bcrypt.MinCost)
	sessionService := service.NewSessionService(tokens)
	profileService := service.NewProfileService(repo, nil, tokens)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler("highscore-service", "test", &persistence.Postgres{}, &persistence.Redis{}, metrics),
		Users:   handlers.NewUsersHandler(authService),
		Session: handlers.NewSessionHandler(sessionService, logger),
		Profile: handlers.NewProfileHandler(profileService),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, header map[string]string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	parsed := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp.StatusCode, parsed
}

func TestFullScenario_RegisterLoginProfileHighscore(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	creds := map[string]string{"username": "alice", "password": "pw1"}

	status, body := doJSON(t, app, http.MethodPost, "/register", creds, nil)
	require.Equal(t, http.StatusCreated, status)
	userID, _ := body["id"].(string)
	require.NotEmpty(t, userID)
	assert.Equal(t, "alice", body["username"])

	status, body = doJSON(t, app, http.MethodPost, "/abc/login", creds, nil)
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	bearer := map[string]string{"Authorization": "Bearer " + token}

	status, body = doJSON(t, app, http.MethodGet, "/abc/verify", nil, bearer)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, token, body["token"])

	status, body = doJSON(t, app, http.MethodGet, "/"+token+"/profile", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, userID, body["id"])
	assert.Equal(t, "alice", body["username"])
	assert.EqualValues(t, 0, body["highScore"])

	status, body = doJSON(t, app, http.MethodPatch, "/"+token+"/highscore", map[string]int64{"highScore": 42}, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 42, body["highScore"])

	status, body = doJSON(t, app, http.MethodGet, "/"+token+"/profile", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 42, body["highScore"])
}

func TestLogin_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	_, _ = doJSON(t, app, http.MethodPost, "/register", map[string]string{"username": "alice", "password": "pw1"}, nil)

	status1, body1 := doJSON(t, app, http.MethodPost, "/abc/login", map[string]string{"username": "alice", "password": "wrong"}, nil)
	status2, body2 := doJSON(t, app, http.MethodPost, "/abc/login", map[string]string{"username": "nobody", "password": "pw1"}, nil)

	require.Equal(t, http.StatusUnauthorized, status1)
	require.Equal(t, http.StatusUnauthorized, status2)
	assert.Equal(t, body1["error"], body2["error"])
}

func TestVerify_MismatchAndMissingToken(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	creds := map[string]string{"username": "alice", "password": "pw1"}
	_, _ = doJSON(t, app, http.MethodPost, "/register", creds, nil)

	_, body := doJSON(t, app, http.MethodPost, "/req-1/login", creds, nil)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	status, _ := doJSON(t, app, http.MethodGet, "/req-2/verify", nil, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, app, http.MethodGet, "/req-1/verify", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRegister_DuplicateUsernameConflict(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	creds := map[string]string{"username": "alice", "password": "pw1"}

	status, _ := doJSON(t, app, http.MethodPost, "/register", creds, nil)
	require.Equal(t, http.StatusCreated, status)

	status, body := doJSON(t, app, http.MethodPost, "/register", creds, nil)
	assert.Equal(t, http.StatusConflict, status)
	errObj, _ := body["error"].(map[string]any)
	require.NotNil(t, errObj)
	assert.Equal(t, "DUPLICATE_USERNAME", errObj["code"])
}

func TestRegisterAndLogin_BadPayloadsRejected(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)

	for name, body := range map[string]any{
		"missing password": map[string]string{"username": "alice"},
		"missing username": map[string]string{"password": "pw1"},
		"empty object":     map[string]string{},
	} {
		status, resp := doJSON(t, app, http.MethodPost, "/register", body, nil)
		assert.Equal(t, http.StatusBadRequest, status, "register %s", name)
		errObj, _ := resp["error"].(map[string]any)
		require.NotNil(t, errObj, "register %s", name)
		assert.Equal(t, "VALIDATION_FAILED", errObj["code"], "register %s", name)

		status, resp = doJSON(t, app, http.MethodPost, "/abc/login", body, nil)
		assert.Equal(t, http.StatusBadRequest, status, "login %s", name)
		errObj, _ = resp["error"].(map[string]any)
		require.NotNil(t, errObj, "login %s", name)
		assert.Equal(t, "VALIDATION_FAILED", errObj["code"], "login %s", name)
	}
}

func TestUpdateHighScore_MissingScoreRejected(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	creds := map[string]string{"username": "alice", "password": "pw1"}
	_, _ = doJSON(t, app, http.MethodPost, "/register", creds, nil)

	_, body := doJSON(t, app, http.MethodPost, "/abc/login", creds, nil)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	// An explicit zero is a valid score; only an absent field is rejected.
	status, resp := doJSON(t, app, http.MethodPatch, "/"+token+"/highscore", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	errObj, _ := resp["error"].(map[string]any)
	require.NotNil(t, errObj)
	assert.Equal(t, "VALIDATION_FAILED", errObj["code"])

	status, resp = doJSON(t, app, http.MethodPatch, "/"+token+"/highscore", map[string]int64{"highScore": 0}, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, resp["highScore"])
}

func TestProfile_InvalidTokenForbidden(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/garbage-token/profile", nil, nil)
	assert.Equal(t, http.StatusForbidden, status)
	errObj, _ := body["error"].(map[string]any)
	require.NotNil(t, errObj)
	assert.Equal(t, "INVALID_TOKEN", errObj["code"])

	status, _ = doJSON(t, app, http.MethodPatch, "/garbage-token/highscore", map[string]int64{"highScore": 1}, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

// Two users logging in and verifying concurrently must each verify against
// their own token.
func TestVerify_ConcurrentUsers(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	for _, creds := range []map[string]string{
		{"username": "alice", "password": "pw1"},
		{"username": "bob", "password": "pw2"},
	} {
		status, _ := doJSON(t, app, http.MethodPost, "/register", creds, nil)
		require.Equal(t, http.StatusCreated, status)
	}

	_, body := doJSON(t, app, http.MethodPost, "/req-alice/login", map[string]string{"username": "alice", "password": "pw1"}, nil)
	aliceToken, _ := body["token"].(string)
	require.NotEmpty(t, aliceToken)

	_, body = doJSON(t, app, http.MethodPost, "/req-bob/login", map[string]string{"username": "bob", "password": "pw2"}, nil)
	bobToken, _ := body["token"].(string)
	require.NotEmpty(t, bobToken)

	var wg sync.WaitGroup
	failures := make(chan string, 40)
	verify := func(correlationID, token string) {
		defer wg.Done()
		req := httptest.NewRequest(http.MethodGet, "/"+correlationID+"/verify", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		if err != nil {
			failures <- err.Error()
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			failures <- correlationID + ": status " + strconv.Itoa(resp.StatusCode)
		}
	}

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go verify("req-alice", aliceToken)
		go verify("req-bob", bobToken)
	}
	wg.Wait()
	close(failures)

	for f := range failures {
		t.Errorf("concurrent verify failed: %s", f)
	}
}
