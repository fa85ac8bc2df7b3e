package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/garbagewatch/internal/auth"
	"github.com/geocoder89/garbagewatch/internal/cache"
	"github.com/geocoder89/garbagewatch/internal/config"
	"github.com/geocoder89/garbagewatch/internal/domain/report"
	"github.com/geocoder89/garbagewatch/internal/domain/user"
	apphttp "github.com/geocoder89/garbagewatch/internal/http"
	"github.com/geocoder89/garbagewatch/internal/observability"
	"github.com/geocoder89/garbagewatch/internal/repo/memory"
	"github.com/geocoder89/garbagewatch/internal/service/accounts"
	"github.com/geocoder89/garbagewatch/internal/service/reports"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	router *gin.Engine
	users  *memory.UsersRepo
}

func testConfig() config.Config {
	return config.Config{
		Env:                "test",
		JWTSecret:          "test-secret-key",
		AuthRateLimit:      100,
		AuthRateWindow:     time.Minute,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		MaxBodyBytes:       1 << 20,
		ServiceName:        "garbagewatch-test",
	}
}

func setupApp(t *testing.T, cfg config.Config) testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	store := memory.NewStore()
	usersRepo := memory.NewUsersRepo(store)
	reportsRepo := memory.NewReportsRepo(store)

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	router := apphttp.NewRouter(apphttp.Deps{
		Log:      log,
		Config:   cfg,
		Prom:     prom,
		Gatherer: reg,
		Accounts: accounts.New(usersRepo, tokens, log),
		Reports:  reports.New(reportsRepo, cache.New(time.Minute), prom, log),
		Tokens:   tokens,
		Users:    usersRepo,
	})

	return testApp{router: router, users: usersRepo}
}

func (a testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body=%s", w.Body.String())
	return out
}

type authResponse struct {
	Token string       `json:"token"`
	User  user.Summary `json:"user"`
}

func (a testApp) register(t *testing.T, name, email, password string) authResponse {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/register", "", gin.H{"name": name, "email": email, "password": password})
	require.Equal(t, http.StatusCreated, w.Code, "body=%s", w.Body.String())

	return mustReadJSON[authResponse](t, w)
}

func TestReportLifecycle_EndToEnd(t *testing.T) {
	app := setupApp(t, testConfig())

	alice := app.register(t, "Alice", "alice@example.com", "pw-alice")
	require.NotEmpty(t, alice.Token)
	assert.Equal(t, "alice@example.com", alice.User.Email)

	// duplicate email
	w := app.do(t, http.MethodPost, "/api/register", "", gin.H{"name": "A2", "email": "alice@example.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// login
	w = app.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "alice@example.com", "password": "pw-alice"})
	require.Equal(t, http.StatusOK, w.Code)
	login := mustReadJSON[authResponse](t, w)
	assert.Equal(t, alice.User.ID, login.User.ID)

	// current user
	w = app.do(t, http.MethodGet, "/api/user", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := mustReadJSON[struct {
		User user.Summary `json:"user"`
	}](t, w)
	assert.Equal(t, alice.User.ID, me.User.ID)
	assert.Equal(t, user.RoleUser, me.User.Role)

	// submit ignores the caller's status
	w = app.do(t, http.MethodPost, "/api/detections", alice.Token, gin.H{
		"location":    "Main St",
		"garbageType": "Plastic",
		"severity":    "High",
		"status":      "Resolved",
	})
	require.Equal(t, http.StatusCreated, w.Code, "body=%s", w.Body.String())
	first := mustReadJSON[report.Report](t, w)
	assert.Equal(t, report.StatusPending, first.Status)
	assert.Equal(t, alice.User, first.ReportedBy)

	w = app.do(t, http.MethodPost, "/api/detections", alice.Token, gin.H{
		"location":    "Park",
		"garbageType": "Glass",
		"severity":    "Low",
		"description": "broken bottles",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	second := mustReadJSON[report.Report](t, w)

	// any authenticated user sees every report, newest first
	bob := app.register(t, "Bob", "bob@example.com", "pw-bob")

	w = app.do(t, http.MethodGet, "/api/detections", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, strings.ToLower(w.Body.String()), "password")
	list := mustReadJSON[[]report.Report](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, "Alice", list[0].ReportedBy.Name)
	assert.Equal(t, "alice@example.com", list[0].ReportedBy.Email)
	assert.Equal(t, first.ID, list[1].ID)

	// any authenticated user may move any report to any status
	w = app.do(t, http.MethodPatch, "/api/detections/"+first.ID, bob.Token, gin.H{"status": "In Progress"})
	require.Equal(t, http.StatusOK, w.Code, "body=%s", w.Body.String())
	assert.Equal(t, report.StatusInProgress, mustReadJSON[report.Report](t, w).Status)

	w = app.do(t, http.MethodPatch, "/api/detections/"+first.ID, bob.Token, gin.H{"status": "Pending"})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPatch, "/api/detections/"+first.ID, alice.Token, gin.H{"status": "Resolved"})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPatch, "/api/detections/"+first.ID, bob.Token, gin.H{"status": "Done"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPatch, "/api/detections/not-a-uuid", bob.Token, gin.H{"status": "Resolved"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPatch, "/api/detections/00000000-0000-0000-0000-000000000000", bob.Token, gin.H{"status": "Resolved"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// delete
	w = app.do(t, http.MethodDelete, "/api/detections/"+second.ID, bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Detection deleted", mustReadJSON[map[string]string](t, w)["message"])

	w = app.do(t, http.MethodDelete, "/api/detections/"+second.ID, bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodGet, "/api/detections", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = mustReadJSON[[]report.Report](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, report.StatusResolved, list[0].Status)
}

func TestRegister_MultibytePasswordOverByteLimit(t *testing.T) {
	app := setupApp(t, testConfig())

	// 40 characters, 80 bytes
	w := app.do(t, http.MethodPost, "/api/register", "", gin.H{
		"name":     "Zoé",
		"email":    "zoe@example.com",
		"password": strings.Repeat("é", 40),
	})

	require.Equal(t, http.StatusBadRequest, w.Code, "body=%s", w.Body.String())

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []struct {
					Field string `json:"field"`
					Rule  string `json:"rule"`
				} `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_request", resp.Error.Code)
	require.Len(t, resp.Error.Details.Fields, 1)
	assert.Equal(t, "password", resp.Error.Details.Fields[0].Field)
	assert.Equal(t, "max_bytes", resp.Error.Details.Fields[0].Rule)

	// 36 characters, 72 bytes
	app.register(t, "Zoé", "zoe@example.com", strings.Repeat("é", 36))
}

func TestAuth_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	app := setupApp(t, testConfig())
	app.register(t, "Alice", "alice@example.com", "pw-alice")

	wrong := app.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "alice@example.com", "password": "nope"})
	unknown := app.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "nobody@example.com", "password": "nope"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)

	type body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	assert.Equal(t, mustReadJSON[body](t, wrong).Error, mustReadJSON[body](t, unknown).Error)
}

func TestAuth_TokenStopsResolvingAfterUserDeleted(t *testing.T) {
	app := setupApp(t, testConfig())
	alice := app.register(t, "Alice", "alice@example.com", "pw-alice")

	w := app.do(t, http.MethodPost, "/api/detections", alice.Token, gin.H{
		"location": "Main St", "garbageType": "Plastic", "severity": "Medium",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, app.users.Delete(context.Background(), alice.User.ID))

	w = app.do(t, http.MethodGet, "/api/user", alice.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// reports outlive their author
	bob := app.register(t, "Bob", "bob@example.com", "pw-bob")
	w = app.do(t, http.MethodGet, "/api/detections", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := mustReadJSON[[]report.Report](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, alice.User.ID, list[0].ReportedBy.ID)
}

func TestAuth_RejectsForeignTokens(t *testing.T) {
	app := setupApp(t, testConfig())
	alice := app.register(t, "Alice", "alice@example.com", "pw-alice")

	foreign, err := auth.NewManager("other-secret", 0).Issue(alice.User.ID)
	require.NoError(t, err)

	for _, token := range []string{"", "garbage", foreign} {
		w := app.do(t, http.MethodGet, "/api/detections", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "token %q", token)
	}
}

func TestAuth_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit = 2
	app := setupApp(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := app.do(t, http.MethodPost, "/api/login", "", gin.H{"email": "x@example.com", "password": "x"})
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestReportWrites_RateLimitedPerCaller(t *testing.T) {
	cfg := testConfig()
	cfg.WriteRateLimit = 1
	cfg.WriteRateWindow = time.Minute
	app := setupApp(t, cfg)

	alice := app.register(t, "Alice", "alice@example.com", "password123")
	bob := app.register(t, "Bob", "bob@example.com", "password123")

	submit := func(token string) *httptest.ResponseRecorder {
		return app.do(t, http.MethodPost, "/api/detections", token, gin.H{
			"location":    "Main St",
			"garbageType": "Plastic",
			"severity":    "High",
		})
	}

	w := submit(alice.Token)
	require.Equal(t, http.StatusCreated, w.Code, "body=%s", w.Body.String())
	created := mustReadJSON[report.Report](t, w)

	w = submit(alice.Token)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// alice's budget also covers status updates and deletes
	w = app.do(t, http.MethodDelete, "/api/detections/"+created.ID, alice.Token, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = submit(bob.Token)
	assert.Equal(t, http.StatusCreated, w.Code, "body=%s", w.Body.String())

	// reads are not counted
	for i := 0; i < 3; i++ {
		w = app.do(t, http.MethodGet, "/api/detections", alice.Token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := setupApp(t, testConfig())

	w := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	app.do(t, http.MethodGet, "/api/detections", "", nil)

	w = app.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "garbagewatch_auth_failures_total"), "metrics body missing auth failures")
}
