package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/SlpAus/space-notes-backend/internal/gate"
	"github.com/SlpAus/space-notes-backend/internal/platform/config"
	"github.com/SlpAus/space-notes-backend/internal/platform/startup"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, gatePassword string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := &config.Config{
		Server:   config.ServerConfig{Cors: config.CorsConfig{AllowedOrigins: []string{"http://localhost:3000"}}},
		Database: config.DatabaseConfig{Driver: "sqlite", Sqlite: config.SqliteConfig{Path: filepath.Join(dir, "notes.db")}},
		Blob:     config.BlobConfig{Driver: "memory"},
		Auth:     config.AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour},
		Gate:     config.GateConfig{Password: gatePassword, TTL: time.Hour},
		Notes:    config.NotesConfig{MaxContentBytes: 1 << 20, CompensateCreate: true, ListConcurrency: 4},
	}
	if gatePassword != "" {
		mr := miniredis.RunT(t)
		cfg.Database.Redis = config.RedisConfig{Address: mr.Addr()}
	}

	app, err := startup.InitializeApplication(context.Background(), cfg, io.Discard)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return NewRouter(app)
}

type client struct {
	t       *testing.T
	r       http.Handler
	cookies map[string]*http.Cookie
	bearer  string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func TestGatedNoteFlow(t *testing.T) {
	c := &client{t: t, r: newTestApp(t, "orbit"), cookies: map[string]*http.Cookie{}}

	w := c.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "u@example.com", "password": "password1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "u@example.com", "password": "password1"})
	require.Equal(t, http.StatusOK, w.Code)

	// 已登录但未解锁
	w = c.do(http.MethodGet, "/api/notes", nil)
	assert.Equal(t, http.StatusLocked, w.Code)

	w = c.do(http.MethodPost, "/api/gate/unlock", map[string]string{"password": "orbit"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, c.cookies, gate.CookieName)

	w = c.do(http.MethodPost, "/api/notes", map[string]string{"title": "Launch Checklist", "content": "# Step 1\nFuel"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = c.do(http.MethodGet, "/api/notes?content=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Launch Checklist")

	w = c.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"healthy"`)

	w = c.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "notes_operations_total")
}

func TestNotesRequireLoginWhenGateDisabled(t *testing.T) {
	c := &client{t: t, r: newTestApp(t, ""), cookies: map[string]*http.Cookie{}}

	w := c.do(http.MethodGet, "/api/gate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"enabled":false,"unlocked":true}`, w.Body.String())

	w = c.do(http.MethodGet, "/api/notes", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
