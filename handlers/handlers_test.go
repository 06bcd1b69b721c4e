package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/andrewpaige1/stratdesk-api/auth"
	"github.com/andrewpaige1/stratdesk-api/config"
	"github.com/andrewpaige1/stratdesk-api/models"
	"github.com/andrewpaige1/stratdesk-api/seed"
	"github.com/andrewpaige1/stratdesk-api/vault"
)

const adminSubject = "auth0|admin"

type testServer struct {
	t      *testing.T
	cfg    config.Config
	db     *gorm.DB
	h      *DBHandler
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Config{
		IsDevelopment:   true,
		JWTSecret:       "test-secret",
		Auth0Audience:   "stratdesk-api",
		AllowedOrigins:  []string{"http://localhost:3000"},
		AdminSubjects:   []string{adminSubject},
		MaxLiveQuantity: 50,
		QuizPassPercent: 70,
	}

	db, err := config.Connect("sqlite:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, config.Migrate(db))

	cat, err := seed.Default()
	require.NoError(t, err)
	_, err = seed.Apply(context.Background(), db, zap.NewNop(), cat)
	require.NoError(t, err)

	v, err := vault.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	h := New(db, zap.NewNop(), cfg, v)
	router, err := h.NewRouter()
	require.NoError(t, err)
	return &testServer{t: t, cfg: cfg, db: db, h: h, router: router}
}

func (ts *testServer) token(subject string) string {
	ts.t.Helper()
	tok, err := auth.CreateToken(ts.cfg.JWTSecret, ts.cfg.Issuer(), ts.cfg.Auth0Audience, subject, "nick-"+subject, "", time.Hour)
	require.NoError(ts.t, err)
	return tok
}

// do sends a request as subject ("" for anonymous) and returns the recorder.
func (ts *testServer) do(method, path, subject string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token(subject))
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// doJSON sends a request, checks the status and decodes the response.
func (ts *testServer) doJSON(method, path, subject string, body any, status int, out any) {
	ts.t.Helper()
	rec := ts.do(method, path, subject, body)
	require.Equal(ts.t, status, rec.Code, rec.Body.String())
	if out != nil {
		require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), out))
	}
}

type strategyJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	IsPremium bool   `json:"is_premium"`
	Paid      bool   `json:"paid"`
	Selection *struct {
		IsWishlisted bool   `json:"is_wishlisted"`
		IsPaid       bool   `json:"is_paid"`
		Mode         string `json:"mode"`
		Quantity     int    `json:"quantity"`
	} `json:"selection"`
	Step string `json:"step"`
}

func (ts *testServer) strategyID(name string) string {
	ts.t.Helper()
	var s models.Strategy
	require.NoError(ts.t, ts.db.Where("name = ?", name).First(&s).Error)
	return s.PublicID
}

func (ts *testServer) userID(subject string) uint {
	ts.t.Helper()
	var u models.User
	require.NoError(ts.t, ts.db.Where("auth0_id = ?", subject).First(&u).Error)
	return u.ID
}

type validationJSON struct {
	Error  string `json:"error"`
	Step   string `json:"step"`
	Fields []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"fields"`
}

func (v validationJSON) has(field string) bool {
	for _, f := range v.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
