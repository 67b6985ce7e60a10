package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prezenta-go-api/internal/config"
	"github.com/noah-isme/prezenta-go-api/internal/database"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Reason  string          `json:"reason"`
	Data    json.RawMessage `json:"data"`
}

func testConfig() config.Config {
	return config.Config{
		AppName:       "prezenta-test",
		AppEnv:        "test",
		BaseURL:       "https://prezenta.example.edu",
		JWTSecret:     "test-secret",
		JWTTTL:        time.Hour,
		ScanRateLimit: 100,
		Attendance: config.Attendance{
			TokenValidity:     10 * time.Second,
			ScanBuffer:        7 * time.Second,
			SessionDuration:   40 * time.Second,
			TokenGrace:        10 * time.Second,
			DeviceCooldown:    2 * time.Minute,
			SweepInterval:     time.Second,
			AllowedIPPrefixes: []string{"81.180."},
			Classrooms:        config.DefaultClassrooms(),
		},
	}
}

func newTestApp(t *testing.T, name string) *fiber.App {
	t.Helper()

	db, err := database.ConnectSQLite("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	app, err := buildApp(context.Background(), testConfig(), infrastructure{DB: db, Redis: client}, zerolog.Nop())
	require.NoError(t, err)
	return app
}

func call(t *testing.T, app *fiber.App, method, target, bearer string, payload interface{}, headers map[string]string) (int, apiResponse) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestAttendanceFlowOverHTTP(t *testing.T) {
	app := newTestApp(t, "api_flow")

	status, _ := call(t, app, http.MethodGet, "/api/v1/health", "", nil, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/admin/dashboard", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, body := call(t, app, http.MethodGet, "/api/v1/auth/default-password", "", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"using_default":true}`, string(body.Data))

	status, body = call(t, app, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"username": "admin", "password": "admin123"}, nil)
	require.Equal(t, http.StatusOK, status)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &login))
	require.NotEmpty(t, login.AccessToken)

	status, body = call(t, app, http.MethodPost, "/api/v1/students/register", "", fiber.Map{
		"name":         "Ana",
		"surname":      "Popescu",
		"group":        "TI-221",
		"device_token": "phone-secret",
	}, map[string]string{"User-Agent": "Mozilla/5.0 (iPhone)"})
	require.Equal(t, http.StatusCreated, status, body.Message)

	status, body = call(t, app, http.MethodPost, "/api/v1/admin/qr", login.AccessToken, fiber.Map{
		"lesson_id": "algorithms",
		"classroom": "6-2",
	}, nil)
	require.Equal(t, http.StatusCreated, status, body.Message)
	var issued struct {
		Token       string `json:"token"`
		DisplayCode string `json:"display_code"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &issued))
	require.NotEmpty(t, issued.Token)
	require.Len(t, issued.DisplayCode, 5)

	scan := fiber.Map{
		"qr_token":     issued.Token,
		"device_token": "phone-secret",
		"latitude":     47.0617782,
		"longitude":    28.8679226,
	}
	onCampus := map[string]string{"X-Forwarded-For": "81.180.4.20"}

	status, body = call(t, app, http.MethodPost, "/api/v1/attendance/verify", "", scan, map[string]string{"X-Forwarded-For": "8.8.8.8"})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "network_not_allowed", body.Reason)

	status, body = call(t, app, http.MethodPost, "/api/v1/attendance/verify", "", scan, onCampus)
	require.Equal(t, http.StatusOK, status, body.Message)
	require.Equal(t, "Attendance recorded for Popescu Ana", body.Message)

	status, body = call(t, app, http.MethodPost, "/api/v1/attendance/verify", "", scan, onCampus)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "already_marked", body.Reason)

	status, body = call(t, app, http.MethodPost, "/api/v1/devices/reregister", "", fiber.Map{
		"name":                  "Ana",
		"surname":               "Popescu",
		"group":                 "TI-221",
		"confirmation_code":     "TI-221A",
		"existing_device_token": "phone-secret",
	}, nil)
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, "device_cooldown", body.Reason)

	status, body = call(t, app, http.MethodGet, "/api/v1/admin/dashboard", login.AccessToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
	var dashboard struct {
		TotalStudents int64 `json:"total_students"`
		TotalRecords  int64 `json:"total_records"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &dashboard))
	require.EqualValues(t, 1, dashboard.TotalStudents)
	require.EqualValues(t, 1, dashboard.TotalRecords)

	status, _ = call(t, app, http.MethodGet, "/metrics", "", nil, nil)
	require.Equal(t, http.StatusOK, status)
}
