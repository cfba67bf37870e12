package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodispatch/internal/app/dispatch"
	"geodispatch/internal/app/geo"
	"geodispatch/internal/app/presence"
	"geodispatch/internal/configs"
	"geodispatch/internal/pkg/errs"
	"geodispatch/internal/pkg/resp"
)

func newTestDeps() *AppDeps {
	registry := presence.NewRegistry()

	return &AppDeps{
		Registry:   registry,
		Dispatcher: dispatch.NewDispatcher(registry),
		Profiles:   nil,
		Config: &configs.AppConfig{
			Environment:    "development",
			Port:           8080,
			AllowedOrigins: []string{},
		},
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, resp.JSONResponse) {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	r := httptest.NewRequest(method, path, reqBody)
	r.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	var envelope resp.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))

	return w, envelope
}

func TestHandleRegisterSuccess(t *testing.T) {
	deps := newTestDeps()
	router := Router(deps)

	w, envelope := doJSON(t, router, http.MethodPost, "/api/register", RegisterInput{
		Username: "alice",
		Position: geo.Coordinate{Latitude: 52.52, Longitude: 13.405},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, envelope.Code)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "created", data["status"])
	assert.Equal(t, "alice", data["username"])

	registered, _ := deps.Registry.Counts()
	assert.Equal(t, 1, registered)
}

func TestHandleRegisterDuplicate(t *testing.T) {
	deps := newTestDeps()
	router := Router(deps)

	input := RegisterInput{
		Username: "alice",
		Position: geo.Coordinate{Latitude: 1, Longitude: 1},
	}

	_, first := doJSON(t, router, http.MethodPost, "/api/register", input)
	assert.Equal(t, 0, first.Code)

	w, second := doJSON(t, router, http.MethodPost, "/api/register", input)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, errs.ErrDuplicateUser, second.Code)

	registered, _ := deps.Registry.Counts()
	assert.Equal(t, 1, registered, "failed registration must leave exactly one entry")
}

func TestHandleRegisterInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		wantCode int
	}{
		{
			name:     "missing username",
			body:     RegisterInput{Position: geo.Coordinate{Latitude: 1, Longitude: 1}},
			wantCode: errs.ErrInvalidParams,
		},
		{
			name:     "latitude out of range",
			body:     RegisterInput{Username: "bob", Position: geo.Coordinate{Latitude: 91, Longitude: 0}},
			wantCode: errs.ErrInvalidCoordinates,
		},
		{
			name:     "longitude out of range",
			body:     RegisterInput{Username: "bob", Position: geo.Coordinate{Latitude: 0, Longitude: -181}},
			wantCode: errs.ErrInvalidCoordinates,
		},
		{
			name:     "unknown fields",
			body:     map[string]any{"username": "bob", "position": map[string]any{"latitude": 1.0, "longitude": 1.0}, "extra": true},
			wantCode: errs.ErrInvalidJSONFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := Router(newTestDeps())

			_, envelope := doJSON(t, router, http.MethodPost, "/api/register", tt.body)
			assert.Equal(t, tt.wantCode, envelope.Code)
		})
	}
}

func TestHandleRegisterRequiresJSONContentType(t *testing.T) {
	router := Router(newTestDeps())

	r := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewBufferString("username=alice"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	var envelope resp.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, errs.ErrUnsupportedMediaType, envelope.Code)
}

func TestHandleSendNoRecipient(t *testing.T) {
	router := Router(newTestDeps())

	w, envelope := doJSON(t, router, http.MethodPost, "/api/send", SendInput{
		Message:  "anyone there?",
		Position: geo.Coordinate{Latitude: 0, Longitude: 0},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, errs.ErrNoRecipient, envelope.Code)
}

func TestHandleSendEmptyMessage(t *testing.T) {
	router := Router(newTestDeps())

	_, envelope := doJSON(t, router, http.MethodPost, "/api/send", SendInput{
		Message:  "",
		Position: geo.Coordinate{Latitude: 0, Longitude: 0},
	})

	assert.Equal(t, errs.ErrInvalidParams, envelope.Code)
}

func TestHandleGetProfileWithoutStore(t *testing.T) {
	router := Router(newTestDeps())

	_, envelope := doJSON(t, router, http.MethodGet, "/api/profiles/alice", nil)
	assert.Equal(t, errs.ErrStorageFailed, envelope.Code)
}

func TestHealthEndpoint(t *testing.T) {
	deps := newTestDeps()
	router := Router(deps)

	require.Nil(t, deps.Registry.Register("alice", geo.Coordinate{}))

	_, envelope := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, 0, envelope.Code)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, float64(1), data["registered"])
	assert.Equal(t, float64(0), data["connected"])
}
