package handler

import (
	"citizenone/models"
	"citizenone/repository"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackerFunc func(ctx context.Context, number string) (*models.PublicComplaint, error)

func (f trackerFunc) TrackComplaint(ctx context.Context, number string) (*models.PublicComplaint, error) {
	return f(ctx, number)
}

func TestTrackComplaint(t *testing.T) {
	h := NewPublicHandler(trackerFunc(func(ctx context.Context, number string) (*models.PublicComplaint, error) {
		if number != "CMP-26-10-0001" {
			return nil, fmt.Errorf("%w: complaint %s", repository.ErrNotFound, number)
		}
		return &models.PublicComplaint{ComplaintNumber: number, Status: models.StatusInProgress}, nil
	}))
	r := mux.NewRouter()
	r.HandleFunc("/public/complaints/{complaint_number}", h.TrackComplaint)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/public/complaints/CMP-26-10-0001", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "in_progress", body["status"])
	assert.NotContains(t, body, "citizen_id")
	assert.NotContains(t, body, "comments")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/public/complaints/CMP-00-00-0000", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(pingFunc(func(context.Context) error { return nil })).Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	NewHealthHandler(pingFunc(func(context.Context) error { return errors.New("down") })).Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
