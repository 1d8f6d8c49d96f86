// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/infrastructure/cache"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/infrastructure/userdir"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-meetup-service/pkg/constants"
)

// tokenAuth accepts "Bearer <user>" for every user it knows.
type tokenAuth map[string]bool

func (a tokenAuth) ParsePrincipal(_ context.Context, token string, _ *slog.Logger) (string, error) {
	user := strings.TrimPrefix(token, "Bearer ")
	if !a[user] {
		return "", errors.New("unknown token")
	}
	return user, nil
}

type apiClient struct {
	t      *testing.T
	router *echo.Echo
}

func newAPIClient(t *testing.T) *apiClient {
	t.Helper()

	memStore := store.NewMemoryMeetingStore(nil)

	builder := &mocks.MockMessageBuilder{}
	builder.On("SendParticipationRequested", mock.Anything, mock.Anything).Return(nil).Maybe()
	builder.On("SendParticipationDecided", mock.Anything, mock.Anything).Return(nil).Maybe()
	builder.On("SendParticipationRemoved", mock.Anything, mock.Anything).Return(nil).Maybe()
	builder.On("SendMeetingCancelled", mock.Anything, mock.Anything).Return(nil).Maybe()

	meetingCache := cache.NoOpMeetingCache{}
	api := NewMeetupsAPI(
		service.NewMeetupService(memStore, meetingCache, builder, nil, service.ServiceConfig{}),
		service.NewParticipationService(memStore, meetingCache, builder, userdir.NewNoOpDirectory(), nil, service.ServiceConfig{}),
		service.NewNotificationService(memStore),
	)

	auth := tokenAuth{"host-1": true, "user-a": true, "user-b": true}
	return &apiClient{t: t, router: newRouter(api, auth)}
}

// do sends a request as user (no auth header when empty) and decodes the
// JSON response into out when out is non-nil.
func (c *apiClient) do(method, path, user string, body any, out any) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != "" {
		req.Header.Set(constants.AuthorizationHeader, "Bearer "+user)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Code
}

func (c *apiClient) createMeeting(maxParticipants int) *models.Meeting {
	c.t.Helper()
	var meeting models.Meeting
	rec := c.do(http.MethodPost, "/meetings", "host-1", CreateMeetingBody{
		Title:           "Gophers at the park",
		MaxParticipants: maxParticipants,
		MeetingDate:     time.Now().Add(72 * time.Hour),
	}, &meeting)
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	return &meeting
}

func (c *apiClient) requestJoin(meetingUID, user string) *models.Participation {
	c.t.Helper()
	var participation models.Participation
	rec := c.do(http.MethodPost, "/meetings/"+meetingUID+"/participations", user, nil, &participation)
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	return &participation
}

func TestHealthEndpoints(t *testing.T) {
	c := newAPIClient(t)

	rec := c.do(http.MethodGet, "/livez", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodGet, "/readyz", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(constants.RequestIDHeader))
}

func TestAuthenticationRequired(t *testing.T) {
	c := newAPIClient(t)

	rec := c.do(http.MethodGet, "/notifications", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodGet, "/notifications", "stranger", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, errorCodeUnauthorized, errorCode(t, rec))
}

func TestMeetingLifecycle(t *testing.T) {
	c := newAPIClient(t)

	meeting := c.createMeeting(2)
	assert.Equal(t, "host-1", meeting.HostUID)
	assert.Equal(t, 1, meeting.CurrentParticipants)

	var fetched models.Meeting
	rec := c.do(http.MethodGet, "/meetings/"+meeting.UID, "user-a", nil, &fetched)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, meeting.Title, fetched.Title)

	a := c.requestJoin(meeting.UID, "user-a")
	b := c.requestJoin(meeting.UID, "user-b")
	assert.Equal(t, models.ParticipationStatusPending, a.Status)

	t.Run("duplicate request conflicts", func(t *testing.T) {
		rec := c.do(http.MethodPost, "/meetings/"+meeting.UID+"/participations", "user-a", nil, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("only the host lists applicants", func(t *testing.T) {
		rec := c.do(http.MethodGet, "/meetings/"+meeting.UID+"/participations", "user-a", nil, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		var applicants []models.ApplicantView
		rec = c.do(http.MethodGet, "/meetings/"+meeting.UID+"/participations", "host-1", nil, &applicants)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, applicants, 2)
	})

	t.Run("accept fills the meetup", func(t *testing.T) {
		var applied []models.Participation
		rec := c.do(http.MethodPatch, "/meetings/"+meeting.UID+"/participations", "host-1", ApplyDecisionsBody{
			Decisions: []DecisionBody{{ParticipationUID: a.UID, Status: "accepted"}},
		}, &applied)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Len(t, applied, 1)
		assert.Equal(t, models.ParticipationStatusAccepted, applied[0].Status)

		var occupancy models.Occupancy
		c.do(http.MethodGet, "/meetings/"+meeting.UID+"/occupancy", "host-1", nil, &occupancy)
		assert.Equal(t, 2, occupancy.CurrentParticipants)
	})

	t.Run("overflow is refused with a distinct code", func(t *testing.T) {
		rec := c.do(http.MethodPatch, "/meetings/"+meeting.UID+"/participations", "host-1", ApplyDecisionsBody{
			Decisions: []DecisionBody{{ParticipationUID: b.UID, Status: "ACCEPTED"}},
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errorCodeCapacityExceeded, errorCode(t, rec))
	})

	t.Run("unknown status is a validation error", func(t *testing.T) {
		rec := c.do(http.MethodPatch, "/meetings/"+meeting.UID+"/participations", "host-1", ApplyDecisionsBody{
			Decisions: []DecisionBody{{ParticipationUID: b.UID, Status: "MAYBE"}},
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errorCodeValidation, errorCode(t, rec))
	})

	t.Run("notifications", func(t *testing.T) {
		var inbox []models.Notification
		rec := c.do(http.MethodGet, "/notifications?unread=true", "user-a", nil, &inbox)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, inbox, 1)
		assert.Equal(t, models.NotificationTypeParticipationAccepted, inbox[0].Type)

		rec = c.do(http.MethodPut, "/notifications/"+inbox[0].UID+"/read", "user-a", nil, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = c.do(http.MethodGet, "/notifications?unread=true", "user-a", nil, &inbox)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, inbox)

		rec = c.do(http.MethodGet, "/notifications?unread=maybe", "user-a", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("withdraw frees the slot", func(t *testing.T) {
		rec := c.do(http.MethodDelete, "/meetings/"+meeting.UID+"/participations/"+a.UID, "user-a", nil, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		var occupancy models.Occupancy
		c.do(http.MethodGet, "/meetings/"+meeting.UID+"/occupancy", "host-1", nil, &occupancy)
		assert.Equal(t, 1, occupancy.CurrentParticipants)
	})

	t.Run("a stranger cannot remove a participation", func(t *testing.T) {
		rec := c.do(http.MethodDelete, "/meetings/"+meeting.UID+"/participations/"+b.UID, "user-a", nil, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("cancelled meetup is gone", func(t *testing.T) {
		rec := c.do(http.MethodDelete, "/meetings/"+meeting.UID, "user-a", nil, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = c.do(http.MethodDelete, "/meetings/"+meeting.UID, "host-1", nil, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = c.do(http.MethodGet, "/meetings/"+meeting.UID, "user-a", nil, nil)
		assert.Equal(t, http.StatusGone, rec.Code)

		rec = c.do(http.MethodPost, "/meetings/"+meeting.UID+"/participations", "user-a", nil, nil)
		assert.Equal(t, http.StatusGone, rec.Code)
	})
}

func TestCreateMeetingValidation(t *testing.T) {
	c := newAPIClient(t)

	rec := c.do(http.MethodPost, "/meetings", "host-1", CreateMeetingBody{
		Title:           "",
		MaxParticipants: 3,
		MeetingDate:     time.Now().Add(time.Hour),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/meetings", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(constants.AuthorizationHeader, "Bearer host-1")
	raw := httptest.NewRecorder()
	c.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
	assert.Equal(t, errorCodeValidation, errorCode(t, raw))

	rec = c.do(http.MethodGet, "/meetings/missing", "host-1", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.NewValidationError("bad"), http.StatusBadRequest, errorCodeValidation},
		{domain.NewCapacityExceededError("full"), http.StatusBadRequest, errorCodeCapacityExceeded},
		{domain.NewNotFoundError("missing"), http.StatusNotFound, errorCodeNotFound},
		{domain.NewGoneError("deleted"), http.StatusGone, errorCodeGone},
		{domain.NewForbiddenError("host only"), http.StatusForbidden, errorCodeForbidden},
		{domain.NewConflictError("dup"), http.StatusConflict, errorCodeConflict},
		{domain.NewInternalError("boom"), http.StatusInternalServerError, errorCodeInternal},
		{domain.NewUnavailableError("down"), http.StatusServiceUnavailable, errorCodeUnavailable},
		{errors.New("plain"), http.StatusInternalServerError, errorCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
