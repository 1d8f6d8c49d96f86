// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/service"
)

// MeetupsAPI is the HTTP transport over the meetup services. It only decodes
// requests, resolves the caller and maps domain errors to status codes.
type MeetupsAPI struct {
	meetupService        *service.MeetupService
	participationService *service.ParticipationService
	notificationService  *service.NotificationService
}

// NewMeetupsAPI creates a new MeetupsAPI.
func NewMeetupsAPI(
	meetupService *service.MeetupService,
	participationService *service.ParticipationService,
	notificationService *service.NotificationService,
) *MeetupsAPI {
	return &MeetupsAPI{
		meetupService:        meetupService,
		participationService: participationService,
		notificationService:  notificationService,
	}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes carried in ErrorResponse.Code.
const (
	errorCodeValidation       = "validation"
	errorCodeCapacityExceeded = "capacity_exceeded"
	errorCodeNotFound         = "not_found"
	errorCodeGone             = "gone"
	errorCodeForbidden        = "forbidden"
	errorCodeConflict         = "conflict"
	errorCodeUnauthorized     = "unauthorized"
	errorCodeInternal         = "internal"
	errorCodeUnavailable      = "unavailable"
)

// errorStatus maps a domain error to its HTTP status and body code.
func errorStatus(err error) (int, string) {
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest, errorCodeValidation
	case domain.ErrorTypeCapacityExceeded:
		return http.StatusBadRequest, errorCodeCapacityExceeded
	case domain.ErrorTypeNotFound:
		return http.StatusNotFound, errorCodeNotFound
	case domain.ErrorTypeGone:
		return http.StatusGone, errorCodeGone
	case domain.ErrorTypeForbidden:
		return http.StatusForbidden, errorCodeForbidden
	case domain.ErrorTypeConflict:
		return http.StatusConflict, errorCodeConflict
	case domain.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable, errorCodeUnavailable
	default:
		return http.StatusInternalServerError, errorCodeInternal
	}
}

// handleError writes the JSON error body for err. Internal failures never
// leak their message to the caller.
func handleError(c echo.Context, err error) error {
	status, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request failed", logging.ErrKey, err)
		message = "internal server error"
	}
	return c.JSON(status, ErrorResponse{Code: code, Message: message})
}

// principal returns the authenticated caller, writing a 401 when absent.
func principal(c echo.Context) (string, bool) {
	p, ok := middleware.PrincipalFromContext(c.Request().Context())
	if !ok {
		_ = c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    errorCodeUnauthorized,
			Message: "a valid bearer token is required",
		})
	}
	return p, ok
}

// bindJSON decodes the request body, answering 400 on malformed input.
func bindJSON(c echo.Context, target any) bool {
	if err := c.Bind(target); err != nil {
		_ = handleError(c, domain.NewValidationError("malformed request body", err))
		return false
	}
	return true
}

// Readyz checks if the service is able to take inbound requests.
func (a *MeetupsAPI) Readyz(c echo.Context) error {
	if !a.meetupService.ServiceReady() ||
		!a.participationService.ServiceReady() ||
		!a.notificationService.ServiceReady() ||
		!a.meetupService.MeetingStore.IsReady() {
		return handleError(c, domain.ErrServiceUnavailable)
	}
	return c.String(http.StatusOK, "OK\n")
}

// Livez checks if the service is alive.
func (a *MeetupsAPI) Livez(c echo.Context) error {
	// Always OK while the process runs; non-recoverable errors terminate it.
	return c.String(http.StatusOK, "OK\n")
}
