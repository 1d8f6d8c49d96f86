// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
)

// DecisionBody is one decision of PATCH /meetings/:meeting_uid/participations.
// Status is parsed case-insensitively.
type DecisionBody struct {
	ParticipationUID string `json:"participation_uid"`
	Status           string `json:"status"`
}

// ApplyDecisionsBody is the payload of PATCH /meetings/:meeting_uid/participations.
type ApplyDecisionsBody struct {
	Decisions []DecisionBody `json:"decisions"`
}

func (b ApplyDecisionsBody) toDomain() ([]models.ParticipationDecision, error) {
	decisions := make([]models.ParticipationDecision, 0, len(b.Decisions))
	for _, d := range b.Decisions {
		status, err := models.ParseParticipationStatus(d.Status)
		if err != nil {
			return nil, domain.NewValidationError(err.Error(), err)
		}
		decisions = append(decisions, models.ParticipationDecision{
			ParticipationUID: d.ParticipationUID,
			Status:           status,
		})
	}
	return decisions, nil
}

// RequestJoin handles POST /meetings/:meeting_uid/participations.
func (a *MeetupsAPI) RequestJoin(c echo.Context) error {
	callerUID, ok := principal(c)
	if !ok {
		return nil
	}

	participation, err := a.participationService.RequestJoin(c.Request().Context(), c.Param("meeting_uid"), callerUID)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusCreated, participation)
}

// ListApplicants handles GET /meetings/:meeting_uid/participations. Host only.
func (a *MeetupsAPI) ListApplicants(c echo.Context) error {
	callerUID, ok := principal(c)
	if !ok {
		return nil
	}

	applicants, err := a.participationService.ListApplicants(c.Request().Context(), c.Param("meeting_uid"), callerUID)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, applicants)
}

// ApplyDecisions handles PATCH /meetings/:meeting_uid/participations. Host only.
// The response lists the rows whose status actually changed.
func (a *MeetupsAPI) ApplyDecisions(c echo.Context) error {
	callerUID, ok := principal(c)
	if !ok {
		return nil
	}

	var body ApplyDecisionsBody
	if !bindJSON(c, &body) {
		return nil
	}
	decisions, err := body.toDomain()
	if err != nil {
		return handleError(c, err)
	}

	applied, err := a.participationService.ApplyDecisions(c.Request().Context(), c.Param("meeting_uid"), callerUID, decisions)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, applied)
}

// WithdrawOrRemove handles DELETE /meetings/:meeting_uid/participations/:participation_uid.
// The requester withdraws; the host removes.
func (a *MeetupsAPI) WithdrawOrRemove(c echo.Context) error {
	callerUID, ok := principal(c)
	if !ok {
		return nil
	}

	err := a.participationService.WithdrawOrRemove(
		c.Request().Context(),
		c.Param("meeting_uid"),
		c.Param("participation_uid"),
		callerUID,
	)
	if err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
