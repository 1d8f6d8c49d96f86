// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
)

// CreateMeetingBody is the payload of POST /meetings.
type CreateMeetingBody struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	MaxParticipants int       `json:"max_participants"`
	MeetingDate     time.Time `json:"meeting_date"`
}

func (a *MeetupsAPI) registerMeetingRoutes(g *echo.Group) {
	g.POST("", a.CreateMeeting)
	g.GET("/:meeting_uid", a.GetMeeting)
	g.GET("/:meeting_uid/occupancy", a.GetOccupancy)
	g.DELETE("/:meeting_uid", a.CancelMeeting)

	g.POST("/:meeting_uid/participations", a.RequestJoin)
	g.GET("/:meeting_uid/participations", a.ListApplicants)
	g.PATCH("/:meeting_uid/participations", a.ApplyDecisions)
	g.DELETE("/:meeting_uid/participations/:participation_uid", a.WithdrawOrRemove)
}

// CreateMeeting handles POST /meetings. The caller becomes the host.
func (a *MeetupsAPI) CreateMeeting(c echo.Context) error {
	callerUID, ok := principal(c)
	if !ok {
		return nil
	}

	var body CreateMeetingBody
	if !bindJSON(c, &body) {
		return nil
	}

	meeting, err := a.meetupService.CreateMeeting(c.Request().Context(), &models.CreateMeetingRequest{
		HostUID:         callerUID,
		Title:           body.Title,
		Description:     body.Description,
		MaxParticipants: body.MaxParticipants,
		MeetingDate:     body.MeetingDate,
	})
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusCreated, meeting)
}

// GetMeeting handles GET /meetings/:meeting_uid.
func (a *MeetupsAPI) GetMeeting(c echo.Context) error {
	meeting, err := a.meetupService.GetMeeting(c.Request().Context(), c.Param("meeting_uid"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, meeting)
}

// GetOccupancy handles GET /meetings/:meeting_uid/occupancy.
func (a *MeetupsAPI) GetOccupancy(c echo.Context) error {
	occupancy, err := a.meetupService.GetOccupancy(c.Request().Context(), c.Param("meeting_uid"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, occupancy)
}

// CancelMeeting handles DELETE /meetings/:meeting_uid. Host only.
func (a *MeetupsAPI) CancelMeeting(c echo.Context) error {
	callerUID, ok := principal(c)
	if !ok {
		return nil
	}

	if err := a.meetupService.CancelMeeting(c.Request().Context(), c.Param("meeting_uid"), callerUID); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
