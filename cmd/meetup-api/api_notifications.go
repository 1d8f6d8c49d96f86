// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
)

func (a *MeetupsAPI) registerNotificationRoutes(g *echo.Group) {
	g.GET("", a.ListNotifications)
	g.PUT("/:notification_uid/read", a.MarkNotificationRead)
}

// ListNotifications handles GET /notifications, newest first.
// ?unread=true limits the result to unread entries.
func (a *MeetupsAPI) ListNotifications(c echo.Context) error {
	callerUID, ok := principal(c)
	if !ok {
		return nil
	}

	unreadOnly := false
	if raw := c.QueryParam("unread"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return handleError(c, domain.NewValidationError("unread must be a boolean", err))
		}
		unreadOnly = parsed
	}

	notifications, err := a.notificationService.ListNotifications(c.Request().Context(), callerUID, unreadOnly)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, notifications)
}

// MarkNotificationRead handles PUT /notifications/:notification_uid/read.
func (a *MeetupsAPI) MarkNotificationRead(c echo.Context) error {
	callerUID, ok := principal(c)
	if !ok {
		return nil
	}

	if err := a.notificationService.MarkNotificationRead(c.Request().Context(), c.Param("notification_uid"), callerUID); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
