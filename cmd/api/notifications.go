package main

import (
	"net/http"

	"github.com/farxc/presupuestos-estudio/internal/notify"
	"github.com/farxc/presupuestos-estudio/internal/response"
)

type NotificationsResponse = response.APIResponse[[]notify.Notice]

// @Summary		Notifications
// @Description	Outcomes of background writes (margin and progress edits) for the caller, oldest first. Reading removes them.
// @Tags			Notifications
// @Produce		json
// @Success		200	{object}	NotificationsResponse
// @Router			/notifications [get]
func (app *application) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	notices := app.feed.Drain(session(r).UserID())
	respond(w, http.StatusOK, "", notices)
}
