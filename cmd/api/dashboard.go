package main

import (
	"net/http"

	"github.com/farxc/presupuestos-estudio/internal/report"
	"github.com/farxc/presupuestos-estudio/internal/response"
)

type dashboardView struct {
	Groups []report.Group `json:"grupos"`
	Totals report.Totals  `json:"totales"`
}

type DashboardResponse = response.APIResponse[dashboardView]

// @Summary		Dashboard
// @Description	Principal projects grouped by client with their additionals and overall totals. Cached for a short time; any write refreshes it.
// @Tags			Dashboard
// @Produce		json
// @Success		200	{object}	DashboardResponse
// @Router			/dashboard [get]
func (app *application) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	groups, err := app.dashboard.Groups(r.Context())
	if err != nil {
		degrade(app, w, r, err, dashboardView{Groups: []report.Group{}, Totals: report.Sum(nil)})
		return
	}

	respond(w, http.StatusOK, "Successfully retrieved dashboard", dashboardView{
		Groups: groups,
		Totals: report.Sum(groups),
	})
}
