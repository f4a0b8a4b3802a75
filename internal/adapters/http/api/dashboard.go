package api

import (
	"net/http"
)

// plotHandler serves the CoP plot page.
type plotHandler struct{}

func newPlotHandler() *plotHandler {
	return &plotHandler{}
}

// HandlePlot handles GET /plot requests with an HTML page that draws the CoP
// trail from the /ws stream.
func (h *plotHandler) HandlePlot(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, plotFS, "plot.html")
}
