package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	store "surfsup-server/internal/db"
	"surfsup-server/internal/modules/climate/types"
	"surfsup-server/internal/modules/climate/views"
	"surfsup-server/internal/utils"
)

func (c *climateControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	data := views.IndexData{Routes: Routes, DateRoutes: DateRoutes}
	if err := views.RenderIndex(&buf, data); err != nil {
		slog.Error("index template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	points, err := c.repository.GetPrecipitation(r.Context(), c.opts.CutoffDate)
	if err != nil {
		writeStoreError(w, "precipitation", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, types.CollapseByDate(points))
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.repository.GetStations(r.Context())
	if err != nil {
		writeStoreError(w, "stations", err)
		return
	}
	if stations == nil {
		stations = []types.Station{}
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	points, err := c.repository.GetTemperatureObservations(r.Context(), c.opts.TobsStation, c.opts.CutoffDate)
	if err != nil {
		writeStoreError(w, "tobs", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, types.CollapseByDate(points))
}

func (c *climateControllerImpl) handleStatsFrom(w http.ResponseWriter, r *http.Request) {
	c.writeStats(w, r, r.PathValue("start"), "")
}

func (c *climateControllerImpl) handleStatsRange(w http.ResponseWriter, r *http.Request) {
	c.writeStats(w, r, r.PathValue("start"), r.PathValue("end"))
}

func (c *climateControllerImpl) writeStats(w http.ResponseWriter, r *http.Request, start, end string) {
	if c.opts.StrictDates {
		if err := validateDateRange(start, end); err != nil {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	stats, err := c.repository.GetTemperatureStats(r.Context(), start, end)
	if err != nil {
		writeStoreError(w, "temperature stats", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, [][3]*types.Float{stats.Triple()})
}

// writeStoreError answers 503 when the store could not be reached and 500
// for anything else.
func writeStoreError(w http.ResponseWriter, route string, err error) {
	slog.Error("climate query failed", "route", route, "error", err)
	if errors.Is(err, store.ErrStorageUnavailable) {
		utils.WriteError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	utils.WriteError(w, http.StatusInternalServerError, "internal error")
}
