package controller

import (
	"net/http"

	"surfsup-server/internal/modules/climate/repository"
)

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Options are the fixed query parameters of the canned routes.
type Options struct {
	// CutoffDate bounds /precipitation (inclusive) and /tobs (exclusive).
	CutoffDate string
	// TobsStation is the station /tobs reports.
	TobsStation string
	// StrictDates rejects malformed or inverted date path parameters with 400.
	StrictDates bool
}

type climateControllerImpl struct {
	repository repository.ClimateRepository
	opts       Options
}

func NewClimateController(repository repository.ClimateRepository, opts Options) ClimateController {
	return &climateControllerImpl{repository: repository, opts: opts}
}

// Routes lists the data routes in the order the index page shows them.
var Routes = []string{
	"/api/v1.0/precipitation",
	"/api/v1.0/stations",
	"/api/v1.0/tobs",
}

// DateRoutes lists the routes that take date path parameters.
var DateRoutes = []string{
	"/api/v1.0/start-date",
	"/api/v1.0/start-date/end-date",
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleIndex)
	mux.HandleFunc("GET /api/v1.0/precipitation", c.handlePrecipitation)
	mux.HandleFunc("GET /api/v1.0/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1.0/tobs", c.handleTobs)
	mux.HandleFunc("GET /api/v1.0/{start}", c.handleStatsFrom)
	mux.HandleFunc("GET /api/v1.0/{start}/{end}", c.handleStatsRange)
}
