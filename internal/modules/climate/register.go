package climate

import (
	"context"
	"net/http"

	"github.com/jmoiron/sqlx"

	"surfsup-server/internal/modules/climate/controller"
	"surfsup-server/internal/modules/climate/repository"
)

// RegisterFeature checks the store against the climate schema and mounts the
// climate routes on mux. A schema mismatch is returned before any route is
// registered.
func RegisterFeature(ctx context.Context, mux *http.ServeMux, db *sqlx.DB, opts controller.Options) error {
	climateRepository := repository.NewRepository(db)
	if err := climateRepository.VerifySchema(ctx); err != nil {
		return err
	}
	climateController := controller.NewClimateController(climateRepository, opts)
	climateController.RegisterRoutes(mux)
	return nil
}
