package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux returns a mux serving /healthz; feature modules register the rest.
func NewMux(db *sql.DB) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	return mux
}
