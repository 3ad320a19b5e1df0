package stats

import (
	"encoding/json"
	"net/http"

	"github.com/kestrel-run/modelmesh/pkg/telemetry"
)

// Handler serves Project(store) as JSON on GET.
func Handler(store *telemetry.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Project(store))
	})
}
