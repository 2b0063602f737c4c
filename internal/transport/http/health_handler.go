package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"opodata/pkg/contracts"
	"opodata/pkg/contracts/domain"
)

// HealthHandler reports server liveness and dataset availability.
type HealthHandler struct {
	store  DatasetReader
	logger *slog.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(store DatasetReader, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		store:  store,
		logger: logger.With(slog.String("component", "health_handler")),
	}
}

// HealthCheck handles GET /api/health. The server is healthy even when no
// dataset exists yet; the payload says which record sets are available.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	datasets := make(map[string]bool)
	for _, source := range []string{
		domain.SourceBase, domain.SourceCMSTier, domain.SourceHRSA,
		domain.SourceSRTR, domain.SourcePropublica, domain.SourceMerged,
	} {
		_, err := h.store.ReadEnvelope(source)
		datasets[source] = err == nil
	}

	render.JSON(w, r, map[string]interface{}{
		"status":    "ok",
		"version":   contracts.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"datasets":  datasets,
	})
}

// Version handles GET /api/version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"version": contracts.Version})
}
