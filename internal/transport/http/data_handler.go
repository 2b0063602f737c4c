package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "opodata/internal/errors"
	"opodata/pkg/contracts/domain"
)

// DatasetReader is the slice of the store the handlers need.
type DatasetReader interface {
	ReadEnvelope(source string) (*domain.Envelope, error)
	ReadTierEnvelope() (*domain.TierEnvelope, error)
}

// DataHandler serves the produced record sets.
type DataHandler struct {
	store  DatasetReader
	logger *slog.Logger
}

// NewDataHandler creates a data handler.
func NewDataHandler(store DatasetReader, logger *slog.Logger) *DataHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataHandler{
		store:  store,
		logger: logger.With(slog.String("component", "data_handler")),
	}
}

// Routes returns the dataset routes.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/opos", h.GetMerged)
	r.Route("/opos/{dsa}", func(r chi.Router) {
		r.Use(h.DSACtx)
		r.Get("/", h.GetOPO)
	})
	r.Get("/sources/{source}", h.GetSource)
	r.Get("/tier-history", h.GetTierHistory)

	return r
}

// DSACtx validates the dsa parameter. Codes are matched case-insensitively;
// the canonical form is uppercase.
func (h *DataHandler) DSACtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(chi.URLParam(r, "dsa"))
		if !domain.IsValidDSACode(code) {
			render.Render(w, r, apperrors.NewAPIError(
				http.StatusBadRequest, "INVALID_DSA_CODE", "DSA code must be 4 letters"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetMerged handles GET /api/opos.
func (h *DataHandler) GetMerged(w http.ResponseWriter, r *http.Request) {
	envelope, err := h.store.ReadEnvelope(domain.SourceMerged)
	if err != nil {
		h.renderError(w, r, err, "merged dataset")
		return
	}
	render.JSON(w, r, envelope)
}

// GetOPO handles GET /api/opos/{dsa}.
func (h *DataHandler) GetOPO(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "dsa"))

	envelope, err := h.store.ReadEnvelope(domain.SourceMerged)
	if err != nil {
		h.renderError(w, r, err, "merged dataset")
		return
	}

	for i := range envelope.OPOs {
		if envelope.OPOs[i].DSACode == code {
			render.JSON(w, r, envelope.OPOs[i])
			return
		}
	}
	render.Render(w, r, apperrors.NotFoundError("OPO "+code))
}

// GetSource handles GET /api/sources/{source}.
func (h *DataHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	if !validSource(source) {
		render.Render(w, r, apperrors.NewAPIError(
			http.StatusBadRequest, "INVALID_SOURCE", "unknown source key"))
		return
	}

	envelope, err := h.store.ReadEnvelope(source)
	if err != nil {
		h.renderError(w, r, err, "dataset "+source)
		return
	}
	render.JSON(w, r, envelope)
}

// GetTierHistory handles GET /api/tier-history.
func (h *DataHandler) GetTierHistory(w http.ResponseWriter, r *http.Request) {
	envelope, err := h.store.ReadTierEnvelope()
	if err != nil {
		h.renderError(w, r, err, "tier history")
		return
	}
	render.JSON(w, r, envelope)
}

func (h *DataHandler) renderError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Type == apperrors.ErrTypeNotFound {
		render.Render(w, r, apperrors.NotFoundError(resource))
		return
	}

	h.logger.ErrorContext(r.Context(), "dataset read failed",
		slog.String("resource", resource),
		slog.String("error", err.Error()))
	render.Render(w, r, apperrors.ErrInternalServer)
}

func validSource(source string) bool {
	switch source {
	case domain.SourceBase, domain.SourceCMSTier, domain.SourceHRSA,
		domain.SourceSRTR, domain.SourcePropublica, domain.SourceMerged:
		return true
	}
	return false
}
