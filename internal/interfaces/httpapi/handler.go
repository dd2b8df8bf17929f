package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/propboard/internal/platform/logging"
	"github.com/riskibarqy/propboard/internal/usecase"
)

// Aggregator is the slice of the aggregation service the API serves.
type Aggregator interface {
	Aggregate(ctx context.Context, sport string) (usecase.AggregateResult, error)
	AggregateSports(ctx context.Context, sports []string) ([]usecase.AggregateResult, error)
	SourceHealth() usecase.HealthReport
}

type Handler struct {
	aggregator Aggregator
	logger     *logging.Logger
	validator  *validator.Validate
}

func NewHandler(aggregator Aggregator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		aggregator: aggregator,
		logger:     logger,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

type sportPathRequest struct {
	Sport string `validate:"required,alpha,max=16"`
}

type multiSportRequest struct {
	Sports []string `validate:"required,min=1,max=8,dive,required,alpha,max=16"`
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetSportProps(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSportProps")
	defer span.End()

	req := sportPathRequest{Sport: r.PathValue("sport")}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.aggregator.Aggregate(ctx, req.Sport)
	if err != nil {
		h.logger.ErrorContext(ctx, "aggregate props failed", logging.FieldSport, req.Sport, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, aggregateToDTO(result))
}

func (h *Handler) ListProps(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListProps")
	defer span.End()

	req := multiSportRequest{Sports: r.URL.Query()["sport"]}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	results, err := h.aggregator.AggregateSports(ctx, req.Sports)
	if err != nil {
		h.logger.ErrorContext(ctx, "aggregate sports failed", "sports", req.Sports, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, AggregateDocument(results))
}

func (h *Handler) GetSourceHealth(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSourceHealth")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, sourceHealthToDTO(h.aggregator.SourceHealth()))
}
