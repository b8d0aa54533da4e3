/*
handlers.go - HTTP API handlers for disbursement verification

PURPOSE:
  Exposes the eligibility engine and saved verifications via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  verification service.

ENDPOINTS:
  Evaluation:
    POST   /api/evaluate                Evaluate a form
    POST   /api/narrative               Evaluate a form and attach commentary

  Verifications:
    GET    /api/verifications           List saved verifications (?project_code=)
    POST   /api/verifications           Save a verification (upsert by id)
    GET    /api/verifications/{id}      Get a saved verification
    GET    /api/share?data={token}      Open a share link and evaluate it
    GET    /api/share/{token}           Same, token as an escaped path segment

  Scenarios:
    GET    /api/scenarios               List reference scenarios
    GET    /api/scenarios/{id}          Scenario with its live evaluation

REQUEST FLOW:
  1. Parse HTTP request
  2. Convert DTO to verification.Form
  3. Call the verification service
  4. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed JSON, invalid share token
  - 404: Verification or scenario not found
  - 422: The form does not evaluate (zero first installment, rejected
         renditions). The body still carries the annotated form.
  - 500: Storage errors

NARRATIVE:
  Commentary is best-effort and runs asynchronously. A failing or slow
  generator falls back to the template text; it never changes the status code
  or the numbers. A cancelled request stops waiting for it.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Reference scenarios
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/warp/disbursement-engine/narrative"
	"github.com/warp/disbursement-engine/verification"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *verification.Service
	Enricher *narrative.Enricher
	Logger   *zap.Logger
}

// NewHandler creates a new handler. A nil enricher serves template commentary.
func NewHandler(svc *verification.Service, enricher *narrative.Enricher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if enricher == nil {
		enricher = narrative.NewEnricher(nil, nil, 0, logger)
		enricher.Normalizer = svc.Normalizer
	}
	return &Handler{
		Service:  svc,
		Enricher: enricher,
		Logger:   logger,
	}
}

// =============================================================================
// EVALUATION HANDLERS
// =============================================================================

// Evaluate runs the engine on a form.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}

	out := h.Service.Calculate(form)
	writeJSON(w, outcomeStatus(out), toEvaluateResponse(out, h.Service.Normalizer))
}

// Narrative evaluates a form and attaches commentary to a successful result.
func (h *Handler) Narrative(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}

	out := h.Service.Calculate(form)
	if !out.OK() {
		writeJSON(w, outcomeStatus(out), toEvaluateResponse(out, h.Service.Normalizer))
		return
	}

	ctx := r.Context()
	var n narrative.Narrative
	select {
	case n = <-h.Enricher.EnrichAsync(ctx, *out.Result):
	case <-ctx.Done():
		// Client gone; a generator that ignores ctx finishes on its own.
		h.Logger.Debug("narrative request cancelled",
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.Error(ctx.Err()))
		return
	}
	if n.Err != nil {
		h.Logger.Debug("narrative fell back to template",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(n.Err))
	}
	writeJSON(w, http.StatusOK, NarrativeResponse{
		EvaluateResponse: toEvaluateResponse(out, h.Service.Normalizer),
		Narrative:        toNarrativeDTO(n),
	})
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request) (verification.Form, bool) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return verification.Form{}, false
	}
	form := req.Form.toForm()
	if req.Commit {
		form = form.Commit(h.Service.Normalizer)
	}
	return form, true
}

// =============================================================================
// VERIFICATION HANDLERS
// =============================================================================

// ListVerifications returns saved verifications, optionally for one project.
func (h *Handler) ListVerifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		records []verification.Record
		err     error
	)
	if code := r.URL.Query().Get("project_code"); code != "" {
		records, err = h.Service.ListByProject(ctx, code)
	} else {
		records, err = h.Service.List(ctx)
	}
	if err != nil {
		h.internalError(w, r, "Failed to list verifications", err)
		return
	}

	dtos := make([]VerificationDTO, len(records))
	for i, rec := range records {
		dtos[i] = toVerificationDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveVerification stores a form. 201 when a new verification is created.
func (h *Handler) SaveVerification(w http.ResponseWriter, r *http.Request) {
	var req SaveVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := h.Service.Save(r.Context(), req.ID, req.Form.toForm())
	if err != nil {
		h.internalError(w, r, "Failed to save verification", err)
		return
	}

	status := http.StatusOK
	if rec.CreatedAt.Equal(rec.UpdatedAt) {
		status = http.StatusCreated
	}
	writeJSON(w, status, toVerificationDTO(rec))
}

// GetVerification returns a saved verification.
func (h *Handler) GetVerification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.Service.Get(r.Context(), id)
	if errors.Is(err, verification.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Verification not found", nil)
		return
	}
	if err != nil {
		h.internalError(w, r, "Failed to get verification", err)
		return
	}
	writeJSON(w, http.StatusOK, toVerificationDTO(rec))
}

// OpenShare decodes a share token and evaluates the form it carries. The
// token comes from ?data= like browser links do; the path form must escape
// the '/' that standard base64 can contain.
func (h *Handler) OpenShare(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("data")
	if token == "" {
		t, err := url.PathUnescape(chi.URLParam(r, "token"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid share link", err)
			return
		}
		token = t
	}

	out, err := h.Service.OpenShared(token)
	if errors.Is(err, verification.ErrInvalidShareToken) {
		writeError(w, http.StatusBadRequest, "Invalid share link", err)
		return
	}
	if err != nil {
		h.internalError(w, r, "Failed to open share link", err)
		return
	}
	writeJSON(w, outcomeStatus(out), toEvaluateResponse(out, h.Service.Normalizer))
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the reference scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.dto()
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetScenario returns a scenario with its evaluation. A scenario whose form
// is rejected is still a 200: the rejection is what it demonstrates.
func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	s, ok := findScenario(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Scenario not found", nil)
		return
	}

	out := h.Service.Calculate(s.Form)
	writeJSON(w, http.StatusOK, ScenarioResponse{
		Scenario:   s.dto(),
		Evaluation: toEvaluateResponse(out, h.Service.Normalizer),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func outcomeStatus(out verification.Outcome) int {
	if out.OK() {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.Logger.Error(message,
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
