package autofixer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/de-tools/autofixer/pkg/adapters"
	"github.com/de-tools/autofixer/pkg/models/api"
	"github.com/de-tools/autofixer/pkg/services/lifecycle"
	"github.com/de-tools/autofixer/pkg/services/remote"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	maxRequestBytes = 1 << 20
	maxDetailBytes  = 2048

	MsgBackendUnavailable  = "Backend Unavailable"
	MsgFixGenerationFailed = "Fix Generation Failed"
	MsgApplyFixFailed      = "Apply Fix Failed"
	MsgBenchmarkFailed     = "Benchmark Failed"
	MsgInvalidRequest      = "Invalid Request"
	MsgIssueNotFound       = "Issue Not Found"
	errorStatus            = "error"
)

type Handler struct {
	ctrl lifecycle.Controller
}

func NewHandler(ctrl lifecycle.Controller) *Handler {
	return &Handler{ctrl: ctrl}
}

func (h *Handler) Diagnose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	issues, err := h.ctrl.Diagnose(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("diagnosis failed")
		writeError(w, r, http.StatusBadGateway, api.ErrorResponse{Message: MsgBackendUnavailable})
		return
	}

	writeJSON(w, r, http.StatusOK, adapters.MapDomainIssuesToAPI(issues))
}

func (h *Handler) GenerateFix(w http.ResponseWriter, r *http.Request) {
	var issue api.Issue
	if !decodeRequest(w, r, &issue) || !requireIssueID(w, r, issue.IssueID) {
		return
	}

	proposal, err := h.ctrl.RequestFix(r.Context(), issue.IssueID)
	if err != nil {
		writeFailure(w, r, err, MsgFixGenerationFailed)
		return
	}

	writeJSON(w, r, http.StatusOK, adapters.MapDomainProposalToAPI(proposal))
}

func (h *Handler) ApplyFix(w http.ResponseWriter, r *http.Request) {
	var proposal api.FixProposal
	if !decodeRequest(w, r, &proposal) || !requireIssueID(w, r, proposal.IssueID) {
		return
	}

	result, err := h.ctrl.ApplyFix(r.Context(), proposal.IssueID, proposal.GeneratedAt)
	if err != nil {
		writeFailure(w, r, err, MsgApplyFixFailed)
		return
	}

	writeJSON(w, r, http.StatusOK, adapters.MapDomainApplyResultToAPI(result))
}

func (h *Handler) Benchmark(w http.ResponseWriter, r *http.Request) {
	var proposal api.FixProposal
	if !decodeRequest(w, r, &proposal) || !requireIssueID(w, r, proposal.IssueID) {
		return
	}

	result, err := h.ctrl.Benchmark(r.Context(), adapters.MapAPIProposalToDomain(proposal))
	if err != nil {
		writeFailure(w, r, err, MsgBenchmarkFailed)
		return
	}

	writeJSON(w, r, http.StatusOK, adapters.MapDomainBenchmarkToAPI(result))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req api.CancelRequest
	if !decodeRequest(w, r, &req) || !requireIssueID(w, r, req.IssueID) {
		return
	}

	status, err := h.ctrl.Cancel(r.Context(), req.IssueID)
	if err != nil {
		writeFailure(w, r, err, MsgIssueNotFound)
		return
	}

	writeJSON(w, r, http.StatusOK, adapters.MapDomainIssueStatusToAPI(status))
}

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	issueID := chi.URLParam(r, "issueID")

	status, err := h.ctrl.Status(issueID)
	if err != nil {
		writeFailure(w, r, err, MsgIssueNotFound)
		return
	}

	writeJSON(w, r, http.StatusOK, adapters.MapDomainIssueStatusToAPI(status))
}

func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to decode request body")
		writeError(w, r, http.StatusBadRequest, api.ErrorResponse{Message: MsgInvalidRequest})
		return false
	}
	return true
}

func requireIssueID(w http.ResponseWriter, r *http.Request, issueID string) bool {
	if issueID != "" {
		return true
	}
	writeError(w, r, http.StatusBadRequest, api.ErrorResponse{
		Message: MsgInvalidRequest,
		Detail:  "issue_id is required",
	})
	return false
}

// writeFailure maps a controller error onto the gateway's error contract. Local
// precondition violations are client errors; everything from the backend is reported
// with the operation's fixed message.
func writeFailure(w http.ResponseWriter, r *http.Request, err error, message string) {
	logger := zerolog.Ctx(r.Context())
	resp := api.ErrorResponse{Message: message}

	var status int
	switch {
	case errors.Is(err, lifecycle.ErrIssueNotFound):
		status = http.StatusNotFound
		resp.Detail = lifecycle.ErrIssueNotFound.Error()
	case errors.Is(err, lifecycle.ErrAlreadyInProgress):
		status = http.StatusConflict
		resp.Detail = lifecycle.ErrAlreadyInProgress.Error()
	case errors.Is(err, lifecycle.ErrNoProposal):
		status = http.StatusConflict
		resp.Detail = lifecycle.ErrNoProposal.Error()
	case errors.Is(err, lifecycle.ErrStaleProposal):
		status = http.StatusConflict
		resp.Detail = lifecycle.ErrStaleProposal.Error()
	case errors.Is(err, lifecycle.ErrCancelled):
		status = http.StatusConflict
		resp.Detail = lifecycle.ErrCancelled.Error()
	default:
		status = http.StatusInternalServerError
		var remoteErr *remote.Error
		if errors.As(err, &remoteErr) && remoteErr.Kind == remote.KindRejected {
			resp.Detail = truncate(string(remoteErr.Body), maxDetailBytes)
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg(message)
	} else {
		logger.Warn().Err(err).Int("status", status).Msg(message)
	}
	writeError(w, r, status, resp)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, resp api.ErrorResponse) {
	resp.Status = errorStatus
	writeJSON(w, r, status, resp)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Msg("failed to encode response")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
