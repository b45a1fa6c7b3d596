package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/heatsafenet/hubsite/internal/model"
)

const codeRateLimited model.Code = "RATE_LIMITED"

type errorResponse struct {
	Error string     `json:"error"`
	Code  model.Code `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code model.Code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, model.CodeInvalidRequest, msg)
}

// statusFor maps a taxonomy code to its HTTP status.
func statusFor(code model.Code) int {
	switch code {
	case model.CodeWeightValidation, model.CodeInvalidRequest:
		return http.StatusBadRequest
	case model.CodeNotFound:
		return http.StatusNotFound
	case model.CodeInfeasible, model.CodeDataInconsistency:
		return http.StatusUnprocessableEntity
	case model.CodeSolverTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeErr reports a core error with its taxonomy code. Internal errors are
// logged and their detail withheld.
func writeErr(w http.ResponseWriter, err error) {
	code := model.CodeOf(err)
	status := statusFor(code)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("api: internal error", zap.Error(err))
		msg = "internal error"
	}
	writeError(w, status, code, msg)
}
