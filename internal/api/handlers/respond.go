package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/strategyconfig"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error           string            `json:"error"`
	Field           string            `json:"field,omitempty"`
	CompletedStages []contracts.Stage `json:"completed_stages,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondValidation writes a 400 carrying the failing field when known
func respondValidation(w http.ResponseWriter, err error) {
	var verr strategyconfig.ValidationError
	errors.As(err, &verr)
	respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Field: verr.Field})
}

// statusFor maps a run error to an HTTP status.
// Problems with the submitted data are 4xx; anything else is a server fault.
func statusFor(err error) int {
	var verr strategyconfig.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrSolverTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, contracts.ErrInsufficientData),
		errors.Is(err, contracts.ErrSingularCovariance),
		errors.Is(err, contracts.ErrInfeasibleOptimization):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON rejects unknown fields and trailing data
func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
