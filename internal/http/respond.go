package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Clark-Hu/store-ratings/internal/domain"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Warn("failed to encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.deps.Metrics.ObserveError(code)
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// respondDomainError maps the domain taxonomy onto status codes. Anything unrecognised
// is logged and hidden behind a generic 500.
func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		s.respondError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
	case errors.Is(err, domain.ErrInvalidValue):
		s.respondError(w, http.StatusUnprocessableEntity, "INVALID_VALUE", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		s.respondError(w, http.StatusConflict, "ALREADY_EXISTS", err.Error())
	case errors.Is(err, domain.ErrConflict):
		s.logger.Error(op+" hit a uniqueness conflict", zap.String("path", r.URL.Path), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "CONFLICT", "The request conflicted with stored state")
	default:
		s.logger.Error(op+" failed", zap.String("path", r.URL.Path), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError), errors.Is(err, io.ErrUnexpectedEOF):
		s.respondError(w, http.StatusBadRequest, "INVALID_BODY", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "INVALID_VALUE", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "INVALID_BODY", "Request body too large")
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusBadRequest, "INVALID_BODY", "Request body cannot be empty")
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		s.respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
	default:
		s.respondError(w, http.StatusBadRequest, "INVALID_BODY", "Unable to parse request body")
	}
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidQuery, name)
	}
	return id, nil
}
