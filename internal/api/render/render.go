// Package render writes the JSON response envelopes shared by every endpoint.
package render

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/blogpost-be/internal/apperr"
)

// ErrorBody is the failure envelope.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// Success writes {"message": "Success"} merged with fields.
func Success(w http.ResponseWriter, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["message"] = "Success"
	JSON(w, http.StatusOK, body)
}

// Error writes the failure envelope for err. Causes of internal and forbidden errors are
// logged, never sent.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	if e.Err != nil {
		ev := log.Warn()
		if e.Kind == apperr.KindInternal {
			ev = log.Error()
		}
		ev.Err(e.Err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Int("code", e.Code).
			Msg("Request failed")
	}
	JSON(w, e.Status(), ErrorBody{Code: e.Code, Message: e.Message})
}
