package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nguyentantai21042004/audio-reader/internal/converter"
	"github.com/nguyentantai21042004/audio-reader/internal/derive"
	"github.com/nguyentantai21042004/audio-reader/internal/pipeline"
	"github.com/nguyentantai21042004/audio-reader/internal/publish"
	"github.com/nguyentantai21042004/audio-reader/internal/transcriber"
)

var (
	errTooLarge           = errors.New("upload exceeds the size limit")
	errPublishingDisabled = errors.New("youtube publishing is not configured")
)

// statusClientClosed is the nginx convention for a request the client abandoned.
const statusClientClosed = 499

// badRequest marks input validation failures.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch status {
	case statusClientClosed, http.StatusGatewayTimeout:
		h.logger.Debug(r.Context(), "%s %s: %v", r.Method, r.URL.Path, err)
	case http.StatusInternalServerError:
		h.logger.Error(r.Context(), "%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps pipeline failures onto HTTP status codes
func statusFor(err error) int {
	var (
		br badRequest
		ce *converter.ConversionError
		te *transcriber.TranscriptionError
		ge *derive.GenerationError
	)
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errPublishingDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, pipeline.ErrSessionNotFound),
		errors.Is(err, pipeline.ErrSessionClosed),
		errors.Is(err, publish.ErrVideoNotFound):
		return http.StatusNotFound
	case pipeline.IsPrecondition(err), errors.Is(err, pipeline.ErrAssetReplaced):
		return http.StatusConflict
	case errors.As(err, &ce):
		return http.StatusUnprocessableEntity
	case errors.As(err, &te), errors.As(err, &ge):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
