// Package api exposes the grading service as a JSON HTTP API.
//
// Routes (all POST, JSON in and out):
//
//	/v1/grade/korean     grading.KoreanRequest        -> grading.KoreanResult
//	/v1/grade/french     grading.FrenchRequest        -> grading.FrenchResult
//	/v1/grade/batch      {"items": [...]}             -> {"results": [...]}
//	/v1/pronunciation    grading.PronunciationRequest -> grading.PronunciationResult
//	/v1/numerals         {"text": "..."}              -> grading.NumeralResult
//
// Errors are answered as {"error": "..."} with 400 for malformed requests,
// 504 when the request deadline expires and 500 otherwise.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MrWong99/lingograde/internal/grading"
	"github.com/MrWong99/lingograde/internal/observe"
)

const (
	// maxBodyBytes bounds request bodies; a full batch fits comfortably.
	maxBodyBytes = 4 << 20

	defaultTimeout = 10 * time.Second
	maxTimeout     = 60 * time.Second
)

// Grader is the subset of [grading.Service] served by the API.
type Grader interface {
	GradeKorean(ctx context.Context, req grading.KoreanRequest) (*grading.KoreanResult, error)
	GradeFrench(ctx context.Context, req grading.FrenchRequest) (*grading.FrenchResult, error)
	Pronunciation(ctx context.Context, req grading.PronunciationRequest) (*grading.PronunciationResult, error)
	GradeBatch(ctx context.Context, items []grading.BatchItem) ([]grading.BatchResult, error)
	Normalize(ctx context.Context, text string) (*grading.NumeralResult, error)
}

var _ Grader = (*grading.Service)(nil)

// Handler serves the grading routes.
type Handler struct {
	grader Grader
}

// New returns a [Handler] backed by g.
func New(g Grader) *Handler {
	return &Handler{grader: g}
}

// Register adds the grading routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/grade/korean", handle(h.grader.GradeKorean))
	mux.HandleFunc("POST /v1/grade/french", handle(h.grader.GradeFrench))
	mux.HandleFunc("POST /v1/grade/batch", handle(h.batch))
	mux.HandleFunc("POST /v1/pronunciation", handle(h.grader.Pronunciation))
	mux.HandleFunc("POST /v1/numerals", handle(h.numerals))
}

type batchRequest struct {
	Items []grading.BatchItem `json:"items"`
}

type batchResponse struct {
	Results []grading.BatchResult `json:"results"`
}

func (h *Handler) batch(ctx context.Context, req batchRequest) (*batchResponse, error) {
	results, err := h.grader.GradeBatch(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	return &batchResponse{Results: results}, nil
}

type numeralsRequest struct {
	Text string `json:"text"`
}

func (h *Handler) numerals(ctx context.Context, req numeralsRequest) (*grading.NumeralResult, error) {
	return h.grader.Normalize(ctx, req.Text)
}

// handle adapts a typed operation into an [http.HandlerFunc]: it decodes the
// body into Req, applies the request deadline and encodes the result.
func handle[Req, Resp any](op func(context.Context, Req) (*Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout(r))
		defer cancel()

		resp, err := op(ctx, req)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, resp)
		case errors.Is(err, grading.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, err.Error())
		default:
			observe.Logger(ctx).Error("api: request failed", "route", r.Pattern, "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

// requestTimeout reads X-Request-Timeout (seconds), capped at maxTimeout.
func requestTimeout(r *http.Request) time.Duration {
	if v, err := strconv.Atoi(r.Header.Get("X-Request-Timeout")); err == nil && v > 0 {
		return min(time.Duration(v)*time.Second, maxTimeout)
	}
	return defaultTimeout
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
