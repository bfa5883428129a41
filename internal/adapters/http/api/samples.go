package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/moodmarket/internal/domain/model"
	"github.com/okian/moodmarket/internal/domain/mood"
)

// SampleDependencies defines the oracle feed operations.
type SampleDependencies interface {
	SubmitSample(ctx context.Context, caller model.Identity, in mood.Submission) (model.MoodSample, error)
	Sample(ctx context.Context, ts uint64) (model.MoodSample, error)
}

// SamplesHandler handles mood sample requests.
type SamplesHandler struct {
	deps SampleDependencies
}

// NewSamplesHandler creates a new samples handler.
func NewSamplesHandler(deps SampleDependencies) *SamplesHandler {
	return &SamplesHandler{deps: deps}
}

type sampleRequest struct {
	Timestamp      uint64 `json:"timestamp"`
	BiometricScore uint64 `json:"biometric_score"`
	SentimentScore uint64 `json:"sentiment_score"`
	WeatherImpact  int64  `json:"weather_impact"`
	EventImpact    int64  `json:"event_impact"`
	SourceMask     uint8  `json:"source_mask"`
}

// HandleSubmit handles POST /samples requests.
func (h *SamplesHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_sample"
	caller, ok := callerOf(w, r, op)
	if !ok {
		return
	}
	var req sampleRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	sample, err := h.deps.SubmitSample(r.Context(), caller, mood.Submission{
		Timestamp:     req.Timestamp,
		Biometric:     req.BiometricScore,
		Sentiment:     req.SentimentScore,
		WeatherImpact: req.WeatherImpact,
		EventImpact:   req.EventImpact,
		SourceMask:    model.SourceMask(req.SourceMask),
	})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, sample)
}

// HandleGet handles GET /samples/{ts} requests. A missing sample is 404.
func (h *SamplesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_sample"
	ts, err := uintPath(r, "ts")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	sample, err := h.deps.Sample(r.Context(), ts)
	if errors.Is(err, model.ErrOracle) {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	}
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}
