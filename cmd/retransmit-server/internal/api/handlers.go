// Package api provides HTTP handlers for the retransmission server REST API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/coregx/retransmit"
	"github.com/coregx/retransmit/model"
	"github.com/coregx/retransmit/retry"
)

// Engine is the multi-cluster retransmission engine used by the handlers.
// *retransmit.MultiDC implements it.
type Engine interface {
	Clusters() []string
	EndOffsets(ctx context.Context, topic model.LogicalTopic) (*model.OffsetChangeSummary, error)
	OffsetsAt(ctx context.Context, topic model.LogicalTopic, ts time.Time) (*model.OffsetChangeSummary, error)
	Retransmit(ctx context.Context, topic model.LogicalTopic, subscription string, ts *time.Time, dryRun bool) (*model.OffsetChangeSummary, error)
	AreConverged(ctx context.Context, topic model.LogicalTopic, subscription string) (bool, error)
	Withdraw(ctx context.Context, topic model.LogicalTopic, subscription string) (map[string]int, error)
}

// Handler holds dependencies for API handlers.
type Handler struct {
	engine Engine
	topics retransmit.TopicRepository
	poll   retry.Strategy
	logger retransmit.Logger
}

// NewHandler creates a new API handler. poll drives GET .../moved?wait=true.
func NewHandler(engine Engine, topics retransmit.TopicRepository, poll retry.Strategy, logger retransmit.Logger) *Handler {
	return &Handler{
		engine: engine,
		topics: topics,
		poll:   poll,
		logger: logger,
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/topics/{topic}/offsets/end", h.HandleEndOffsets)
	mux.HandleFunc("GET /api/v1/topics/{topic}/offsets/at", h.HandleOffsetsAt)
	mux.HandleFunc("POST /api/v1/topics/{topic}/subscriptions/{subscription}/retransmission", h.HandleRetransmit)
	mux.HandleFunc("DELETE /api/v1/topics/{topic}/subscriptions/{subscription}/retransmission", h.HandleWithdraw)
	mux.HandleFunc("GET /api/v1/topics/{topic}/subscriptions/{subscription}/moved", h.HandleMoved)
	mux.HandleFunc("POST /api/v1/topics", h.HandleCreateTopic)
	mux.HandleFunc("GET /api/v1/health", h.HandleHealth)
}

// RetransmitRequest represents a retransmission request body.
// A null or missing RetransmissionDate rewinds to the end of the log.
type RetransmitRequest struct {
	RetransmissionDate *time.Time `json:"retransmissionDate"`
}

// CreateTopicRequest represents a topic registration request.
type CreateTopicRequest struct {
	Name             string `json:"name"`
	ContentType      string `json:"contentType"`
	MigratedFromJSON bool   `json:"migratedFromJson"`
}

// Validate implements validation.Validatable.
func (r CreateTopicRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 249)),
		validation.Field(&r.ContentType, validation.Required,
			validation.In(string(model.ContentTypeJSON), string(model.ContentTypeAvro))),
	)
}

// MovedResponse reports whether a subscription converged on every cluster.
type MovedResponse struct {
	Moved bool `json:"moved"`
}

// WithdrawResponse reports how many partition targets each cluster dropped.
type WithdrawResponse struct {
	Withdrawn map[string]int `json:"withdrawn"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HandleEndOffsets handles GET /api/v1/topics/{topic}/offsets/end?cluster=
func (h *Handler) HandleEndOffsets(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.loadTopic(w, r)
	if !ok {
		return
	}

	summary, err := h.engine.EndOffsets(r.Context(), topic)
	if err != nil {
		h.respondFailure(w, "Failed to fetch end offsets", err)
		return
	}

	h.respondSummary(w, r, summary)
}

// HandleOffsetsAt handles GET /api/v1/topics/{topic}/offsets/at?timestamp=RFC3339&cluster=
func (h *Handler) HandleOffsetsAt(w http.ResponseWriter, r *http.Request) {
	ts, err := time.Parse(time.RFC3339Nano, r.URL.Query().Get("timestamp"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "timestamp must be an RFC 3339 date", retransmit.ErrCodeValidation)
		return
	}

	topic, ok := h.loadTopic(w, r)
	if !ok {
		return
	}

	summary, err := h.engine.OffsetsAt(r.Context(), topic, ts)
	if err != nil {
		h.respondFailure(w, "Failed to fetch offsets", err)
		return
	}

	h.respondSummary(w, r, summary)
}

// HandleRetransmit handles POST /api/v1/topics/{topic}/subscriptions/{subscription}/retransmission?dryRun=
func (h *Handler) HandleRetransmit(w http.ResponseWriter, r *http.Request) {
	dryRun, err := queryBool(r, "dryRun")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "dryRun must be a boolean", retransmit.ErrCodeValidation)
		return
	}

	var req RetransmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	topic, ok := h.loadTopic(w, r)
	if !ok {
		return
	}
	subscription := r.PathValue("subscription")

	summary, err := h.engine.Retransmit(r.Context(), topic, subscription, req.RetransmissionDate, dryRun)
	if err != nil {
		h.respondFailure(w, "Failed to retransmit", err)
		return
	}

	message := "Retransmission declared"
	if dryRun {
		message = "Retransmission previewed"
	}
	h.respondSuccess(w, http.StatusOK, summary, message)
}

// HandleWithdraw handles DELETE /api/v1/topics/{topic}/subscriptions/{subscription}/retransmission
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.loadTopic(w, r)
	if !ok {
		return
	}

	withdrawn, err := h.engine.Withdraw(r.Context(), topic, r.PathValue("subscription"))
	if err != nil {
		h.respondFailure(w, "Failed to withdraw retransmission", err)
		return
	}

	h.respondSuccess(w, http.StatusOK, WithdrawResponse{Withdrawn: withdrawn}, "Retransmission withdrawn")
}

// HandleMoved handles GET /api/v1/topics/{topic}/subscriptions/{subscription}/moved?wait=
//
// With wait=true the request blocks until every cluster converged or the poll strategy
// gives up, and then reports the last observation.
func (h *Handler) HandleMoved(w http.ResponseWriter, r *http.Request) {
	wait, err := queryBool(r, "wait")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "wait must be a boolean", retransmit.ErrCodeValidation)
		return
	}

	topic, ok := h.loadTopic(w, r)
	if !ok {
		return
	}
	subscription := r.PathValue("subscription")

	var moved bool
	check := func(ctx context.Context) (bool, error) {
		converged, err := h.engine.AreConverged(ctx, topic, subscription)
		moved = converged
		return converged, err
	}

	if wait {
		err = retry.Poll(r.Context(), h.poll, check)
		if errors.Is(err, retry.ErrExhausted) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = nil
		}
	} else {
		_, err = check(r.Context())
	}
	if err != nil {
		h.respondFailure(w, "Failed to check convergence", err)
		return
	}

	h.respondSuccess(w, http.StatusOK, MovedResponse{Moved: moved}, "")
}

// HandleCreateTopic handles POST /api/v1/topics
func (h *Handler) HandleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req CreateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), retransmit.ErrCodeValidation)
		return
	}

	_, err := h.topics.GetByName(r.Context(), req.Name)
	switch {
	case err == nil:
		h.respondError(w, http.StatusConflict, "Topic already exists", "ALREADY_EXISTS")
		return
	case !retransmit.IsNoData(err):
		h.respondFailure(w, "Failed to look up topic", err)
		return
	}

	topic := model.NewLogicalTopic(req.Name, model.ContentType(req.ContentType))
	topic.MigratedFromJSON = req.MigratedFromJSON && topic.ContentType == model.ContentTypeAvro

	saved, err := h.topics.Save(r.Context(), topic)
	if err != nil {
		h.respondFailure(w, "Failed to create topic", err)
		return
	}

	h.respondSuccess(w, http.StatusCreated, saved, "Topic created successfully")
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"clusters":  h.engine.Clusters(),
	}

	h.respondSuccess(w, http.StatusOK, health, "")
}

// loadTopic resolves the {topic} path value, writing a response when it fails.
func (h *Handler) loadTopic(w http.ResponseWriter, r *http.Request) (model.LogicalTopic, bool) {
	topic, err := h.topics.GetByName(r.Context(), r.PathValue("topic"))
	if err != nil {
		if retransmit.IsNoData(err) {
			h.respondError(w, http.StatusNotFound, "Topic not found", retransmit.ErrCodeNoData)
			return topic, false
		}
		h.respondFailure(w, "Failed to load topic", err)
		return topic, false
	}
	return topic, true
}

// respondSummary writes summary, restricted to the ?cluster= query value when present.
func (h *Handler) respondSummary(w http.ResponseWriter, r *http.Request, summary *model.OffsetChangeSummary) {
	cluster := r.URL.Query().Get("cluster")
	if cluster == "" {
		h.respondSuccess(w, http.StatusOK, summary, "")
		return
	}

	offsets, ok := summary.PartitionOffsetListPerBrokerName[cluster]
	if !ok {
		h.respondError(w, http.StatusNotFound, "Unknown cluster "+cluster, retransmit.ErrCodeNoData)
		return
	}
	filtered := model.NewOffsetChangeSummary()
	filtered.Add(cluster, offsets)
	h.respondSuccess(w, http.StatusOK, filtered, "")
}

// respondFailure logs err and maps its code to an HTTP status.
func (h *Handler) respondFailure(w http.ResponseWriter, message string, err error) {
	code := retransmit.CodeOf(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		h.logger.Errorf("%s: %v", message, err)
	} else {
		h.logger.Warnf("%s: %v", message, err)
	}
	h.respondError(w, status, err.Error(), code)
}

// statusFor maps an error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case retransmit.ErrCodeValidation:
		return http.StatusBadRequest
	case retransmit.ErrCodeNoData, retransmit.ErrCodeOffsetNotFound:
		return http.StatusNotFound
	case retransmit.ErrCodePartitionDirectoryUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, key string) (bool, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(value)
}

// respondError sends an error response.
func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    code,
		Message: message,
	})
}

// respondSuccess sends a success response.
func (h *Handler) respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}
