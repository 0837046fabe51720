package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/looperhq/looper/pkg/action"
	"github.com/looperhq/looper/pkg/actuator"
	"github.com/looperhq/looper/pkg/config"
	"github.com/looperhq/looper/pkg/engine"
	"github.com/looperhq/looper/pkg/executor"
	"github.com/looperhq/looper/pkg/journal"
	"github.com/looperhq/looper/pkg/reasoner"
	"github.com/looperhq/looper/pkg/sensor"
)

const (
	defaultIterationLimit = 50
	maxIterationLimit     = 500
)

type perceptRequest struct {
	Content string `json:"content"`
	ChatID  string `json:"chat_id,omitempty"`
}

type keyRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

type loopStartRequest struct {
	IntervalMS uint64 `json:"interval_ms,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps engine and registry failures onto HTTP statuses.
// Malformed inputs and unregistered names are the caller's fault;
// missing journal rows and approval ids are absent resources.
func statusFor(err error) int {
	var validation *action.ValidationError
	var unknownSensor *sensor.UnknownSensorError
	var unknownActuator *actuator.UnknownActuatorError
	var noExecutor *executor.NoExecutorError

	switch {
	case errors.Is(err, journal.ErrNotFound), errors.Is(err, engine.ErrUnknownApproval):
		return http.StatusNotFound
	case errors.As(err, &validation),
		errors.As(err, &unknownSensor),
		errors.As(err, &unknownActuator),
		errors.As(err, &noExecutor),
		errors.Is(err, engine.ErrNotConfigured):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func handleErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAddSensor(w http.ResponseWriter, r *http.Request) {
	var req config.SensorConfig
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sn, err := req.ToSensor()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.AddSensor(sn); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, sn.Snapshot())
}

func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sensors": s.engine.Sensors()})
}

func (s *Server) handleAddActuator(w http.ResponseWriter, r *http.Request) {
	var req config.ActuatorConfig
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	act, err := req.ToActuator()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.AddActuator(act); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, act.Snapshot())
}

func (s *Server) handleListActuators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"actuators": s.engine.Actuators()})
}

func (s *Server) handleChatPercept(w http.ResponseWriter, r *http.Request) {
	var req perceptRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := s.engine.EnqueueChat(req.Content, req.ChatID)
	if err != nil {
		handleErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, p)
}

// handlePerceptIngress is the generic REST intake. The sensor must be
// registered with rest ingress; its declared format decides how the
// body is read (text: raw body, json: {content, chat_id}).
func (s *Server) handlePerceptIngress(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "sensor")

	var snap *sensor.Snapshot
	for _, cand := range s.engine.Sensors() {
		if cand.Name == name {
			snap = &cand
			break
		}
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown sensor: %s", name))
		return
	}
	if snap.Ingress.Mode != sensor.IngressREST {
		writeError(w, http.StatusBadRequest,
			fmt.Errorf("sensor %q does not accept rest ingress (mode %q)", name, snap.Ingress.Mode))
		return
	}

	var content, chatID string
	switch snap.Ingress.Format {
	case sensor.FormatJSON:
		var req perceptRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		content, chatID = req.Content, req.ChatID
	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err))
			return
		}
		content = string(body)
	}

	p, err := s.engine.Enqueue(name, content, chatID)
	if err != nil {
		handleErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, p)
}

func (s *Server) handleSetKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("provider is required"))
		return
	}
	if config.SanitizeAPIKey(req.APIKey) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("api key cannot be empty"))
		return
	}

	if err := s.keys.Set(req.Provider, req.APIKey); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "provider": req.Provider})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	providers := s.keys.Providers()
	sort.Strings(providers)
	writeJSON(w, http.StatusOK, map[string]any{"providers": providers})
}

// handleSetModels rebuilds both reasoner tiers from the submitted
// selection, swaps them into the engine, and persists the selection.
// This is the reconfiguration path that revives a stopped agent.
func (s *Server) handleSetModels(w http.ResponseWriter, r *http.Request) {
	var req config.AgentSettings
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	local, frontier, err := reasoner.BuildTiers(&req, s.keys)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.ConfigureReasoners(req, local, frontier); err != nil {
		handleErr(w, err)
		return
	}
	if err := config.SaveSettings(s.cfg.Workspace, &req); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleGetModels(w http.ResponseWriter, r *http.Request) {
	state, err := s.engine.State(r.Context())
	if err != nil {
		handleErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state.Selections)
}

func (s *Server) handleLoopStart(w http.ResponseWriter, r *http.Request) {
	var req loopStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	status, err := s.engine.StartLoop(req.IntervalMS)
	if err != nil {
		handleErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleLoopStop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.StopLoop())
}

func (s *Server) handleLoopStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.LoopStatus())
}

func (s *Server) handleLoopEvents(w http.ResponseWriter, r *http.Request) {
	after, err := parseUintQuery(r, "after", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": s.engine.EventsAfter(after)})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.engine.State(r.Context())
	if err != nil {
		handleErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.engine.Dashboard(r.Context())
	if err != nil {
		handleErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Metrics())
}

func (s *Server) handleListIterations(w http.ResponseWriter, r *http.Request) {
	afterID, err := parseIntQuery(r, "after_id", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := parseIntQuery(r, "limit", defaultIterationLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit = clampLimit(limit)

	iterations := []*journal.Iteration{}
	if s.store != nil {
		iterations, err = s.store.ListAfter(r.Context(), afterID, int(limit))
		if err != nil {
			handleErr(w, err)
			return
		}
		if iterations == nil {
			iterations = []*journal.Iteration{}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"iterations": iterations})
}

func (s *Server) handleGetIteration(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid iteration id"))
		return
	}

	if s.store == nil {
		handleErr(w, journal.ErrNotFound)
		return
	}
	it, err := s.store.Get(r.Context(), id)
	if err != nil {
		handleErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"approvals": s.engine.PendingApprovals()})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid approval id"))
		return
	}

	result, err := s.engine.Approve(r.Context(), id)
	if err != nil {
		handleErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid approval id"))
		return
	}

	if !s.engine.Deny(id) {
		handleErr(w, engine.ErrUnknownApproval)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "denied"})
}

func (s *Server) handleRouteContract(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, engine.PluginRouteSchema())
}

func parseUintQuery(r *http.Request, name string, fallback uint64) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be a non-negative integer", name)
	}
	return v, nil
}

func parseIntQuery(r *http.Request, name string, fallback int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be an integer", name)
	}
	return v, nil
}

func clampLimit(limit int64) int64 {
	if limit < 1 {
		return 1
	}
	if limit > maxIterationLimit {
		return maxIterationLimit
	}
	return limit
}
