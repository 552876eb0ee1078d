package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/cinnamon-core/internal/motion"
	"github.com/nerrad567/cinnamon-core/internal/sequence"
)

// defaultStopReason is recorded when a stop request gives no reason.
const defaultStopReason = "manual override"

// Duration accepts "2.5s" style strings or plain seconds in JSON.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var secs float64
	if err := json.Unmarshal(b, &secs); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string or number of seconds")
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type beginWindowRequest struct {
	Duration  Duration `json:"duration"`
	Threshold *float64 `json:"threshold"`
}

type stopRequest struct {
	Reason string `json:"reason"`
}

type fadeRequest struct {
	// Direction is "in" or "out". Default: in
	Direction string   `json:"direction"`
	Delay     Duration `json:"delay"`
}

type loadSceneRequest struct {
	Name  string `json:"name"`
	Index *int   `json:"index"`
}

// replaceStagesRequest is decoded as YAML so stage delays accept "2s" and
// omitted fields take the script defaults. JSON bodies decode the same way.
type replaceStagesRequest struct {
	Stages []sequence.Stage `yaml:"stages"`
}

// decodeOptionalJSON decodes the body into v. An empty body leaves v untouched.
func decodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.exp.Status(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"experience":        st,
		"websocket_clients": s.Hub().ClientCount(),
	})
}

func (s *Server) handleStartEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.exp.StartEntry(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleStartSequence(w http.ResponseWriter, r *http.Request) {
	source := "api:" + subjectFrom(r, "anonymous")
	if err := s.exp.StartSequence(r.Context(), source); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleStopSequence(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		req.Reason = defaultStopReason
	}
	stopped, err := s.exp.StopSequence(r.Context(), req.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"stopped": stopped})
}

func (s *Server) handleGetStages(w http.ResponseWriter, r *http.Request) {
	stages, err := s.exp.Stages(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if stages == nil {
		stages = []sequence.Stage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stages": stages, "count": len(stages)})
}

func (s *Server) handleReplaceStages(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading body: "+err.Error())
		return
	}
	var req replaceStagesRequest
	if err := yaml.Unmarshal(body, &req); err != nil {
		writeBadRequest(w, "invalid stage list: "+err.Error())
		return
	}
	if err := s.exp.ReplaceStages(r.Context(), req.Stages); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": len(req.Stages)})
}

func (s *Server) handleCloseWindow(w http.ResponseWriter, r *http.Request) {
	closed, err := s.exp.CloseWindow(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"closed": closed})
}

func (s *Server) handleBeginWindow(w http.ResponseWriter, r *http.Request) {
	var req beginWindowRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.Duration < 0 {
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, "duration must not be negative")
		return
	}
	id, err := s.exp.BeginWindow(r.Context(), time.Duration(req.Duration), req.Threshold)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"window_id": id})
}

func (s *Server) handleFadeMaterial(w http.ResponseWriter, r *http.Request) {
	var req fadeRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	var fadeIn bool
	switch req.Direction {
	case "", "in":
		fadeIn = true
	case "out":
	default:
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, `direction must be "in" or "out"`)
		return
	}

	restarted, err := s.exp.TriggerMaterial(r.Context(), chi.URLParam(r, "id"), fadeIn, time.Duration(req.Delay))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"restarted": restarted})
}

func (s *Server) handleNextScene(w http.ResponseWriter, r *http.Request) {
	if err := s.exp.LoadNextScene(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	s.writeScene(w, r)
}

func (s *Server) handleLoadScene(w http.ResponseWriter, r *http.Request) {
	var req loadSceneRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	var err error
	switch {
	case req.Index != nil:
		err = s.exp.LoadSceneIndex(r.Context(), *req.Index)
	case req.Name != "":
		err = s.exp.LoadScene(r.Context(), req.Name)
	default:
		writeBadRequest(w, "name or index is required")
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.writeScene(w, r)
}

func (s *Server) handleMainMenu(w http.ResponseWriter, r *http.Request) {
	if err := s.exp.LoadMainMenu(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	s.writeScene(w, r)
}

func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	if err := s.exp.Quit(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "quitting"})
}

func (s *Server) writeScene(w http.ResponseWriter, r *http.Request) {
	st, err := s.exp.Status(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Scene)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, http.StatusOK, map[string]any{"runs": []sequence.Run{}, "count": 0})
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing runs failed", "error", err)
		writeInternalError(w, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []sequence.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeNotFound(w, "run history is not available")
		return
	}
	run, err := s.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListOutcomes(w http.ResponseWriter, r *http.Request) {
	if s.outcomes == nil {
		writeJSON(w, http.StatusOK, map[string]any{"outcomes": []motion.Outcome{}, "count": 0})
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	outcomes, err := s.outcomes.ListOutcomes(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing outcomes failed", "error", err)
		writeInternalError(w, "failed to list outcomes")
		return
	}
	if outcomes == nil {
		outcomes = []motion.Outcome{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes, "count": len(outcomes)})
}

func (s *Server) handleGetOutcome(w http.ResponseWriter, r *http.Request) {
	if s.outcomes == nil {
		writeNotFound(w, "outcome history is not available")
		return
	}
	o, err := s.outcomes.GetOutcome(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// parseLimit reads ?limit=. Zero means the repository default.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeBadRequest(w, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}
