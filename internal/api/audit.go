package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/cinnamon-core/internal/audit"
)

// auditMiddleware records every request that reaches it in the operator
// action trail, with the status the handler answered.
func (s *Server) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.audit == nil {
			next.ServeHTTP(w, r)
			return
		}
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		a := &audit.Action{
			Action:  actionName(r),
			Target:  chi.URLParam(r, "id"),
			Subject: subjectFrom(r, ""),
			Source:  "api",
			Status:  wrapped.status,
		}
		if id, ok := r.Context().Value(ctxKeyRequestID).(string); ok {
			a.Details = map[string]any{"request_id": id}
		}
		if err := s.audit.Record(context.WithoutCancel(r.Context()), a); err != nil {
			s.logger.Warn("operator action not recorded", "action", a.Action, "error", err)
		}
	})
}

// routeOf returns the matched chi pattern, or the raw path before routing.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		return rc.RoutePattern()
	}
	return r.URL.Path
}

// actionName turns the matched route into a dotted name:
// /api/v1/materials/{id}/fade becomes materials.fade.
func actionName(r *http.Request) string {
	var parts []string
	for _, p := range strings.Split(strings.TrimPrefix(routeOf(r), "/api/v1/"), "/") {
		if p == "" || strings.HasPrefix(p, "{") {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ".")
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeJSON(w, http.StatusOK, audit.ListResult{Actions: []audit.Action{}})
		return
	}
	q := r.URL.Query()
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	offset := 0
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	res, err := s.audit.List(r.Context(), audit.Filter{
		Action:  q.Get("action"),
		Subject: q.Get("subject"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		s.logger.Error("listing operator actions failed", "error", err)
		writeInternalError(w, "failed to list operator actions")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
