package api

import (
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/httputil"
)

// PendingAlertSummary is the list-view shape of a pending alert. The full
// detection payload is large, so it is only returned by the detail endpoint.
type PendingAlertSummary struct {
	ID         string           `json:"id"`
	StreamID   string           `json:"stream_id"`
	Confidence float64          `json:"confidence"`
	Severity   string           `json:"severity"`
	Status     db.PendingStatus `json:"status"`
	ApprovedBy *string          `json:"approved_by,omitempty"`
	DecidedAt  *time.Time       `json:"decided_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// DecisionRequest is the request body for approving or rejecting a pending
// alert. Reason is only meaningful for rejections.
type DecisionRequest struct {
	ApprovedBy string `json:"approved_by"`
	Reason     string `json:"reason,omitempty"`
}

func (s *Server) listPendingAlerts(w http.ResponseWriter, r *http.Request) {
	status := db.PendingStatus(r.URL.Query().Get("status"))
	switch status {
	case "", db.PendingStatusPending, db.PendingStatusApproved, db.PendingStatusRejected:
	default:
		httputil.BadRequest(w, "invalid 'status' parameter")
		return
	}

	pending, err := s.db.ListPendingAlerts(status)
	if err != nil {
		s.writeError(w, err)
		return
	}

	summaries := lo.Map(pending, func(pa db.PendingAlert, _ int) PendingAlertSummary {
		return PendingAlertSummary{
			ID:         pa.ID,
			StreamID:   pa.StreamID,
			Confidence: pa.Confidence,
			Severity:   pa.Severity,
			Status:     pa.Status,
			ApprovedBy: pa.ApprovedBy,
			DecidedAt:  pa.DecidedAt,
			CreatedAt:  pa.CreatedAt,
		}
	})
	httputil.WriteJSONOK(w, summaries)
}

func (s *Server) getPendingAlert(w http.ResponseWriter, r *http.Request) {
	pa, err := s.db.GetPendingAlert(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, pa)
}

func (s *Server) approvePendingAlert(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}
	if req.ApprovedBy == "" {
		httputil.BadRequest(w, "approved_by is required")
		return
	}

	pa, alert, err := s.machine.Approve(r.Context(), r.PathValue("id"), req.ApprovedBy)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"pending_alert": pa,
		"alert":         alert,
	})
}

func (s *Server) rejectPendingAlert(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}
	if req.ApprovedBy == "" {
		httputil.BadRequest(w, "approved_by is required")
		return
	}

	pa, err := s.machine.Reject(r.Context(), r.PathValue("id"), req.ApprovedBy, req.Reason)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, pa)
}
