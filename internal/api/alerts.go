package api

import (
	"net/http"

	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/httputil"
)

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	status := db.AlertStatus(r.URL.Query().Get("status"))
	switch status {
	case "", db.AlertStatusPending, db.AlertStatusSent, db.AlertStatusAcknowledged, db.AlertStatusResolved:
	default:
		httputil.BadRequest(w, "invalid 'status' parameter")
		return
	}

	alerts, err := s.db.ListAlerts(r.URL.Query().Get("stream"), status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, alerts)
}

func (s *Server) getAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := s.db.GetAlert(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, alert)
}

func (s *Server) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := s.db.AcknowledgeAlert(r.PathValue("id"), s.Clock.Now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, alert)
}

func (s *Server) resolveAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := s.db.ResolveAlert(r.PathValue("id"), s.Clock.Now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, alert)
}
