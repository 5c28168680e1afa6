package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/events"
	"github.com/banshee-data/collision.report/internal/framegeo"
	"github.com/banshee-data/collision.report/internal/httputil"
	"github.com/banshee-data/collision.report/internal/monitoring"
)

// defaultNearbyRadiusM bounds a nearby query when no radius is given.
const defaultNearbyRadiusM = 1000.0

// StreamRequest is the request body for creating or updating a stream.
type StreamRequest struct {
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (req *StreamRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.URL == "" {
		return "url is required"
	}
	if !isValidStreamURL(req.URL) {
		return "url must start with rtsp://, http://, or https://"
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return "latitude and longitude must be provided together"
	}
	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90) {
		return "latitude must be between -90 and 90"
	}
	if req.Longitude != nil && (*req.Longitude < -180 || *req.Longitude > 180) {
		return "longitude must be between -180 and 180"
	}
	return ""
}

func isValidStreamURL(url string) bool {
	return strings.HasPrefix(url, "rtsp://") ||
		strings.HasPrefix(url, "http://") ||
		strings.HasPrefix(url, "https://")
}

func (s *Server) listStreams(w http.ResponseWriter, r *http.Request) {
	streams, err := s.db.GetAllStreams()
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, streams)
}

func (s *Server) createStream(w http.ResponseWriter, r *http.Request) {
	var req StreamRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.BadRequest(w, msg)
		return
	}

	stream := &db.Stream{
		Name:      req.Name,
		URL:       req.URL,
		Location:  req.Location,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	if err := s.db.CreateStream(stream); err != nil {
		s.writeError(w, err)
		return
	}

	created, err := s.db.GetStream(stream.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	monitoring.Logf("created stream %s (%s)", created.ID, created.Name)
	s.bus.Publish(events.StreamEvent(events.KindStreamCreated, created))
	httputil.WriteJSONCreated(w, created)
}

func (s *Server) getStream(w http.ResponseWriter, r *http.Request) {
	stream, err := s.db.GetStream(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, stream)
}

func (s *Server) updateStream(w http.ResponseWriter, r *http.Request) {
	var req StreamRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.BadRequest(w, msg)
		return
	}

	stream, err := s.db.GetStream(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	stream.Name = req.Name
	stream.URL = req.URL
	stream.Location = req.Location
	stream.Latitude = req.Latitude
	stream.Longitude = req.Longitude
	if err := s.db.UpdateStream(stream); err != nil {
		s.writeError(w, err)
		return
	}

	updated, err := s.db.GetStream(stream.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, updated)
}

func (s *Server) deleteStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.db.DeleteStream(id); err != nil {
		s.writeError(w, err)
		return
	}
	monitoring.Logf("deleted stream %s", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) startStream(w http.ResponseWriter, r *http.Request) {
	stream, err := s.sched.Start(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, stream)
}

func (s *Server) stopStream(w http.ResponseWriter, r *http.Request) {
	stream, err := s.sched.Stop(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, stream)
}

// nearbyStream decorates a stream with its distance from the query point.
type nearbyStream struct {
	db.Stream
	DistanceM float64 `json:"distance_m"`
}

func (s *Server) listNearbyStreams(w http.ResponseWriter, r *http.Request) {
	lat, err := parseFloatParam(r, "lat")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	lng, err := parseFloatParam(r, "lng")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	radius := defaultNearbyRadiusM
	if raw := r.URL.Query().Get("radius_m"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			httputil.BadRequest(w, "invalid 'radius_m' parameter")
			return
		}
		radius = parsed
	}

	streams, err := s.db.ListStreamsNear(lat, lng, radius)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := lo.Map(streams, func(stream db.Stream, _ int) nearbyStream {
		return nearbyStream{
			Stream:    stream,
			DistanceM: framegeo.EarthDistanceM(lat, lng, *stream.Latitude, *stream.Longitude),
		}
	})
	httputil.WriteJSONOK(w, resp)
}

func parseFloatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing '%s' parameter", name)
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid '%s' parameter", name)
	}
	return parsed, nil
}
