package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/orchestream/internal/artnet"
	"github.com/nerrad567/orchestream/internal/bridge"
	"github.com/nerrad567/orchestream/internal/mapping"
)

// handleStatus returns the bridge status snapshot plus receive counters.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	stats := s.bridge.ReceiverStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"bridge":   s.bridge.Status(),
		"receiver": stats,
	})
}

// handleBridgeStart starts the DMX-to-automation pipeline.
func (s *Server) handleBridgeStart(w http.ResponseWriter, r *http.Request) {
	if err := s.bridge.Start(r.Context()); err != nil {
		if errors.Is(err, bridge.ErrAlreadyRunning) {
			writeConflict(w, "bridge is already running")
			return
		}
		s.logger.Error("bridge start failed", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeInternal, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.bridge.Status())
}

// handleBridgeStop stops the pipeline. Stopping a stopped bridge succeeds.
func (s *Server) handleBridgeStop(w http.ResponseWriter, _ *http.Request) {
	s.bridge.Stop()
	writeJSON(w, http.StatusOK, s.bridge.Status())
}

// handleListMappings returns the mapping table in discovery order.
func (s *Server) handleListMappings(w http.ResponseWriter, _ *http.Request) {
	mappings := s.bridge.Mappings()
	writeJSON(w, http.StatusOK, map[string]any{
		"mappings": mappings,
		"count":    len(mappings),
	})
}

// handleRefreshMappings re-runs entity discovery and channel assignment.
func (s *Server) handleRefreshMappings(w http.ResponseWriter, r *http.Request) {
	if err := s.bridge.Refresh(r.Context()); err != nil {
		if errors.Is(err, bridge.ErrNotRunning) {
			writeConflict(w, "bridge is not running")
			return
		}
		s.logger.Error("mapping refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeInternal, err.Error())
		return
	}

	s.handleListMappings(w, r)
}

// updateMappingRequest is the body for PUT /mappings/{deviceID}.
type updateMappingRequest struct {
	Channel    int    `json:"channel"`
	DeviceType string `json:"device_type"`
}

// handleUpdateMapping moves or retypes one device mapping, creating it
// when the device has none yet.
func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	var req updateMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	err := s.bridge.UpdateMapping(r.Context(), deviceID, req.Channel, mapping.DeviceType(req.DeviceType))
	switch {
	case err == nil:
	case errors.Is(err, mapping.ErrChannelConflict):
		writeConflict(w, err.Error())
		return
	case errors.Is(err, mapping.ErrChannelRange), errors.Is(err, mapping.ErrInvalidType):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	default:
		s.logger.Error("mapping update failed", "device", deviceID, "error", err)
		writeInternalError(w, "mapping update failed")
		return
	}

	mappings := s.bridge.Mappings()
	for _, m := range mappings {
		if m.DeviceID == deviceID {
			writeJSON(w, http.StatusOK, m)
			return
		}
	}
	writeNotFound(w, "no mapping for device "+deviceID)
}

// handleRemoveMapping deletes one device mapping. Removing an unmapped
// device succeeds.
func (s *Server) handleRemoveMapping(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	if err := s.bridge.RemoveMapping(r.Context(), deviceID); err != nil {
		s.logger.Error("mapping removal failed", "device", deviceID, "error", err)
		writeInternalError(w, "mapping removal failed")
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// channelsDefaultCount limits an unqualified channel query.
const channelsDefaultCount = 32

// handleChannels returns a window of live DMX channel values.
//
// Query parameters: start (1-based, default 1) and count (default 32).
func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	start := queryInt(r, "start", 1)
	count := queryInt(r, "count", channelsDefaultCount)

	values, err := s.bridge.Channels(start, count)
	if err != nil {
		if errors.Is(err, artnet.ErrChannelRange) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		writeInternalError(w, "channel read failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"start":  start,
		"count":  len(values),
		"values": values,
	})
}

// handleConfig returns the runtime configuration with secrets redacted.
func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	if s.appCfg == nil {
		writeNotFound(w, "configuration not available")
		return
	}

	redacted := *s.appCfg
	if redacted.HomeAssistant.Token != "" {
		redacted.HomeAssistant.Token = "***"
	}
	if redacted.MQTT.Auth.Password != "" {
		redacted.MQTT.Auth.Password = "***"
	}
	if redacted.InfluxDB.Token != "" {
		redacted.InfluxDB.Token = "***"
	}

	writeJSON(w, http.StatusOK, redacted)
}

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
