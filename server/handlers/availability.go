package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/rowanvale/copysmith/gen/probe"
)

// AvailabilityHandler serves GET /v1/availability: a live probe of the
// primary channel plus the monitor's rolling view. The signal is advisory;
// clients may attempt generation regardless of the answer.
type AvailabilityHandler struct {
	prober  *probe.Prober
	monitor *probe.Monitor
	logger  *zap.Logger
}

// NewAvailabilityHandler creates the availability endpoint handler. The
// monitor may be nil when background probing is disabled.
func NewAvailabilityHandler(prober *probe.Prober, monitor *probe.Monitor, logger *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		prober:  prober,
		monitor: monitor,
		logger:  logger,
	}
}

// availabilityReply is the wire response of the availability endpoint.
type availabilityReply struct {
	Available bool   `json:"available"`
	Method    string `json:"method"`
	Health    string `json:"health,omitempty"`
}

func (h *AvailabilityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	avail := h.prober.Check(r.Context())

	reply := availabilityReply{
		Available: avail.Available,
		Method:    avail.Method,
	}
	if h.monitor != nil {
		reply.Health = h.monitor.State()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		h.logger.Error("failed to encode availability reply", zap.Error(err))
	}
}
