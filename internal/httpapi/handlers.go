package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/forwarder"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	fwd forwarder.Forwarder
	now func() time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(fwd forwarder.Forwarder) *Handlers {
	return &Handlers{fwd: fwd, now: time.Now}
}

// Health handles GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := h.fwd.Health()

	resp := HealthResponse{
		Healthy:              health.Healthy,
		State:                health.State.String(),
		ForwardedPartitions:  health.ForwardedPartitions,
		SubscribedPartitions: health.SubscribedPartitions,
		Syslogs:              health.Syslogs,
		DisabledSyslogs:      health.DisabledSyslogs,
		Message:              health.Message,
	}

	statusCode := http.StatusOK
	if !health.Healthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, resp, statusCode)
}

// ListLpars handles GET /api/v1/lpars
func (h *Handlers) ListLpars(w http.ResponseWriter, r *http.Request) {
	partitions := h.fwd.Partitions()

	resp := LparsResponse{Lpars: make([]LparInfo, 0, len(partitions))}
	for _, p := range partitions {
		syslogs := p.Syslogs
		if syslogs == nil {
			syslogs = []string{}
		}
		resp.Lpars = append(resp.Lpars, LparInfo{
			URI:     p.URI,
			Name:    p.Name,
			CPC:     p.Complex,
			Topic:   p.Topic,
			Syslogs: syslogs,
		})
	}
	writeJSON(w, resp, http.StatusOK)
}

// AdminGetStats handles GET /api/v1/admin/stats
func (h *Handlers) AdminGetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.fwd.Stats()

	resp := AdminStatsResponse{
		StartedAt:            stats.StartedAt,
		Notifications:        stats.Notifications,
		IgnoredNotifications: stats.IgnoredNotifications,
		ReceiveErrors:        stats.ReceiveErrors,
		Messages:             stats.Messages,
		Deliveries:           stats.Deliveries,
		DeliveryFailures:     stats.DeliveryFailures,
	}
	if !stats.StartedAt.IsZero() {
		resp.UptimeSeconds = int64(h.now().Sub(stats.StartedAt).Seconds())
	}
	writeJSON(w, resp, http.StatusOK)
}

// writeError writes an error response as JSON
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
