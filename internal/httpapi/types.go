package httpapi

import "time"

// Request/Response types for the HTTP API

// HealthResponse represents health check response
type HealthResponse struct {
	Healthy              bool   `json:"healthy"`
	State                string `json:"state"`
	ForwardedPartitions  int    `json:"forwardedPartitions"`
	SubscribedPartitions int    `json:"subscribedPartitions"`
	Syslogs              int    `json:"syslogs"`
	DisabledSyslogs      int    `json:"disabledSyslogs"`
	Message              string `json:"message"`
}

// LparsResponse lists the forwarded partitions
type LparsResponse struct {
	Lpars []LparInfo `json:"lpars"`
}

// LparInfo describes one forwarded partition
type LparInfo struct {
	URI     string   `json:"uri"`
	Name    string   `json:"name"`
	CPC     string   `json:"cpc"`
	Topic   string   `json:"topic,omitempty"`
	Syslogs []string `json:"syslogs"`
}

// AdminStatsResponse represents forwarding statistics
type AdminStatsResponse struct {
	StartedAt            time.Time `json:"startedAt"`
	UptimeSeconds        int64     `json:"uptimeSeconds"`
	Notifications        uint64    `json:"notifications"`
	IgnoredNotifications uint64    `json:"ignoredNotifications"`
	ReceiveErrors        uint64    `json:"receiveErrors"`
	Messages             uint64    `json:"messages"`
	Deliveries           uint64    `json:"deliveries"`
	DeliveryFailures     uint64    `json:"deliveryFailures"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
