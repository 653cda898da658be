package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/forwarder"
)

// stubForwarder returns canned status values
type stubForwarder struct {
	health     forwarder.HealthStatus
	stats      forwarder.Stats
	partitions []forwarder.PartitionStatus
}

func (s *stubForwarder) Start(context.Context) error    { return nil }
func (s *stubForwarder) Shutdown(context.Context) error { return nil }
func (s *stubForwarder) Close() error                   { return nil }
func (s *stubForwarder) State() forwarder.State         { return s.health.State }
func (s *stubForwarder) Health() forwarder.HealthStatus { return s.health }
func (s *stubForwarder) Stats() forwarder.Stats         { return s.stats }

func (s *stubForwarder) Partitions() []forwarder.PartitionStatus { return s.partitions }

var _ forwarder.Forwarder = (*stubForwarder)(nil)

const testSecret = "test-secret-key"

// testServerSetup holds common test dependencies
type testServerSetup struct {
	Forwarder *stubForwarder
	Server    *Server
	Handler   http.Handler
}

func newTestServerSetup(t *testing.T, fwd *stubForwarder) *testServerSetup {
	t.Helper()

	server, err := NewServer(fwd, Config{ListenAddress: "127.0.0.1:0", SecretKey: testSecret})
	require.NoError(t, err)

	return &testServerSetup{Forwarder: fwd, Server: server, Handler: server.Handler()}
}

func (s *testServerSetup) token(t *testing.T, clientID string, isAdmin bool) string {
	t.Helper()
	token, _, err := s.Server.Tokens().Issue(clientID, isAdmin)
	require.NoError(t, err)
	return token
}

func (s *testServerSetup) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func runningForwarder() *stubForwarder {
	return &stubForwarder{
		health: forwarder.HealthStatus{
			Healthy:              true,
			State:                forwarder.Running,
			ForwardedPartitions:  2,
			SubscribedPartitions: 2,
			Syslogs:              1,
			Message:              "forwarding 2 partitions",
		},
		stats: forwarder.Stats{
			StartedAt:     time.Now().Add(-time.Minute),
			Notifications: 3,
			Messages:      5,
			Deliveries:    5,
		},
		partitions: []forwarder.PartitionStatus{
			{URI: "/api/partitions/1", Name: "PART1", Complex: "MYCPC", Topic: "t1", Syslogs: []string{"10.11.12.14:514/tcp"}},
			{URI: "/api/partitions/2", Name: "PART2", Complex: "MYCPC", Topic: "t2", Syslogs: []string{"10.11.12.14:514/tcp"}},
		},
	}
}
