package health

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/forwarder"
)

type fakeSource struct {
	state atomic.Int32
}

func (f *fakeSource) set(s forwarder.State) { f.state.Store(int32(s)) }

func (f *fakeSource) State() forwarder.State { return forwarder.State(f.state.Load()) }

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr error
	}{
		{name: "valid config", config: &Config{ListenAddress: "127.0.0.1:0"}},
		{name: "empty listen address", config: &Config{}, wantErr: ErrMissingListenAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	config := &Config{ListenAddress: "127.0.0.1:0"}
	config.SetDefaults()
	assert.Equal(t, time.Second, config.PollInterval)
	assert.NotNil(t, config.Logger)

	config = &Config{ListenAddress: "127.0.0.1:0", PollInterval: 5 * time.Millisecond}
	config.SetDefaults()
	assert.Equal(t, 5*time.Millisecond, config.PollInterval)
}

func TestNewServer_Errors(t *testing.T) {
	_, err := NewServer(&Config{}, &fakeSource{})
	assert.ErrorIs(t, err, ErrMissingListenAddress)

	_, err = NewServer(&Config{ListenAddress: "127.0.0.1:0"}, nil)
	assert.Error(t, err)
}

func startServer(t *testing.T, source StateSource) (*Server, healthpb.HealthClient) {
	t.Helper()

	srv, err := NewServer(&Config{ListenAddress: "127.0.0.1:0", PollInterval: 5 * time.Millisecond}, source)
	require.NoError(t, err)
	require.NoError(t, srv.Start(testContext(t)))
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(srv.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return srv, healthpb.NewHealthClient(conn)
}

func checkStatus(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(testContext(t), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestServer_FollowsForwarderState(t *testing.T) {
	source := &fakeSource{}
	source.set(forwarder.Subscribed)
	_, client := startServer(t, source)

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, client, ""))

	source.set(forwarder.Running)
	require.Eventually(t, func() bool {
		return checkStatus(t, client, ServiceName) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, client, ""))

	source.set(forwarder.ShuttingDown)
	require.Eventually(t, func() bool {
		return checkStatus(t, client, ServiceName) == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_StartTwice(t *testing.T) {
	source := &fakeSource{}
	srv, _ := startServer(t, source)
	assert.Error(t, srv.Start(testContext(t)))
}

func TestServer_AddrBeforeStart(t *testing.T) {
	srv, err := NewServer(&Config{ListenAddress: "127.0.0.1:0"}, &fakeSource{})
	require.NoError(t, err)
	assert.Nil(t, srv.Addr())
}

func TestServer_DrainOverridesState(t *testing.T) {
	source := &fakeSource{}
	source.set(forwarder.Running)
	srv, client := startServer(t, source)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, client, ServiceName))

	srv.Drain()
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, client, ServiceName))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, client, ""))

	// state updates are ignored once draining
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, client, ServiceName))
}
