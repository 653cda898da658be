package httpapi

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/config"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/consoletest"
	fwd "github.com/rmacdonaldsmith/lpar-forwarder/internal/forwarder"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/routingtable"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/syslog"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/httpclient"
	routingtablepkg "github.com/rmacdonaldsmith/lpar-forwarder/pkg/routingtable"
)

type discardSender struct{}

func (discardSender) Send(string) error { return nil }
func (discardSender) Close() error      { return nil }

// TestStatusAPI_OverRunningController serves a started controller and reads
// it back through the status client
func TestStatusAPI_OverRunningController(t *testing.T) {
	table, err := routingtable.Compile([]config.Forwarding{{
		Syslogs: []config.Syslog{{Host: "10.11.12.14"}},
		CPCs:    []config.CPC{{CPC: "MYCPC", Partitions: []config.Partition{{Partition: ".*"}}}},
	}})
	require.NoError(t, err)

	controller, err := fwd.NewController(&fwd.Config{
		Connector: consoletest.NewConsole(map[string][]string{"MYCPC": {"PART1", "PART2"}, "OTHER": {"PART1"}}),
		Matcher:   table,
		Dialer: func(*routingtablepkg.SyslogTarget) (syslog.Sender, error) {
			return discardSender{}, nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, controller.Start(testContext(t)))
	defer controller.Close()

	server, err := NewServer(controller, Config{ListenAddress: "127.0.0.1:0", SecretKey: testSecret})
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.Serve(lis) }()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, server.Stop(ctx))
	}()

	token, _, err := server.Tokens().Issue("ops", true)
	require.NoError(t, err)

	client, err := httpclient.NewClient(httpclient.Config{ServerURL: "http://" + lis.Addr().String(), Token: token})
	require.NoError(t, err)

	health, err := client.GetHealth(testContext(t))
	require.NoError(t, err)
	assert.True(t, health.Healthy)
	assert.Equal(t, "Running", health.State)
	assert.Equal(t, 2, health.ForwardedPartitions)

	lpars, err := client.ListLpars(testContext(t))
	require.NoError(t, err)
	require.Len(t, lpars.Lpars, 2)
	assert.Equal(t, "MYCPC", lpars.Lpars[0].CPC)

	stats, err := client.GetStats(testContext(t))
	require.NoError(t, err)
	assert.False(t, stats.StartedAt.IsZero())

	require.NoError(t, controller.Shutdown(testContext(t)))
	health, err = client.GetHealth(testContext(t))
	require.NoError(t, err)
	assert.False(t, health.Healthy)
	assert.Equal(t, "Closed", health.State)

	viewer, _, err := server.Tokens().Issue("viewer", false)
	require.NoError(t, err)
	client.SetToken(viewer)
	_, err = client.GetStats(testContext(t))
	var apiErr *httpclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}
