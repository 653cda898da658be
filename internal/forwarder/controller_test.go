package forwarder

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/config"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/consoletest"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/console"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/forwarder"
)

type controllerFixture struct {
	console    *consoletest.Console
	dialer     *fakeDialer
	logs       *logCapture
	controller *Controller
}

func newControllerFixture(t *testing.T, layout map[string][]string, entries ...config.Forwarding) *controllerFixture {
	t.Helper()
	f := &controllerFixture{
		console: consoletest.NewConsole(layout),
		dialer:  newFakeDialer(),
		logs:    newLogCapture(),
	}
	controller, err := NewController(&Config{
		Connector: f.console,
		Matcher:   compileRoutes(t, entries...),
		Dialer:    f.dialer.Dial,
		Logger:    f.logs.logger(),
	})
	require.NoError(t, err)
	f.controller = controller
	t.Cleanup(func() { _ = controller.Close() })
	return f
}

func TestNewController_InvalidConfig(t *testing.T) {
	_, err := NewController(nil)
	assert.Error(t, err)

	_, err = NewController(&Config{})
	assert.ErrorIs(t, err, ErrNilConnector)

	_, err = NewController(&Config{Connector: consoletest.NewConsole(nil)})
	assert.ErrorIs(t, err, ErrNilMatcher)
}

func TestController_StartForwardsAndShutsDown(t *testing.T) {
	f := newControllerFixture(t,
		map[string][]string{"MYCPC": {"PART1", "PART2"}, "OTHERCPC": {"PART1"}},
		forwarding("MYCPC", ".*", "10.11.12.14"),
	)
	ctx := context.Background()

	require.NoError(t, f.controller.Start(ctx))
	assert.Equal(t, forwarder.Running, f.controller.State())

	part1 := consoletest.PartitionURI("MYCPC", "PART1")
	assert.True(t, f.controller.Registry().IsForwarding(part1))
	assert.False(t, f.controller.Registry().IsForwarding(consoletest.PartitionURI("OTHERCPC", "PART1")))
	assert.ElementsMatch(t, []string{"topic-PART1", "topic-PART2"}, f.console.Stream.Topics())

	health := f.controller.Health()
	assert.True(t, health.Healthy)
	assert.Equal(t, 2, health.ForwardedPartitions)
	assert.Equal(t, 2, health.SubscribedPartitions)
	assert.Equal(t, 1, health.Syslogs)

	f.console.Stream.Push(consoletest.OSMessages(part1, console.OSMessage{SequenceNumber: 5, Text: "hello\n"}))
	sender := f.dialer.sender("10.11.12.14")
	require.Eventually(t, func() bool { return len(sender.Lines()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "MYCPC PART1 5: hello", sender.Lines()[0])

	stats := f.controller.Stats()
	assert.Equal(t, uint64(1), stats.Notifications)
	assert.Equal(t, uint64(1), stats.Messages)
	assert.Equal(t, uint64(1), stats.Deliveries)
	assert.False(t, stats.StartedAt.IsZero())

	partitions := f.controller.Partitions()
	require.Len(t, partitions, 2)
	assert.Equal(t, "PART1", partitions[0].Name)
	assert.Equal(t, "MYCPC", partitions[0].Complex)
	assert.Equal(t, []string{"10.11.12.14:514/tcp"}, partitions[0].Syslogs)

	require.NoError(t, f.controller.Shutdown(ctx))
	assert.Equal(t, forwarder.Closed, f.controller.State())
	assert.True(t, f.console.Stream.Closed())
	assert.Empty(t, f.console.Stream.Topics())
	assert.True(t, sender.Closed())
	assert.Equal(t, 1, f.console.Logoffs())
	assert.False(t, f.controller.Health().Healthy)

	// idempotent
	require.NoError(t, f.controller.Shutdown(ctx))
	assert.Equal(t, 1, f.console.Logoffs())
}

func TestController_StartTwice(t *testing.T) {
	f := newControllerFixture(t, map[string][]string{"CPC1": {"LP1"}}, forwarding("CPC1", ".*", "s1"))

	require.NoError(t, f.controller.Start(context.Background()))
	assert.ErrorIs(t, f.controller.Start(context.Background()), ErrAlreadyStarted)
}

func TestController_AlreadyOpenReusesTopic(t *testing.T) {
	f := newControllerFixture(t, map[string][]string{"CPC1": {"LP1"}}, forwarding("CPC1", ".*", "s1"))
	uri := consoletest.PartitionURI("CPC1", "LP1")
	f.console.Results[uri] = console.OpenResult{Status: console.AlreadyOpen, Topic: "existing-topic"}

	require.NoError(t, f.controller.Start(context.Background()))

	assert.Equal(t, []string{"existing-topic"}, f.console.Stream.Topics())
	entry, ok := f.controller.Registry().Entry(uri)
	require.True(t, ok)
	assert.Equal(t, "existing-topic", entry.Topic)
	assert.Len(t, f.logs.find(slog.LevelInfo, "reusing existing OS message channel"), 1)
}

func TestController_UnsupportedPartitionIsKeptWithoutTopic(t *testing.T) {
	f := newControllerFixture(t,
		map[string][]string{"CPC1": {"LP1", "LP2"}},
		forwarding("CPC1", "LP1", "s1"),
		forwarding("CPC2", ".*", "unused"),
	)
	// LP2 is not routed, LP1 is routed but unsupported
	uri := consoletest.PartitionURI("CPC1", "LP1")
	f.console.Results[uri] = console.OpenResult{Status: console.Unsupported}

	require.NoError(t, f.controller.Start(context.Background()))

	assert.Equal(t, forwarder.Running, f.controller.State())
	assert.True(t, f.controller.Registry().IsForwarding(uri))
	entry, _ := f.controller.Registry().Entry(uri)
	assert.Empty(t, entry.Topic)
	assert.Empty(t, f.console.Stream.Topics())

	warnings := f.logs.find(slog.LevelWarn, "the OS in the partition does not support OS messages, ignoring the partition")
	require.Len(t, warnings, 1)
	assert.Equal(t, "LP1", warnings[0].Attrs["partition"])

	health := f.controller.Health()
	assert.Equal(t, 1, health.ForwardedPartitions)
	assert.Equal(t, 0, health.SubscribedPartitions)
	assert.Equal(t, 0, health.Syslogs, "no sender for targets of unsubscribed partitions")
}

func TestController_SkipsUnreachableSyslogServer(t *testing.T) {
	f := newControllerFixture(t, map[string][]string{"CPC1": {"LP1"}}, forwarding("CPC1", ".*", "down", "up"))
	f.dialer.refuse["down"] = true

	require.NoError(t, f.controller.Start(context.Background()))

	health := f.controller.Health()
	assert.True(t, health.Healthy)
	assert.Equal(t, 1, health.Syslogs)
	assert.Equal(t, 1, health.DisabledSyslogs)
	assert.Len(t, f.logs.find(slog.LevelWarn, "skipping syslog server"), 1)

	f.console.Stream.Push(consoletest.OSMessages(consoletest.PartitionURI("CPC1", "LP1"), console.OSMessage{SequenceNumber: 1, Text: "x"}))
	sender := f.dialer.sender("up")
	require.Eventually(t, func() bool { return len(sender.Lines()) == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestController_LogonFailure(t *testing.T) {
	f := newControllerFixture(t, map[string][]string{"CPC1": {"LP1"}}, forwarding("CPC1", ".*", "s1"))
	f.console.LogonErr = errors.New("HTTP 403: bad credentials")

	err := f.controller.Start(context.Background())
	require.Error(t, err)

	var startupErr *StartupError
	require.True(t, errors.As(err, &startupErr))
	assert.Equal(t, forwarder.Idle, startupErr.State)
	assert.ErrorIs(t, err, f.console.LogonErr)
	assert.Equal(t, forwarder.Closed, f.controller.State())
	assert.Equal(t, 0, f.console.Logoffs())
}

func TestController_OpenChannelFailureCleansUp(t *testing.T) {
	f := newControllerFixture(t, map[string][]string{"CPC1": {"LP1", "LP2"}}, forwarding("CPC1", ".*", "s1"))
	openErr := errors.New("HTTP 500: internal error")
	f.console.OpenErrors[consoletest.PartitionURI("CPC1", "LP2")] = openErr

	err := f.controller.Start(context.Background())
	require.Error(t, err)

	var startupErr *StartupError
	require.True(t, errors.As(err, &startupErr))
	assert.Equal(t, forwarder.Enumerated, startupErr.State)
	assert.ErrorIs(t, err, openErr)

	assert.Equal(t, forwarder.Closed, f.controller.State())
	assert.True(t, f.console.Stream.Closed())
	assert.Empty(t, f.console.Stream.Topics(), "LP1's topic was unsubscribed during cleanup")
	assert.Equal(t, 1, f.console.Logoffs())
}

func TestController_EnumerationFailureLogsOff(t *testing.T) {
	f := newControllerFixture(t, map[string][]string{"CPC1": {"LP1"}}, forwarding("CPC1", ".*", "s1"))
	f.console.ListErr = errors.New("HTTP 500")

	err := f.controller.Start(context.Background())

	var startupErr *StartupError
	require.True(t, errors.As(err, &startupErr))
	assert.Equal(t, forwarder.SessionOpen, startupErr.State)
	assert.Equal(t, 1, f.console.Logoffs())
}

func TestController_ShutdownIsBestEffort(t *testing.T) {
	f := newControllerFixture(t, map[string][]string{"CPC1": {"LP1"}}, forwarding("CPC1", ".*", "s1"))
	require.NoError(t, f.controller.Start(context.Background()))

	f.console.Stream.UnsubscribeErr = errors.New("unsubscribe refused")
	f.console.LogoffErr = errors.New("logoff refused")

	err := f.controller.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsubscribe refused")
	assert.Contains(t, err.Error(), "logoff refused")

	assert.True(t, f.console.Stream.Closed(), "stream closed despite unsubscribe failure")
	assert.True(t, f.dialer.sender("s1").Closed())
	assert.Equal(t, 1, f.console.Logoffs())
	assert.Equal(t, forwarder.Closed, f.controller.State())
}

func TestController_ShutdownBeforeStart(t *testing.T) {
	f := newControllerFixture(t, map[string][]string{"CPC1": {"LP1"}}, forwarding("CPC1", ".*", "s1"))

	require.NoError(t, f.controller.Shutdown(context.Background()))
	assert.Equal(t, forwarder.Closed, f.controller.State())
	assert.Equal(t, 0, f.console.Logoffs())
	assert.ErrorIs(t, f.controller.Start(context.Background()), ErrAlreadyStarted)
}

func TestStartupError(t *testing.T) {
	inner := errors.New("boom")
	err := error(&StartupError{State: forwarder.SessionOpen, Err: inner})
	assert.Equal(t, "forwarder startup failed in state SessionOpen: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}
