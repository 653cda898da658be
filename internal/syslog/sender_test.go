package syslog

import (
	"errors"
	"io"
	"testing"

	"github.com/RackSec/srslog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gosyslog "gopkg.in/mcuadros/go-syslog.v2"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/routingtable"
)

func target(port int, transport routingtable.Transport, f routingtable.Format) *routingtable.SyslogTarget {
	t := routingtable.NewSyslogTarget("127.0.0.1")
	t.Port = port
	t.Transport = transport
	t.Format = f
	return t
}

func TestDial_DatagramRFC3164(t *testing.T) {
	c := startCollector(t, "udp", gosyslog.RFC3164)

	sender, err := Dial(target(c.port, routingtable.Datagram, routingtable.RFC3164))
	require.NoError(t, err)
	defer sender.Close()

	require.NoError(t, sender.Send("MYCPC PART1 42: IEE254I hello over udp"))
	c.expect(t, "IEE254I hello over udp")
}

func TestDial_StreamRFC3164(t *testing.T) {
	c := startCollector(t, "tcp", gosyslog.RFC3164)

	sender, err := Dial(target(c.port, routingtable.Stream, routingtable.RFC3164))
	require.NoError(t, err)
	defer sender.Close()

	require.NoError(t, sender.Send("MYCPC PART1 1: first"))
	require.NoError(t, sender.Send("MYCPC PART1 2: second"))
	c.expect(t, "MYCPC PART1 1: first")
	c.expect(t, "MYCPC PART1 2: second")
}

func TestSend_EmbeddedNewlinesJoined(t *testing.T) {
	c := startCollector(t, "tcp", gosyslog.RFC3164)

	sender, err := Dial(target(c.port, routingtable.Stream, routingtable.RFC3164))
	require.NoError(t, err)
	defer sender.Close()

	require.NoError(t, sender.Send("MYCPC PART1 3: IEA371I first half\nsecond half"))
	require.NoError(t, sender.Send("MYCPC PART1 4: next"))
	c.expect(t, "MYCPC PART1 3: IEA371I first half second half")
	c.expect(t, "MYCPC PART1 4: next")
}

func TestDial_DatagramRFC5424(t *testing.T) {
	c := startCollector(t, "udp", gosyslog.RFC5424)

	sender, err := Dial(target(c.port, routingtable.Datagram, routingtable.RFC5424))
	require.NoError(t, err)
	defer sender.Close()

	require.NoError(t, sender.Send("CPC2 LP9 7: structured"))
	c.expect(t, "CPC2 LP9 7: structured")
}

func TestDial_StreamRefused(t *testing.T) {
	port := freePort(t, "tcp")

	sender, err := Dial(target(port, routingtable.Stream, routingtable.RFC3164))
	require.Error(t, err)
	assert.Nil(t, sender)
	assert.Contains(t, err.Error(), "cannot create syslog sender")
}

func TestFacility(t *testing.T) {
	assert.Equal(t, srslog.LOG_USER, Facility("user"))
	assert.Equal(t, srslog.LOG_LOCAL0, Facility("local0"))
	assert.Equal(t, srslog.LOG_LOCAL7, Facility("local7"))
	assert.Equal(t, srslog.LOG_USER, Facility("bogus"))
	for _, name := range routingtable.Facilities {
		_, ok := facilities[name]
		assert.True(t, ok, "facility %s has no mapping", name)
	}
}

func TestDeliveryError(t *testing.T) {
	err := error(&DeliveryError{Target: "h:514/tcp", Err: io.ErrClosedPipe})
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
	assert.Equal(t, "cannot send to syslog server h:514/tcp: io: read/write on closed pipe", err.Error())
}
