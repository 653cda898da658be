package syslog

import (
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	gosyslog "gopkg.in/mcuadros/go-syslog.v2"
	"gopkg.in/mcuadros/go-syslog.v2/format"
)

// collector is an in-process syslog server receiving what the senders write
type collector struct {
	server  *gosyslog.Server
	channel gosyslog.LogPartsChannel
	port    int
}

func startCollector(t *testing.T, network string, f format.Format) *collector {
	t.Helper()

	c := &collector{channel: make(gosyslog.LogPartsChannel, 100)}
	c.server = gosyslog.NewServer()
	c.server.SetFormat(f)
	c.server.SetHandler(gosyslog.NewChannelHandler(c.channel))

	c.port = freePort(t, network)
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(c.port))
	var err error
	if network == "udp" {
		err = c.server.ListenUDP(addr)
	} else {
		err = c.server.ListenTCP(addr)
	}
	if err != nil {
		t.Fatalf("collector listen failed: %v", err)
	}
	if err := c.server.Boot(); err != nil {
		t.Fatalf("collector boot failed: %v", err)
	}
	t.Cleanup(func() { _ = c.server.Kill() })
	return c
}

// expect waits for a message containing want in any of its parsed parts
func (c *collector) expect(t *testing.T, want string) format.LogParts {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case parts := <-c.channel:
			if partsContain(parts, want) {
				return parts
			}
		case <-timeout:
			t.Fatalf("collector did not receive %q", want)
			return nil
		}
	}
}

func partsContain(parts format.LogParts, want string) bool {
	for _, v := range parts {
		if s, ok := v.(string); ok && strings.Contains(s, want) {
			return true
		}
	}
	return false
}

// freePort returns a port that was free a moment ago
func freePort(t *testing.T, network string) int {
	t.Helper()
	if network == "udp" {
		conn, err := net.ListenPacket("udp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("cannot allocate udp port: %v", err)
		}
		defer conn.Close()
		return conn.LocalAddr().(*net.UDPAddr).Port
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("cannot allocate tcp port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
