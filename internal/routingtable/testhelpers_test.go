package routingtable

import (
	"testing"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/config"
)

// fwd builds a forwarding entry with one cpc item per cpcs key, in order
func fwd(hosts []string, cpcs ...config.CPC) config.Forwarding {
	entry := config.Forwarding{CPCs: cpcs}
	for _, h := range hosts {
		entry.Syslogs = append(entry.Syslogs, config.Syslog{Host: h})
	}
	return entry
}

func cpc(pattern string, partitions ...string) config.CPC {
	c := config.CPC{CPC: pattern}
	for _, p := range partitions {
		c.Partitions = append(c.Partitions, config.Partition{Partition: p})
	}
	return c
}

func mustCompile(t testing.TB, entries ...config.Forwarding) *Table {
	t.Helper()
	table, err := Compile(entries)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return table
}
