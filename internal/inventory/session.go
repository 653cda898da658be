// Package inventory enumerates the partitions managed by a console and
// registers the ones the routing table forwards.
package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/registry"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/console"
)

// SessionInventory implements Inventory on top of a console session
type SessionInventory struct {
	session console.Session
}

// NewSessionInventory creates an inventory backed by session
func NewSessionInventory(session console.Session) *SessionInventory {
	return &SessionInventory{session: session}
}

// FindPartitions lists all complexes, then the partitions of each one in
// the order the console returns them.
func (s *SessionInventory) FindPartitions(ctx context.Context) ([]console.Partition, error) {
	complexes, err := s.session.ListComplexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list complexes: %w", err)
	}

	var partitions []console.Partition
	for _, c := range complexes {
		ps, err := s.session.ListPartitions(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("list partitions of %s: %w", c.Name, err)
		}
		partitions = append(partitions, ps...)
	}
	return partitions, nil
}

// Populate adds every partition of inv that the registry's routing table
// matches and returns how many were added.
func Populate(ctx context.Context, inv Inventory, reg *registry.Registry, logger *slog.Logger) (int, error) {
	partitions, err := inv.FindPartitions(ctx)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, p := range partitions {
		if !reg.AddIfMatching(p) {
			logger.Debug("not forwarding partition", "cpc", p.ComplexName, "partition", p.Name)
			continue
		}
		added++
		entry, _ := reg.Entry(p.URI)
		hosts := make([]string, 0, len(entry.Destinations))
		for _, d := range entry.Destinations {
			hosts = append(hosts, d.String())
		}
		logger.Info("forwarding OS messages of partition", "cpc", p.ComplexName, "partition", p.Name, "syslogs", hosts)
	}
	return added, nil
}

// Verify that SessionInventory implements the Inventory interface at compile time
var _ Inventory = (*SessionInventory)(nil)
