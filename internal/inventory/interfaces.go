package inventory

import (
	"context"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/console"
)

// Inventory defines the interface for partition enumeration
type Inventory interface {
	// FindPartitions returns every partition of every managed complex
	FindPartitions(ctx context.Context) ([]console.Partition, error)
}
