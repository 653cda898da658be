// Package registry holds the live set of forwarded partitions.
package registry

import (
	"sort"
	"sync"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/console"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/routingtable"
)

// Entry is one forwarded partition with its resolved destinations.
// An empty Topic means no message channel is subscribed for it.
type Entry struct {
	Partition    console.Partition
	Destinations []*routingtable.SyslogTarget
	Topic        string
}

// Registry maps partition URIs to entries.
// Entries are added during startup and read by the dispatch loop and the
// status API at the same time, so it is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	matcher routingtable.Matcher
	entries map[string]*Entry
}

// NewRegistry creates an empty registry resolving destinations with matcher
func NewRegistry(matcher routingtable.Matcher) *Registry {
	return &Registry{
		matcher: matcher,
		entries: make(map[string]*Entry),
	}
}

// AddIfMatching adds p when the routing table has destinations for it and
// reports whether it did. Adding a URI that is already present replaces its
// destinations and keeps its topic.
func (r *Registry) AddIfMatching(p console.Partition) bool {
	targets, ok := r.matcher.Match(p.ComplexName, p.Name)
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := &Entry{Partition: p, Destinations: targets}
	if existing, found := r.entries[p.URI]; found {
		entry.Topic = existing.Topic
	}
	r.entries[p.URI] = entry
	return true
}

// Remove deletes the entry for uri. Removing an unknown URI is a no-op.
func (r *Registry) Remove(uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, uri)
}

// IsForwarding reports whether uri has an entry
func (r *Registry) IsForwarding(uri string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[uri]
	return ok
}

// Destinations returns the targets of uri
func (r *Registry) Destinations(uri string) ([]*routingtable.SyslogTarget, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[uri]
	if !ok {
		return nil, false
	}
	return entry.Destinations, true
}

// SetTopic records the subscribed topic of uri. It returns false if uri has no entry.
func (r *Registry) SetTopic(uri, topic string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[uri]
	if !ok {
		return false
	}
	entry.Topic = topic
	return true
}

// Entry returns a copy of the entry for uri
func (r *Registry) Entry(uri string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[uri]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Entries returns copies of all entries sorted by URI
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	entries := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, *entry)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Partition.URI < entries[j].Partition.URI
	})
	return entries
}

// Len returns the number of entries
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
