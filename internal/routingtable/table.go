package routingtable

import (
	"regexp"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/routingtable"
)

// PartitionRule maps a partition name pattern to its syslog targets
type PartitionRule struct {
	Pattern *regexp.Regexp
	Targets []*routingtable.SyslogTarget
}

// Rule is one complex pattern with its partition rules in declaration order
type Rule struct {
	Complex    *regexp.Regexp
	Partitions []PartitionRule
}

// Table is a compiled, read-only routing table.
// It is never mutated after Compile returns, so concurrent lookups need no locking.
type Table struct {
	rules []Rule
}

// Match implements routingtable.Matcher.
//
// Only the first rule whose complex pattern matches is consulted. If none of
// its partitions match, the result is no match even when a later rule would
// have matched both names.
func (t *Table) Match(complexName, partitionName string) ([]*routingtable.SyslogTarget, bool) {
	for _, rule := range t.rules {
		if !rule.Complex.MatchString(complexName) {
			continue
		}
		for _, partition := range rule.Partitions {
			if partition.Pattern.MatchString(partitionName) {
				return partition.Targets, true
			}
		}
		return nil, false
	}
	return nil, false
}

// Rules returns a copy of the compiled rules in declaration order
func (t *Table) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}

// Targets returns every distinct target of the table in declaration order
func (t *Table) Targets() []*routingtable.SyslogTarget {
	seen := make(map[*routingtable.SyslogTarget]bool)
	var targets []*routingtable.SyslogTarget
	for _, rule := range t.rules {
		for _, partition := range rule.Partitions {
			for _, target := range partition.Targets {
				if !seen[target] {
					seen[target] = true
					targets = append(targets, target)
				}
			}
		}
	}
	return targets
}

// Verify that Table implements the Matcher interface at compile time
var _ routingtable.Matcher = (*Table)(nil)
