package routingtable

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/config"
	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/routingtable"
)

// Compile turns the forwarding section of the config into a Table.
//
// Every cpcs item becomes one Rule. All partitions of all cpcs items of one
// forwarding entry share the same target slice. Patterns are anchored so
// that "CPC1" never matches "CPC10". Compile performs no I/O.
func Compile(entries []config.Forwarding) (*Table, error) {
	if len(entries) == 0 {
		return nil, &ConfigError{Path: "forwarding", Err: errors.New("at least one entry is required")}
	}

	table := &Table{}
	for i, entry := range entries {
		path := fmt.Sprintf("forwarding[%d]", i)

		targets, err := compileTargets(path, entry.Syslogs)
		if err != nil {
			return nil, err
		}

		if len(entry.CPCs) == 0 {
			return nil, &ConfigError{Path: path + ".cpcs", Err: errors.New("at least one cpc is required")}
		}

		for j, cpc := range entry.CPCs {
			rule, err := compileRule(fmt.Sprintf("%s.cpcs[%d]", path, j), cpc, targets)
			if err != nil {
				return nil, err
			}
			table.rules = append(table.rules, rule)
		}
	}
	return table, nil
}

func compileRule(path string, cpc config.CPC, targets []*routingtable.SyslogTarget) (Rule, error) {
	complexPattern, err := compilePattern(path+".cpc", cpc.CPC)
	if err != nil {
		return Rule{}, err
	}
	if len(cpc.Partitions) == 0 {
		return Rule{}, &ConfigError{Path: path + ".partitions", Err: errors.New("at least one partition is required")}
	}

	rule := Rule{Complex: complexPattern}
	for k, partition := range cpc.Partitions {
		pattern, err := compilePattern(fmt.Sprintf("%s.partitions[%d].partition", path, k), partition.Partition)
		if err != nil {
			return Rule{}, err
		}
		rule.Partitions = append(rule.Partitions, PartitionRule{Pattern: pattern, Targets: targets})
	}
	return rule, nil
}

func compileTargets(path string, syslogs []config.Syslog) ([]*routingtable.SyslogTarget, error) {
	if len(syslogs) == 0 {
		return nil, &ConfigError{Path: path + ".syslogs", Err: errors.New("at least one syslog is required")}
	}

	targets := make([]*routingtable.SyslogTarget, 0, len(syslogs))
	for i, s := range syslogs {
		itemPath := fmt.Sprintf("%s.syslogs[%d]", path, i)

		host := s.Address()
		if host == "" {
			return nil, &ConfigError{Path: itemPath + ".host", Err: errors.New("host is required")}
		}
		target := routingtable.NewSyslogTarget(host)

		if s.Port != 0 {
			if s.Port < 1 || s.Port > 65535 {
				return nil, &ConfigError{Path: itemPath + ".port", Err: fmt.Errorf("port %d out of range", s.Port)}
			}
			target.Port = s.Port
		}

		transport, err := routingtable.ParseTransport(s.PortType)
		if err != nil {
			return nil, &ConfigError{Path: itemPath + ".port_type", Err: err}
		}
		target.Transport = transport

		if s.Facility != "" {
			if !routingtable.ValidFacility(s.Facility) {
				return nil, &ConfigError{Path: itemPath + ".facility", Err: fmt.Errorf("unknown facility %q", s.Facility)}
			}
			target.Facility = s.Facility
		}

		format, err := routingtable.ParseFormat(s.Format)
		if err != nil {
			return nil, &ConfigError{Path: itemPath + ".format", Err: err}
		}
		target.Format = format

		targets = append(targets, target)
	}
	return targets, nil
}

// compilePattern anchors pattern as a whole. The group keeps alternations
// such as "A|B" from being anchored on one side only.
func compilePattern(path, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, &ConfigError{Path: path, Err: errors.New("pattern is required")}
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return re, nil
}
