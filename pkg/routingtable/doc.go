// Package routingtable provides the public types for LPAR-to-syslog routing.
//
// This package defines the core abstractions of the forwarder's routing component:
//   - SyslogTarget: An immutable syslog destination (host, port, transport, facility)
//   - Transport: Stream (TCP) or datagram (UDP) delivery
//   - Matcher: Interface answering "which targets apply to complex X, LPAR Y?"
//
// The compiled implementation lives in internal/routingtable. Lookup follows a
// first-match, no-fallthrough precedence:
//   - Rules are scanned in declaration order
//   - The first rule whose complex pattern matches is the only rule consulted
//   - Within that rule, the first matching partition pattern wins
//   - If no partition of that rule matches, the result is "no match", even if a
//     later rule would have matched both names
//
// Example usage:
//
//	table, err := routingtable.Compile(cfg.Forwarding)
//	if err != nil {
//		return err
//	}
//
//	targets, ok := table.Match("MYCPC", "PART1")
//	if !ok {
//		return nil // LPAR is not forwarded
//	}
//	for _, target := range targets {
//		fmt.Println(target)
//	}
//
// Patterns are anchored regular expressions: "CPC1" matches "CPC1" only, never
// "CPC10" or "XCPC1".
package routingtable
