package routingtable

// Matcher resolves the syslog targets for an LPAR.
// Implementations must be safe for concurrent use by any number of readers.
type Matcher interface {
	// Match returns the targets of the first partition entry that matches
	// partitionName within the first rule whose complex pattern matches
	// complexName. The second result is false when nothing matched.
	Match(complexName, partitionName string) ([]*SyslogTarget, bool)
}
