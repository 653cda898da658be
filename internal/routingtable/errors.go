package routingtable

import "fmt"

// ConfigError reports a forwarding entry that cannot be compiled.
// Path locates the offending element, e.g. "forwarding[0].cpcs[1].cpc".
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid forwarding config at %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
