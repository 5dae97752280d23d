package trainer

import "fmt"

// ConfigurationError reports a RunConfig field that failed validation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("trainer: invalid %s: %s", e.Field, e.Reason)
}

// SeedTypeError reports a seed that is not an integer.
type SeedTypeError struct {
	Raw string
}

func (e *SeedTypeError) Error() string {
	return fmt.Sprintf("trainer: seed %q is not an integer", e.Raw)
}
