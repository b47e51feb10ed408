package webapp

import "fmt"

// MissingParameterError reports a mandatory parameter that is absent or empty
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("mandatory column '%s' not specified", e.Name)
}

// InvalidConfigError reports a semantic conflict between parameters
type InvalidConfigError struct {
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}
