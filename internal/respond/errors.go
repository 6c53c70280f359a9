package respond

import "errors"

// ConfigError marks a caller defect: the request configuration is
// impossible to serve. It is never retried and never converted into an
// INVALID response. The asymmetry between configuration errors (error
// channel) and content errors (status data) is load bearing for the
// failover logic upstream.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid request configuration: " + e.Reason
}

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
