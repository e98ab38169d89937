package errcode

// Code is a stable error identifier returned across the driver API.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Lifecycle-state violations. Reported synchronously; state unchanged.
	AlreadyOpen Code = "already_open"
	NotOpen     Code = "not_open"
	Busy        Code = "busy"

	// Invalid input. Rejected outright.
	NullConfig      Code = "null_config"
	InvalidPin      Code = "invalid_pin"
	InvalidLength   Code = "invalid_length"
	UnknownInstance Code = "unknown_instance"

	// Resource exhaustion at open time. Instance stays Disabled.
	ResourceUnavailable Code = "resource_unavailable"

	Timeout Code = "timeout"
	Error   Code = "error" // generic fallback
)

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	return Error
}
