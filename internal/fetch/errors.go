package fetch

// Kind classifies pipeline failures.
type Kind string

const (
	KindInvalidURL Kind = "invalid_url"
	KindNetwork    Kind = "network_error"
	KindHTTPStatus Kind = "http_status_error"
	KindConversion Kind = "conversion_error"
)

// Error is a typed pipeline failure. The message is written for end users;
// the protocol adapter forwards it verbatim inside a tool failure result.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Cause }
