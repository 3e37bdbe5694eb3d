package dkr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind identifies which of the three failure shapes an Error has.
type ErrorKind int

const (
	// KindServer means the server answered with a non-2xx status.
	KindServer ErrorKind = iota + 1
	// KindNetwork means the request was dispatched but no response arrived.
	KindNetwork
	// KindRequest means the call failed locally before or after the exchange.
	KindRequest
)

// String returns the lowercase name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindRequest:
		return "request"
	default:
		return "unknown"
	}
}

// Error is the closed set of failures returned by Client methods.
// The only implementations are *ServerError, *NetworkError and *RequestError,
// so a type switch over those three is exhaustive.
type Error interface {
	error
	Kind() ErrorKind
	Operation() string
	dkrError()
}

// ServerError reports a response with a non-success HTTP status.
// Payload holds the response body exactly as the server sent it.
type ServerError struct {
	Op         string
	StatusCode int
	Payload    []byte
}

// NetworkError reports a request that never received a response:
// timeouts, refused connections, DNS failures, or an interrupted body.
type NetworkError struct {
	Op      string
	Timeout bool
	Err     error
}

// RequestError reports a local failure such as an invalid base URL,
// a body that cannot be encoded, or a success payload that cannot be decoded.
type RequestError struct {
	Op      string
	Message string
	Err     error
}

func (*ServerError) dkrError()  {}
func (*NetworkError) dkrError() {}
func (*RequestError) dkrError() {}

// Kind implements Error.
func (*ServerError) Kind() ErrorKind { return KindServer }

// Kind implements Error.
func (*NetworkError) Kind() ErrorKind { return KindNetwork }

// Kind implements Error.
func (*RequestError) Kind() ErrorKind { return KindRequest }

// Operation implements Error.
func (e *ServerError) Operation() string { return e.Op }

// Operation implements Error.
func (e *NetworkError) Operation() string { return e.Op }

// Operation implements Error.
func (e *RequestError) Operation() string { return e.Op }

// Error implements the error interface.
func (e *ServerError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Detail())
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Detail())
}

// Detail returns a human-readable message from the payload. FastAPI puts it
// under "detail"; the DKR global handler uses "error". Anything else falls
// back to the raw body, or the status text when the body is empty.
func (e *ServerError) Detail() string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(e.Payload, &fields); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			raw, ok := fields[key]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && s != "" {
				return s
			}
			if !bytes.Equal(raw, []byte("null")) {
				return string(raw)
			}
		}
	}
	if body := strings.TrimSpace(string(e.Payload)); body != "" {
		return body
	}
	return http.StatusText(e.StatusCode)
}

// Decode unmarshals the server payload into v.
func (e *ServerError) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	msg := "network error"
	if e.Timeout {
		msg = "network error: timeout"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *RequestError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying local error.
func (e *RequestError) Unwrap() error { return e.Err }

// AsError extracts the Error from err's chain.
func AsError(err error) (Error, bool) {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr, true
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr, true
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or 0 if err is not an Error.
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind()
	}
	return 0
}

// IsNotFound reports whether err indicates a 404 response.
func IsNotFound(err error) bool {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsTimeout reports whether err is a NetworkError caused by a timeout.
func IsTimeout(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Timeout
	}
	return false
}
