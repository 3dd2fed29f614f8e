package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// Kind classifies a failure. Every store operation that fails returns an
// *Error carrying one of these kinds, so callers can branch with errors.Is
// against the sentinels below.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindUserNotFound
	KindTransportTimeout
	KindTransportUnreachable
	KindTransportOther
	KindRemoteRejected
	KindDecodeFailure
	KindUnauthorized
	KindValidation
	KindNotFound
)

var (
	// ErrUserNotFound means no identity is available. Surfaced as
	// "please log in", never treated as an empty result.
	ErrUserNotFound = errors.New("user not found")

	// Transport errors.
	ErrTransportTimeout     = errors.New("request timed out")
	ErrTransportUnreachable = errors.New("server unreachable")
	ErrTransport            = errors.New("transport error")

	// ErrRemoteRejected is a data-layer error returned by the backend,
	// e.g. a constraint violation.
	ErrRemoteRejected = errors.New("remote rejected request")

	// ErrDecode covers malformed responses and corrupt local cache blobs.
	ErrDecode = errors.New("decode failure")

	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnknown      = errors.New("unknown error")
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindUserNotFound:         "user_not_found",
	KindTransportTimeout:     "transport_timeout",
	KindTransportUnreachable: "transport_unreachable",
	KindTransportOther:       "transport_other",
	KindRemoteRejected:       "remote_rejected",
	KindDecodeFailure:        "decode_failure",
	KindUnauthorized:         "unauthorized",
	KindValidation:           "validation",
	KindNotFound:             "not_found",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) sentinel() error {
	switch k {
	case KindUserNotFound:
		return ErrUserNotFound
	case KindTransportTimeout:
		return ErrTransportTimeout
	case KindTransportUnreachable:
		return ErrTransportUnreachable
	case KindTransportOther:
		return ErrTransport
	case KindRemoteRejected:
		return ErrRemoteRejected
	case KindDecodeFailure:
		return ErrDecode
	case KindUnauthorized:
		return ErrUnauthorized
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	default:
		return ErrUnknown
	}
}

// Error is the typed failure returned at store and transport boundaries.
//
// Op names the operation ("entries.load"), Message carries a human detail
// supplied by the backend (PostgREST "message" field) when there is one.
type Error struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

// E builds an *Error.
func E(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause, so errors.Is works
// for either.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// Detail returns the most specific human-readable text of err.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		if e.Err != nil {
			return Detail(e.Err)
		}
		return e.Kind.sentinel().Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// KindOf reports the kind of err. Errors that are not *Error are classified
// by inspecting transport and decoding causes.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range []Kind{KindUserNotFound, KindTransportTimeout, KindTransportUnreachable,
		KindTransportOther, KindRemoteRejected, KindDecodeFailure, KindUnauthorized,
		KindValidation, KindNotFound} {
		if errors.Is(err, k.sentinel()) {
			return k
		}
	}
	return classifyCause(err)
}

// Classify wraps err into an *Error tagged with op. An existing *Error keeps
// its kind and gains op if it had none.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Op == "" {
			return &Error{Op: op, Kind: e.Kind, Message: e.Message, Err: e.Err}
		}
		return err
	}
	return &Error{Op: op, Kind: KindOf(err), Err: err}
}

func classifyCause(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTransportTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransportTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindTransportUnreachable
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return KindTransportUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return KindTransportUnreachable
		}
		return KindTransportOther
	}
	if netErr != nil || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) {
		return KindTransportOther
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return KindDecodeFailure
	}
	return KindUnknown
}
