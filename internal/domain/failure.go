package domain

import (
	"errors"
	"strings"
)

// FailureKind classifies why a probe did not come back UP.
type FailureKind int

const (
	KindUnknown FailureKind = iota
	KindTimeout
	KindConnect
	KindSubscribe
	KindProtocol
	KindMalformedPayload
	KindContentMismatch
	KindUnsupportedCheckType
)

func (k FailureKind) String() string {
	switch k {
	case KindTimeout:
		return "Timeout, message not received"
	case KindConnect:
		return "Connection error"
	case KindSubscribe:
		return "Cannot subscribe topic"
	case KindProtocol:
		return "Protocol error"
	case KindMalformedPayload:
		return "Malformed payload"
	case KindContentMismatch:
		return "Message mismatch"
	case KindUnsupportedCheckType:
		return "Unknown MQTT check type"
	default:
		return "Probe failed"
	}
}

// Label is the short form used for metrics and logs.
func (k FailureKind) Label() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnect:
		return "connect_error"
	case KindSubscribe:
		return "subscribe_error"
	case KindProtocol:
		return "protocol_error"
	case KindMalformedPayload:
		return "malformed_payload"
	case KindContentMismatch:
		return "content_mismatch"
	case KindUnsupportedCheckType:
		return "unsupported_check_type"
	default:
		return "unknown"
	}
}

// Failure is a probe-scoped error. Its text is what ends up in Heartbeat.Msg,
// so it carries the topic and whatever content explains the verdict.
type Failure struct {
	Kind   FailureKind
	Topic  string
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Kind.String())
	if f.Topic != "" {
		b.WriteString(" - Topic: ")
		b.WriteString(f.Topic)
	}
	if f.Detail != "" {
		b.WriteString("; ")
		b.WriteString(f.Detail)
	}
	if f.Err != nil {
		b.WriteString("; ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf returns the kind of the first *Failure in err's chain.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}
