// Package delivery renders and sends one phishing email per recipient,
// recording delivery outcome and retry state.
package delivery

import (
	"context"
	"fmt"
)

// Message is one outbound email, fully rendered.
type Message struct {
	To       string
	ToName   string
	From     string
	FromName string
	ReplyTo  string
	Subject  string
	HTMLBody string
}

// Transport sends a single message through one mail provider.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
	Name() string
}

// TransportError wraps a send failure with whether a later retry could
// succeed. Permanent failures (bad address, policy rejection) skip the
// retry budget.
type TransportError struct {
	Permanent bool
	Message   string
}

func (e *TransportError) Error() string {
	return e.Message
}

func temporaryf(format string, args ...interface{}) *TransportError {
	return &TransportError{Permanent: false, Message: fmt.Sprintf(format, args...)}
}
