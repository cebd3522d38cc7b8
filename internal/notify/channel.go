// Package notify delivers templated notifications over external channels
// with bounded retries.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// ChannelName identifies an outbound channel.
type ChannelName string

const (
	ChannelEmail ChannelName = "email"
	ChannelSMS   ChannelName = "sms"
)

// Recipient describes who a message is addressed to.
type Recipient struct {
	Name  string
	Email string
	Phone string
}

// Attachment is a binary file embedded in a message.
type Attachment struct {
	FileName string
	Content  []byte
}

// Message is a channel-agnostic notification request. Channels use either
// Attachment or AttachmentURL; neither is required.
type Message struct {
	TemplateID    string
	Recipient     Recipient
	Attachment    *Attachment
	AttachmentURL string
	Fields        map[string]string
}

// Channel performs a single delivery attempt.
type Channel interface {
	Name() ChannelName
	Deliver(ctx context.Context, msg Message) error
}

// TransientError is a failure worth retrying: transport errors, non-2xx
// responses and channel status codes embedded in a 200 body.
type TransientError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *TransientError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s (status %d)", e.Reason, e.StatusCode)
	default:
		return e.Reason
	}
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError is a failure no retry can fix, such as a missing template.
type PermanentError struct {
	Reason string
}

func (e *PermanentError) Error() string {
	return e.Reason
}

// IsPermanent reports whether err stops the retry loop.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}
