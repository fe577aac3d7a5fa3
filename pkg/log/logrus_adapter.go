package log

import (
	"github.com/sirupsen/logrus"
)

// LogrusAdapter writes events to a logrus logger. Successful events are
// logged at Debug level, failures at Warn.
type LogrusAdapter struct {
	logger logrus.FieldLogger
}

// NewLogrusAdapter creates an adapter writing to logger.
func NewLogrusAdapter(logger logrus.FieldLogger) *LogrusAdapter {
	return &LogrusAdapter{logger: logger}
}

// Log writes the event as a structured log line.
func (a *LogrusAdapter) Log(event Event) {
	fields := logrus.Fields{
		"issue_id":  event.IssueID,
		"direction": event.Direction.String(),
		"category":  event.Category.String(),
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}

	switch {
	case event.Payload != nil:
		p := event.Payload
		fields["operation"] = p.Operation.Name()
		fields["msg_type"] = p.MessageType.String()
		fields["role"] = p.Role.String()
		fields["size"] = p.Size
		fields["signed"] = p.Signed
		if p.UserID != nil {
			fields["user_id"] = *p.UserID
		}
		if p.RecordID != nil {
			fields["record_id"] = *p.RecordID
		}
		if p.ExpiresAt != nil {
			fields["expires_at"] = p.ExpiresAt.UTC()
		}
		a.logger.WithFields(fields).Debug("payload")

	case event.Error != nil:
		if event.Error.Operation != nil {
			fields["operation"] = event.Error.Operation.Name()
		}
		fields["error_kind"] = event.Error.Kind.String()
		fields["error"] = event.Error.Message
		a.logger.WithFields(fields).Warn("payload rejected")

	default:
		a.logger.WithFields(fields).Debug("payload event")
	}
}

// Compile-time interface satisfaction check.
var _ Logger = (*LogrusAdapter)(nil)
