// Package commands implements the causp-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/henriqueedu2001/causp-lock-server/pkg/log"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

// timestampLayout is used for every event timestamp the commands print.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [issue:id] DIRECTION Label
	ts := event.Timestamp.UTC().Format(timestampLayout)
	issueID := shortenID(event.IssueID)

	label := "Unknown"
	switch {
	case event.Payload != nil:
		label = event.Payload.Operation.Name()
	case event.Error != nil:
		label = "Error"
	}

	fmt.Fprintf(w, "%s [issue:%s] %-6s %s\n", ts, issueID, event.Direction.String(), label)
	if event.Source != "" {
		fmt.Fprintf(w, "  Source: %s\n", event.Source)
	}

	switch {
	case event.Payload != nil:
		formatPayloadDetails(w, event.Payload)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenID returns the first 8 characters of an issue ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatPayloadDetails writes payload-specific details.
func formatPayloadDetails(w io.Writer, p *log.PayloadEvent) {
	fmt.Fprintf(w, "  Type: %s  Role: %s  Size: %d bytes", p.MessageType, p.Role, p.Size)
	if !p.Signed {
		fmt.Fprint(w, " (unsigned)")
	}
	fmt.Fprintln(w)

	if p.UserID != nil {
		fmt.Fprintf(w, "  User: %d\n", *p.UserID)
	}
	if p.RecordID != nil {
		fmt.Fprintf(w, "  Record: %d\n", *p.RecordID)
	}
	if p.ExpiresAt != nil {
		fmt.Fprintf(w, "  Expires: %s\n", p.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if len(p.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s\n", hex.EncodeToString(p.Data))
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	if err.Operation != nil {
		fmt.Fprintf(w, "  Operation: %s\n", err.Operation.Name())
	}
	fmt.Fprintf(w, "  Kind: %s\n", err.Kind)
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "issued":
		return log.DirectionIssued, nil
	case "opened":
		return log.DirectionOpened, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be issued or opened)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "payload":
		return log.CategoryPayload, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be payload or error)", s)
	}
}

// ParseOperationFlag parses an operation name from command-line flag.
func ParseOperationFlag(s string) (wire.Operation, error) {
	return wire.ParseOperation(s)
}

// RunView executes the view command.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
