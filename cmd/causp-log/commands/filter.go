package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/henriqueedu2001/causp-lock-server/pkg/log"
)

// FilterOptions specifies filtering criteria as given on the command line.
type FilterOptions struct {
	IssueID   string
	TimeStart string
	TimeEnd   string
	Direction string
	Category  string
	Operation string
}

// Build parses the options into a log filter.
func (o FilterOptions) Build() (log.Filter, error) {
	filter := log.Filter{IssueID: o.IssueID}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}

	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	if o.Direction != "" {
		d, err := ParseDirectionFlag(o.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}

	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}

	if o.Operation != "" {
		op, err := ParseOperationFlag(o.Operation)
		if err != nil {
			return filter, err
		}
		filter.Operation = &op
	}

	return filter, nil
}

// RunFilter filters the log file and writes matching events to output.
// It returns the number of events written.
func RunFilter(path, output string, opts FilterOptions) (int, error) {
	filter, err := opts.Build()
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	// Create file logger to write filtered events
	logger, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Close()
			return count, fmt.Errorf("failed to read event: %w", err)
		}

		logger.Log(event)
		count++
	}

	if err := logger.Close(); err != nil {
		return count, fmt.Errorf("failed to close output: %w", err)
	}
	if dropped := logger.Dropped(); dropped > 0 {
		return count - dropped, fmt.Errorf("failed to write %d events", dropped)
	}
	return count, nil
}
