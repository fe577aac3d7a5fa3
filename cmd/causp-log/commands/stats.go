package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/henriqueedu2001/causp-lock-server/pkg/log"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Issued            map[wire.Operation]int
	Opened            map[wire.Operation]int
	ErrorsByKind      map[log.ErrorKind]int
	Users             map[uint32]int
	Sources           map[string]int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// Collect reads every event from r into a Stats.
func Collect(r *log.Reader) (*Stats, error) {
	stats := &Stats{
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Issued:            make(map[wire.Operation]int),
		Opened:            make(map[wire.Operation]int),
		ErrorsByKind:      make(map[log.ErrorKind]int),
		Users:             make(map[uint32]int),
		Sources:           make(map[string]int),
	}

	for {
		event, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++
		if event.Source != "" {
			stats.Sources[event.Source]++
		}

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		switch {
		case event.Payload != nil:
			ops := stats.Issued
			if event.Direction == log.DirectionOpened {
				ops = stats.Opened
			}
			ops[event.Payload.Operation]++
			if event.Payload.UserID != nil {
				stats.Users[*event.Payload.UserID]++
			}
		case event.Error != nil:
			stats.ErrorsByKind[event.Error.Kind]++
		}
	}

	return stats, nil
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats, err := Collect(reader)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== CAUSP Lock Event Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIssued, log.DirectionOpened} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	printOperations(w, "Issued Payloads:", stats.Issued)
	printOperations(w, "Opened Payloads:", stats.Opened)

	if len(stats.Users) > 0 {
		fmt.Fprintf(w, "Distinct Users: %d\n", len(stats.Users))
		fmt.Fprintln(w)
	}

	if len(stats.Sources) > 0 {
		sources := make([]string, 0, len(stats.Sources))
		for s := range stats.Sources {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		fmt.Fprintln(w, "Sources:")
		for _, s := range sources {
			fmt.Fprintf(w, "  %-16s %d\n", s+":", stats.Sources[s])
		}
		fmt.Fprintln(w)
	}

	if errs := stats.EventsByCategory[log.CategoryError]; errs > 0 {
		fmt.Fprintf(w, "Errors: %d\n", errs)
		kinds := make([]log.ErrorKind, 0, len(stats.ErrorsByKind))
		for k := range stats.ErrorsByKind {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, k := range kinds {
			fmt.Fprintf(w, "  %-16s %d\n", k.String()+":", stats.ErrorsByKind[k])
		}
	}
}

func printOperations(w io.Writer, title string, counts map[wire.Operation]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	for _, op := range wire.Operations {
		if count := counts[op]; count > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", op.Name()+":", count)
		}
	}
	fmt.Fprintln(w)
}
