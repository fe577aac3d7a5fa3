package commands

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/henriqueedu2001/causp-lock-server/pkg/log"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+log.FileExt)

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

func sampleEvents() []log.Event {
	ts := time.Date(2025, 7, 17, 15, 14, 0, 0, time.UTC)
	uid := uint32(2305947582)
	rid := int64(7)
	op := wire.OpNone
	return []log.Event{
		{
			Timestamp: ts,
			IssueID:   "0f3c1a2b-aaaa-bbbb-cccc-123456789abc",
			Direction: log.DirectionIssued,
			Category:  log.CategoryPayload,
			Source:    "cli",
			Payload: &log.PayloadEvent{
				MessageType: wire.MessageTypeAccess,
				Operation:   wire.OpCheckIn,
				Size:        33,
				Signed:      true,
				UserID:      &uid,
				RecordID:    &rid,
				Data:        []byte{0x01, 0x89},
			},
		},
		{
			Timestamp: ts.Add(time.Minute),
			IssueID:   "9e8d7c6b-aaaa-bbbb-cccc-123456789abc",
			Direction: log.DirectionOpened,
			Category:  log.CategoryPayload,
			Source:    "192.0.2.1",
			Payload: &log.PayloadEvent{
				MessageType: wire.MessageTypeDebug,
				Operation:   wire.OpDebugBlink,
				Size:        5,
			},
		},
		{
			Timestamp: ts.Add(2 * time.Minute),
			IssueID:   "11111111-aaaa-bbbb-cccc-123456789abc",
			Direction: log.DirectionIssued,
			Category:  log.CategoryError,
			Source:    "cli",
			Error: &log.ErrorEventData{
				Operation: &op,
				Kind:      log.ErrorKindMissingKey,
				Message:   "no key for role SYNC",
			},
		},
	}
}

func TestFormatPayloadEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[0])
	output := buf.String()

	for _, want := range []string{
		"2025-07-17T15:14:00.000000Z",
		"[issue:0f3c1a2b]",
		"ISSUED",
		"CHECK_IN",
		"Source: cli",
		"User: 2305947582",
		"Record: 7",
		"Data: 0189",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if strings.Contains(output, "unsigned") {
		t.Errorf("signed payload reported as unsigned: %s", output)
	}
}

func TestFormatUnsignedPayload(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[1])
	output := buf.String()

	if !strings.Contains(output, "OPENED") || !strings.Contains(output, "DEBUG_BLINK") {
		t.Errorf("unexpected header: %s", output)
	}
	if !strings.Contains(output, "(unsigned)") {
		t.Errorf("expected unsigned marker, got: %s", output)
	}
}

func TestFormatErrorEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[2])
	output := buf.String()

	for _, want := range []string{"Error", "Operation: SYNC", "Kind: MISSING_KEY", "Message: no key for role SYNC"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if d, err := ParseDirectionFlag("Opened"); err != nil || d != log.DirectionOpened {
		t.Errorf("ParseDirectionFlag(Opened) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("in"); err == nil {
		t.Error("expected error for unknown direction")
	}
	if c, err := ParseCategoryFlag("ERROR"); err != nil || c != log.CategoryError {
		t.Errorf("ParseCategoryFlag(ERROR) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("state"); err == nil {
		t.Error("expected error for unknown category")
	}
	if op, err := ParseOperationFlag("set_time"); err != nil || op != wire.OpNone {
		t.Errorf("ParseOperationFlag(set_time) = %v, %v", op, err)
	}
}

func TestRunViewWithFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	filter, err := FilterOptions{Direction: "issued"}.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var buf bytes.Buffer
	if err := RunView(path, filter, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "CHECK_IN") {
		t.Error("expected CHECK_IN event")
	}
	if strings.Contains(output, "DEBUG_BLINK") {
		t.Error("opened event should be filtered out")
	}
	if !strings.Contains(output, "MISSING_KEY") {
		t.Error("expected issued error event")
	}
}

func TestRunViewMissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := RunView(filepath.Join(t.TempDir(), "nope.clog"), log.Filter{}, &buf); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFilterOptionsBuildErrors(t *testing.T) {
	tests := []FilterOptions{
		{TimeStart: "yesterday"},
		{TimeEnd: "2025-07-17"},
		{Direction: "out"},
		{Category: "message"},
		{Operation: "OPEN"},
	}
	for _, opts := range tests {
		if _, err := opts.Build(); err == nil {
			t.Errorf("expected error for %+v", opts)
		}
	}
}

func TestRunFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered"+log.FileExt)

	count, err := RunFilter(path, out, FilterOptions{
		Operation: "CHECK_IN",
		TimeEnd:   "2025-07-17T15:20:00Z",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event, got %d", count)
	}

	reader, err := log.NewReader(out)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()
	events, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 1 || events[0].Payload == nil || events[0].Payload.Operation != wire.OpCheckIn {
		t.Errorf("unexpected filtered events: %+v", events)
	}
}

func TestExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "events.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines+1, err)
		}
		lines++
	}
	if lines != 3 {
		t.Errorf("expected 3 lines, got %d", lines)
	}
}

func TestExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "events.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[1][5] != "CHECK_IN" || rows[1][6] != "2305947582" || rows[1][7] != "7" {
		t.Errorf("unexpected payload row: %v", rows[1])
	}
	if rows[3][5] != "SYNC" || rows[3][8] != "no key for role SYNC" {
		t.Errorf("unexpected error row: %v", rows[3])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	if err := RunExport(path, "xml", filepath.Join(t.TempDir(), "x")); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRunStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Total Events: 3",
		"Issued Payloads:",
		"CHECK_IN:",
		"Opened Payloads:",
		"DEBUG_BLINK:",
		"Distinct Users: 1",
		"cli:",
		"Errors: 1",
		"MISSING_KEY:",
		"Duration:   2m0s",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestRunStatsEmpty(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
