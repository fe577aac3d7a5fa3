package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/henriqueedu2001/causp-lock-server/pkg/field"
	"github.com/henriqueedu2001/causp-lock-server/pkg/issuer"
	"github.com/henriqueedu2001/causp-lock-server/pkg/payload"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

// VerifyOptions configures the verify command.
type VerifyOptions struct {
	Keyring string

	// Payload is hex, with or without separating whitespace.
	Payload string

	// Apply installs a verified rotation into the keyring file, the way
	// the lock does after scanning it.
	Apply bool

	EventLog string
}

// RunVerify authenticates a payload against the keyring file.
func RunVerify(ctx context.Context, opts VerifyOptions, w io.Writer) (*payload.Decoded, error) {
	raw, err := field.ParseHex(opts.Payload)
	if err != nil {
		return nil, err
	}

	kr, err := LoadKeyring(opts.Keyring)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := openEventLog(opts.EventLog)
	if err != nil {
		return nil, err
	}
	defer closeLog()

	iss, err := issuer.New(issuer.Config{Keys: kr, Logger: logger})
	if err != nil {
		return nil, err
	}

	d, err := iss.Open(ctx, raw, "cli")
	if err != nil {
		return nil, err
	}

	if d.Signed() {
		fmt.Fprintf(w, "OK: valid %s signature\n", payload.RequiredRole(d.Operation()))
	} else {
		fmt.Fprintln(w, "OK: unsigned DEBUG payload")
	}
	Describe(w, d)

	if opts.Apply {
		role, err := payload.ApplyRotation(kr, d)
		if err != nil {
			return nil, err
		}
		if err := SaveKeyring(opts.Keyring, kr); err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "Installed new %s key into %s\n", role, opts.Keyring)
	}
	return d, nil
}

// RunDecode parses a payload without checking its tag.
func RunDecode(hexPayload string, w io.Writer) (*payload.Decoded, error) {
	raw, err := field.ParseHex(hexPayload)
	if err != nil {
		return nil, err
	}
	d, err := payload.Parse(raw)
	if err != nil {
		return nil, err
	}
	Describe(w, d)
	return d, nil
}

// Describe writes the fields of a decoded payload. Rotation keys are shown
// because the operator holding the payload already holds the key.
func Describe(w io.Writer, d *payload.Decoded) {
	fmt.Fprintf(w, "operation: %s (%s)\n", d.Operation().Name(), d.MessageType())
	fmt.Fprintf(w, "header:    %02x\n", d.Header())
	fmt.Fprintf(w, "body:      %s\n", field.FormatHex(d.Body()))
	if d.Signed() {
		fmt.Fprintf(w, "tag:       %s\n", field.FormatHex(d.Tag()))
	}

	switch d.MessageType() {
	case wire.MessageTypeAccess:
		fmt.Fprintf(w, "user id:   %d\n", d.Fields.UserID)
		fmt.Fprintf(w, "time:      %s\n", formatTime(d.Fields.Time))
	case wire.MessageTypeSync:
		fmt.Fprintf(w, "sync time: %s\n", formatTime(d.Fields.Time))
	case wire.MessageTypeConfig:
		if role, ok := payload.RotatedRole(d.Operation()); ok {
			k, _ := d.NewKey()
			fmt.Fprintf(w, "new %s key: %s\n", strings.ToLower(role.String()), k)
		}
	case wire.MessageTypeDebug:
		switch v := d.Fields.Data.(type) {
		case wire.Integer:
			fmt.Fprintf(w, "count:     %d\n", uint32(v))
		case wire.Timestamp:
			fmt.Fprintf(w, "time:      %s\n", formatTime(time.Time(v)))
		case wire.HexText:
			fmt.Fprintf(w, "data:      %s\n", string(v))
		}
	}
}

func formatTime(t time.Time) string {
	return fmt.Sprintf("%s (%d)", t.UTC().Format(time.RFC3339), t.Unix())
}
