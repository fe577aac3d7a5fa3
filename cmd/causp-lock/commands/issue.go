package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/henriqueedu2001/causp-lock-server/pkg/issuer"
	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/payload"
	"github.com/henriqueedu2001/causp-lock-server/pkg/qrcode"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

// RandomKey as a new key value asks for a freshly generated key.
const RandomKey = "random"

// IssueOptions configures the issue command.
type IssueOptions struct {
	Keyring   string
	Operation string
	UserID    uint64

	// Time is RFC3339 or POSIX seconds. Empty means now.
	Time string

	// NewKey is hex or RandomKey, for rotations.
	NewKey     string
	BlinkCount uint64

	// Commit installs an issued rotation key into the keyring file.
	Commit bool

	QRPath   string
	Scale    int
	Border   int
	Terminal bool
	EventLog string
}

// ParseTime accepts RFC3339 or decimal POSIX seconds.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (use RFC3339 or POSIX seconds)", s)
	}
	return t, nil
}

// ParseNewKey parses a rotation key argument.
func ParseNewKey(s string) (keys.Material, error) {
	if strings.EqualFold(s, RandomKey) {
		return keys.Generate()
	}
	return keys.FromHex(s)
}

// BuildRequest turns command options into a payload request.
func BuildRequest(opts IssueOptions) (payload.Request, error) {
	op, err := wire.ParseOperation(opts.Operation)
	if err != nil {
		return payload.Request{}, err
	}
	req := payload.Request{Operation: op}

	if opts.UserID > uint64(^uint32(0)) {
		return req, fmt.Errorf("%w: user id %d exceeds 32 bits", wire.ErrRange, opts.UserID)
	}
	req.UserID = uint32(opts.UserID)

	if opts.BlinkCount > uint64(^uint32(0)) {
		return req, fmt.Errorf("%w: blink count %d exceeds 32 bits", wire.ErrRange, opts.BlinkCount)
	}
	req.BlinkCount = uint32(opts.BlinkCount)

	if req.Time, err = ParseTime(opts.Time); err != nil {
		return req, err
	}

	if opts.NewKey != "" {
		k, err := ParseNewKey(opts.NewKey)
		if err != nil {
			return req, err
		}
		req.NewKey = &k
	}
	return req, nil
}

// ParseIssueArgs parses positional shell arguments:
//
//	check_in|check_out|bi_access <user-id> [time]
//	sync [time]
//	set_master_key|set_config_key|set_sync_key|set_access_key <hex|random>
//	blink <count>
//	debug_sync [time]
func ParseIssueArgs(args []string) (IssueOptions, error) {
	if len(args) == 0 {
		return IssueOptions{}, fmt.Errorf("operation required")
	}
	opts := IssueOptions{Operation: args[0]}
	op, err := wire.ParseOperation(args[0])
	if err != nil {
		return opts, err
	}
	rest := args[1:]

	need := func(n int, what string) error {
		if len(rest) < n {
			return fmt.Errorf("%s requires %s", op.Name(), what)
		}
		return nil
	}

	switch op {
	case wire.OpCheckIn, wire.OpCheckOut, wire.OpBiAccess:
		if err := need(1, "a user id"); err != nil {
			return opts, err
		}
		if opts.UserID, err = strconv.ParseUint(rest[0], 10, 32); err != nil {
			return opts, fmt.Errorf("invalid user id %q", rest[0])
		}
		if len(rest) > 1 {
			opts.Time = rest[1]
		}
	case wire.OpNone, wire.OpDebugSync:
		if len(rest) > 0 {
			opts.Time = rest[0]
		}
	case wire.OpSetMasterKey, wire.OpSetConfigKey, wire.OpSetSyncKey, wire.OpSetAccessKey:
		if err := need(1, "a new key (hex or random)"); err != nil {
			return opts, err
		}
		opts.NewKey = strings.Join(rest, "")
	case wire.OpDebugBlink:
		if err := need(1, "a blink count"); err != nil {
			return opts, err
		}
		if opts.BlinkCount, err = strconv.ParseUint(rest[0], 10, 32); err != nil {
			return opts, fmt.Errorf("invalid blink count %q", rest[0])
		}
	}
	return opts, nil
}

// RunIssue issues one payload from the keyring file, prints it and
// optionally renders it as a QR image.
func RunIssue(ctx context.Context, opts IssueOptions, w io.Writer) (*issuer.Result, error) {
	req, err := BuildRequest(opts)
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

	res, err := iss.Issue(ctx, issuer.Request{Request: req, Source: "cli"})
	if err != nil {
		return nil, err
	}

	if err := PrintIssued(w, res); err != nil {
		return nil, err
	}

	if opts.QRPath != "" || opts.Terminal {
		code, err := qrcode.New(res.Payload, qrcode.Options{Scale: opts.Scale, Border: opts.Border})
		if err != nil {
			return nil, err
		}
		if opts.QRPath != "" {
			if err := code.Save(opts.QRPath); err != nil {
				return nil, err
			}
			fmt.Fprintf(w, "QR code:   %s (version %d)\n", opts.QRPath, code.Version())
		}
		if opts.Terminal {
			fmt.Fprintln(w, code.Terminal(false))
		}
	}

	if opts.Commit {
		if err := commitRotation(opts.Keyring, kr, res.Payload); err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "Committed new %s key to %s\n", mustRotatedRole(res.Payload.Operation()), opts.Keyring)
	}

	return res, nil
}

// PrintIssued writes a summary of an issued payload.
func PrintIssued(w io.Writer, res *issuer.Result) error {
	p := res.Payload
	fmt.Fprintln(w, qrcode.HexDump(p))
	fmt.Fprintf(w, "issue id:  %s\n", res.IssueID)
	fmt.Fprintf(w, "signed by: %s\n", payload.RequiredRole(p.Operation()))
	if res.ExpiresAt != nil {
		fmt.Fprintf(w, "expires:   %s\n", res.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if role, ok := payload.RotatedRole(p.Operation()); ok {
		d, err := payload.Parse(p.Bytes())
		if err != nil {
			return err
		}
		k, _ := d.NewKey()
		fmt.Fprintf(w, "new %s key: %s\n", strings.ToLower(role.String()), k)
	}
	return nil
}

// commitRotation installs the key carried by p into kr and saves it.
func commitRotation(path string, kr *keys.Keyring, p *payload.Payload) error {
	d, err := payload.Parse(p.Bytes())
	if err != nil {
		return err
	}
	if _, err := payload.ApplyRotation(kr, d); err != nil {
		return err
	}
	return SaveKeyring(path, kr)
}

func mustRotatedRole(op wire.Operation) keys.Role {
	r, _ := payload.RotatedRole(op)
	return r
}
