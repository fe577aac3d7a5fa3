// Command causp-lock issues and inspects signed lock payloads from the
// command line.
//
// Usage:
//
//	causp-lock <command> [flags] [args]
//
// Commands:
//
//	keygen   Generate role keys into a keyring file
//	issue    Build a payload and print it, optionally as a QR code
//	verify   Authenticate a payload against the keyring
//	decode   Show the fields of a payload without checking its tag
//	shell    Start the interactive shell
//
// Examples:
//
//	# Create a keyring with all four roles
//	causp-lock keygen -keyring keyring.yaml
//
//	# Issue a check-in for user 42 and save the QR code
//	causp-lock issue -user 42 -qr checkin.png check_in
//
//	# Rotate the sync key and record the new key locally
//	causp-lock issue -new-key random -commit set_sync_key
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/henriqueedu2001/causp-lock-server/cmd/causp-lock/commands"
	"github.com/henriqueedu2001/causp-lock-server/cmd/causp-lock/interactive"
	"github.com/henriqueedu2001/causp-lock-server/pkg/log"
	"github.com/henriqueedu2001/causp-lock-server/pkg/qrcode"
)

const usage = `causp-lock - Lock Payload Tool

Usage:
  causp-lock <command> [flags] [args]

Commands:
  keygen   Generate role keys into a keyring file
  issue    Build a payload and print it, optionally as a QR code
  verify   Authenticate a payload against the keyring
  decode   Show the fields of a payload without checking its tag
  shell    Start the interactive shell

Use "causp-lock <command> -help" for more information about a command.
`

var logger = logrus.New()

func main() {
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "keygen":
		runKeygen(args)
	case "issue":
		runIssue(ctx, args)
	case "verify":
		runVerify(ctx, args)
	case "decode":
		runDecode(args)
	case "shell":
		runShell(ctx, args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	logger.WithError(err).Error("command failed")
	os.Exit(1)
}

func newFlagSet(name, synopsis, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `causp-lock %s - %s

Usage:
  causp-lock %s [flags] %s

Flags:
`, name, synopsis, name, args)
		fs.PrintDefaults()
	}
	return fs
}

func runKeygen(args []string) {
	fs := newFlagSet("keygen", "Generate role keys into a keyring file", "")
	keyring := fs.String("keyring", commands.DefaultKeyringFile, "Keyring file")
	roles := fs.String("roles", "", "Comma-separated roles to generate (default: all)")
	force := fs.Bool("force", false, "Replace keys that already exist")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	parsed, err := commands.ParseRoles(*roles)
	if err != nil {
		fail(err)
	}
	opts := commands.KeygenOptions{Keyring: *keyring, Roles: parsed, Force: *force}
	if err := commands.RunKeygen(opts, os.Stdout); err != nil {
		fail(err)
	}
}

func runIssue(ctx context.Context, args []string) {
	fs := newFlagSet("issue", "Build a payload and print it", "<operation>")
	opts := commands.IssueOptions{}
	fs.StringVar(&opts.Keyring, "keyring", commands.DefaultKeyringFile, "Keyring file")
	fs.Uint64Var(&opts.UserID, "user", 0, "User ID for access payloads")
	fs.StringVar(&opts.Time, "time", "", "Payload time, RFC3339 or POSIX seconds (default: now)")
	fs.StringVar(&opts.NewKey, "new-key", "", `New key for rotations, hex or "random"`)
	fs.Uint64Var(&opts.BlinkCount, "count", 0, "Blink count for DEBUG_BLINK")
	fs.BoolVar(&opts.Commit, "commit", false, "Install an issued rotation key into the keyring")
	fs.StringVar(&opts.QRPath, "qr", "", "Write the QR code image to this PNG file")
	fs.IntVar(&opts.Scale, "scale", qrcode.DefaultScale, "QR image pixels per module")
	fs.IntVar(&opts.Border, "border", qrcode.DefaultBorder, "QR quiet zone in modules")
	fs.BoolVar(&opts.Terminal, "terminal", false, "Print the QR code to the terminal")
	fs.StringVar(&opts.EventLog, "event-log", "", "Append events to this log file (*"+log.FileExt+")")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: operation required")
		fs.Usage()
		os.Exit(1)
	}
	opts.Operation = fs.Arg(0)

	if _, err := commands.RunIssue(ctx, opts, os.Stdout); err != nil {
		fail(err)
	}
}

func runVerify(ctx context.Context, args []string) {
	fs := newFlagSet("verify", "Authenticate a payload against the keyring", "<hex>")
	opts := commands.VerifyOptions{}
	fs.StringVar(&opts.Keyring, "keyring", commands.DefaultKeyringFile, "Keyring file")
	fs.BoolVar(&opts.Apply, "apply", false, "Install the key carried by a rotation payload")
	fs.StringVar(&opts.EventLog, "event-log", "", "Append events to this log file")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: payload hex required")
		fs.Usage()
		os.Exit(1)
	}
	opts.Payload = strings.Join(fs.Args(), " ")

	if _, err := commands.RunVerify(ctx, opts, os.Stdout); err != nil {
		fail(err)
	}
}

func runDecode(args []string) {
	fs := newFlagSet("decode", "Show the fields of a payload", "<hex>")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: payload hex required")
		fs.Usage()
		os.Exit(1)
	}

	if _, err := commands.RunDecode(strings.Join(fs.Args(), " "), os.Stdout); err != nil {
		fail(err)
	}
}

func runShell(ctx context.Context, args []string) {
	fs := newFlagSet("shell", "Start the interactive shell", "")
	keyring := fs.String("keyring", commands.DefaultKeyringFile, "Keyring file")
	verbose := fs.Bool("v", false, "Log payload events to stderr")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	kr, err := commands.LoadKeyring(*keyring)
	if err != nil {
		fail(err)
	}

	var events log.Logger
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		events = log.NewLogrusAdapter(logger)
	}

	sh, err := interactive.New(interactive.Config{
		KeyringPath: *keyring,
		Keyring:     kr,
		Logger:      events,
	}, os.Stdout)
	if err != nil {
		fail(err)
	}
	if err := sh.Attach(); err != nil {
		fail(err)
	}
	logger.SetOutput(sh.Stdout())
	sh.Run(ctx)
}
