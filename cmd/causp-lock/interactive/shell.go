// Package interactive provides the interactive shell of causp-lock.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/henriqueedu2001/causp-lock-server/cmd/causp-lock/commands"
	"github.com/henriqueedu2001/causp-lock-server/pkg/field"
	"github.com/henriqueedu2001/causp-lock-server/pkg/issuer"
	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/log"
	"github.com/henriqueedu2001/causp-lock-server/pkg/payload"
	"github.com/henriqueedu2001/causp-lock-server/pkg/qrcode"
)

// Shell issues and inspects payloads against an in-memory keyring. Key
// changes are written back only on "save".
type Shell struct {
	keyringPath string
	keyring     *keys.Keyring
	issuer      *issuer.Issuer
	last        *payload.Payload
	dirty       bool
	out         io.Writer
	rl          *readline.Instance
}

// Config configures a Shell.
type Config struct {
	KeyringPath string
	Keyring     *keys.Keyring
	Logger      log.Logger
}

// New creates a shell over cfg.Keyring without a terminal attached.
func New(cfg Config, out io.Writer) (*Shell, error) {
	iss, err := issuer.New(issuer.Config{Keys: cfg.Keyring, Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}
	return &Shell{
		keyringPath: cfg.KeyringPath,
		keyring:     cfg.Keyring,
		issuer:      iss,
		out:         out,
	}, nil
}

// Attach creates the readline instance used by Run.
func (s *Shell) Attach() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lock> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	s.rl = rl
	s.out = rl.Stdout()
	return nil
}

// Stdout returns a writer that properly coordinates with the readline input.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			s.exit()
			return
		}

		if quit := s.Exec(ctx, line); quit {
			return
		}
	}
}

// Exec runs one command line. It returns true when the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "keys", "k":
		s.cmdKeys()

	case "issue", "i":
		s.cmdIssue(ctx, args)

	case "verify", "v":
		s.cmdVerify(ctx, args)

	case "decode", "d":
		s.cmdDecode(args)

	case "qr":
		s.cmdQR(args)

	case "apply":
		s.cmdApply(ctx, args)

	case "save":
		s.cmdSave()

	case "quit", "exit", "q":
		s.exit()
		return true

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Lock Payload Commands:
  Issuing:
    issue <op> [args]  - Issue a payload, e.g. "issue check_in 42", "issue sync",
                         "issue set_access_key random", "issue blink 3"
    qr <file.png>      - Save the last issued payload as a QR image
    qr                 - Print the last issued payload as a terminal QR code

  Inspection:
    verify <hex>       - Authenticate a payload against the keyring
    decode <hex>       - Show the fields of a payload without checking its tag
    keys               - List the roles held in the keyring

  Key Management:
    apply [hex]        - Install the key carried by a rotation payload
                         (the last issued payload if none is given)
    save               - Write keyring changes to disk

  Other:
    help               - Show this help
    quit               - Exit`)
}

func (s *Shell) cmdKeys() {
	roles := s.keyring.Roles()
	if len(roles) == 0 {
		fmt.Fprintln(s.out, "Keyring is empty")
		return
	}
	for _, role := range roles {
		k, _ := s.keyring.Key(role)
		// Only a prefix is shown; the full key never needs to be on screen.
		fmt.Fprintf(s.out, "  %-7s %s ...\n", role.String()+":", k.Hex()[:11])
	}
}

func (s *Shell) cmdIssue(ctx context.Context, args []string) {
	opts, err := commands.ParseIssueArgs(args)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	req, err := commands.BuildRequest(opts)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	res, err := s.issuer.Issue(ctx, issuer.Request{Request: req, Source: "shell"})
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.last = res.Payload
	if err := commands.PrintIssued(s.out, res); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

func (s *Shell) cmdVerify(ctx context.Context, args []string) {
	raw, ok := s.payloadArg(args)
	if !ok {
		return
	}
	d, err := s.issuer.Open(ctx, raw, "shell")
	if err != nil {
		fmt.Fprintf(s.out, "REJECTED: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "OK")
	commands.Describe(s.out, d)
}

func (s *Shell) cmdDecode(args []string) {
	raw, ok := s.payloadArg(args)
	if !ok {
		return
	}
	d, err := payload.Parse(raw)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	commands.Describe(s.out, d)
}

func (s *Shell) cmdQR(args []string) {
	if s.last == nil {
		fmt.Fprintln(s.out, "No payload issued yet")
		return
	}
	code, err := qrcode.New(s.last, qrcode.Options{})
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(s.out, code.Terminal(false))
		return
	}
	if err := code.Save(args[0]); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Saved %s\n", args[0])
}

func (s *Shell) cmdApply(ctx context.Context, args []string) {
	var raw []byte
	if len(args) == 0 {
		if s.last == nil {
			fmt.Fprintln(s.out, "Usage: apply <hex>")
			return
		}
		raw = s.last.Bytes()
	} else {
		var ok bool
		if raw, ok = s.payloadArg(args); !ok {
			return
		}
	}

	d, err := s.issuer.Open(ctx, raw, "shell")
	if err != nil {
		fmt.Fprintf(s.out, "REJECTED: %v\n", err)
		return
	}
	role, err := payload.ApplyRotation(s.keyring, d)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.dirty = true
	fmt.Fprintf(s.out, "Installed new %s key (unsaved)\n", role)
}

func (s *Shell) cmdSave() {
	if s.keyringPath == "" {
		fmt.Fprintln(s.out, "No keyring file configured")
		return
	}
	if err := commands.SaveKeyring(s.keyringPath, s.keyring); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.dirty = false
	fmt.Fprintf(s.out, "Saved keyring to %s\n", s.keyringPath)
}

func (s *Shell) exit() {
	if s.dirty {
		fmt.Fprintln(s.out, "Warning: keyring changes were not saved")
	}
	fmt.Fprintln(s.out, "Exiting...")
}

// payloadArg joins args into hex payload bytes.
func (s *Shell) payloadArg(args []string) ([]byte, bool) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: <command> <hex payload>")
		return nil, false
	}
	raw, err := field.ParseHex(strings.Join(args, " "))
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return nil, false
	}
	return raw, true
}

func completer() *readline.PrefixCompleter {
	ops := []readline.PrefixCompleterInterface{
		readline.PcItem("check_in"),
		readline.PcItem("check_out"),
		readline.PcItem("bi_access"),
		readline.PcItem("sync"),
		readline.PcItem("set_master_key", readline.PcItem("random")),
		readline.PcItem("set_config_key", readline.PcItem("random")),
		readline.PcItem("set_sync_key", readline.PcItem("random")),
		readline.PcItem("set_access_key", readline.PcItem("random")),
		readline.PcItem("blink"),
		readline.PcItem("debug_sync"),
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("issue", ops...),
		readline.PcItem("verify"),
		readline.PcItem("decode"),
		readline.PcItem("qr"),
		readline.PcItem("keys"),
		readline.PcItem("apply"),
		readline.PcItem("save"),
		readline.PcItem("quit"),
	)
}
