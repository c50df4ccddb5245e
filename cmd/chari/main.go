package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/oarkflow/chari"
	"github.com/oarkflow/chari/internal/logger"
	"github.com/oarkflow/chari/obfus"
	"github.com/oarkflow/chari/radix"
	"github.com/oarkflow/chari/token"
)

const version = "1.0.0"

var (
	errUsage            = errors.New("usage")
	errSignatureInvalid = errors.New("signature invalid")
)

type app struct {
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
	cfg    chari.Config
}

type command struct {
	summary string
	run     func(a *app, args []string) error
}

var commands = map[string]command{
	"keygen":  {"generate a packed master key, optionally writing it into a config file", (*app).keygen},
	"derive":  {"derive a purpose key from the master key", (*app).derive},
	"sign":    {"sign params and a challenge for the current window", (*app).sign},
	"verify":  {"verify a signature", (*app).verify},
	"encrypt": {"encrypt a payload into a token", (*app).encrypt},
	"decrypt": {"decrypt a token", (*app).decrypt},
	"radix":   {"convert a number between bases 2..62", (*app).radix},
	"split":   {"split the master key into shares", (*app).split},
	"combine": {"restore the master key from shares", (*app).combine},
	"obfus":   {"turn text into a self-decoding JavaScript expression", (*app).obfus},
}

func main() {
	cfg, cfgErr := chari.LoadConfig()
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithFormat(logger.Format(cfg.LogFormat)),
	)
	if cfgErr != nil {
		log.Error("configuration error", logger.Error(cfgErr))
		os.Exit(2)
	}

	a := &app{stdout: os.Stdout, stderr: os.Stderr, log: log, cfg: cfg}
	start := time.Now()
	err := a.run(os.Args[1:])
	switch {
	case err == nil:
		log.Debug("done", logger.Elapsed(start))
	case errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		os.Exit(2)
	case errors.Is(err, errSignatureInvalid):
		os.Exit(1)
	default:
		log.Error("command failed", logger.Error(err))
		os.Exit(1)
	}
}

func (a *app) run(args []string) error {
	if len(args) == 0 {
		a.usage()
		return errUsage
	}
	name := args[0]
	switch name {
	case "version", "-version", "--version", "-V":
		fmt.Fprintf(a.stdout, "chari v%s\n", version)
		return nil
	case "help", "-h", "-help", "--help":
		a.usage()
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		a.usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	a.log = a.log.With(logger.Component(name))
	return cmd.run(a, args[1:])
}

func (a *app) usage() {
	fmt.Fprintf(a.stderr, "chari v%s - keys, signatures and tokens\n\n", version)
	fmt.Fprintf(a.stderr, "USAGE:\n  chari <command> [flags]\n\nCOMMANDS:\n")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(a.stderr, "  %-8s %s\n", n, commands[n].summary)
	}
	fmt.Fprintf(a.stderr, "\nEXAMPLES:\n")
	fmt.Fprintf(a.stderr, "  chari keygen -f .env -k CHARI_MASTER_KEY\n")
	fmt.Fprintf(a.stderr, "  chari sign --challenge abc --params '{\"user_id\":123}'\n")
	fmt.Fprintf(a.stderr, "  chari encrypt --payload '{\"user_id\":123}' --copy\n")
	fmt.Fprintf(a.stderr, "\nConfiguration is read from CHARI_* environment variables and .env.\n")
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("chari "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// emit prints value on its own line and copies it when asked.
func (a *app) emit(value string, copyIt bool) {
	fmt.Fprintln(a.stdout, value)
	if !copyIt || value == "" {
		return
	}
	if err := clipboard.WriteAll(value); err != nil {
		a.log.Warn("unable to copy to clipboard", logger.Error(err))
		return
	}
	a.log.Info("copied to clipboard", logger.Length("len", len(value)))
}

func (a *app) keygen(args []string) error {
	fs := a.flags("keygen")
	file := fs.String("file", "", "config file to write the key into")
	fs.StringVar(file, "f", "", "config file (shorthand)")
	fileType := fs.String("type", "", "config file type: env, json, yaml (detected from the name by default)")
	fs.StringVar(fileType, "t", "", "config file type (shorthand)")
	key := fs.String("key", "CHARI_MASTER_KEY", "key name to set in the config file")
	fs.StringVar(key, "k", "CHARI_MASTER_KEY", "key name (shorthand)")
	backup := fs.Bool("backup", true, "back up the config file before changing it")
	copyIt := fs.Bool("copy", false, "copy the key to the clipboard")
	if err := fs.Parse(args); err != nil {
		return err
	}

	master, err := token.NewKeyManager().GenerateMasterKey()
	if err != nil {
		return fmt.Errorf("generate master key: %w", err)
	}
	if *file == "" {
		a.emit(master, *copyIt)
		return nil
	}

	ft := strings.ToLower(*fileType)
	if ft == "" {
		if ft, err = detectFileType(*file); err != nil {
			return err
		}
	}
	if *key == "" {
		return fmt.Errorf("%w: --key is required with --file", errUsage)
	}
	if *backup {
		bak, err := createBackup(*file)
		if err != nil {
			a.log.Warn("backup failed", logger.Error(err), logger.Path(*file))
		} else if bak != "" {
			a.log.Info("backup created", logger.Path(bak))
		}
	}
	if err := setInFile(ft, *file, *key, master); err != nil {
		return fmt.Errorf("update %s file: %w", ft, err)
	}
	a.log.Info("master key written", logger.Path(*file), slog.String("key", *key), logger.Length("len", len(master)))
	if *copyIt {
		a.emit(master, true)
	}
	return nil
}

func (a *app) derive(args []string) error {
	fs := a.flags("derive")
	master := fs.String("master", a.cfg.MasterKey, "packed master key (CHARI_MASTER_KEY)")
	info := fs.String("info", a.cfg.SignInfo, "HKDF info string (CHARI_SIGN_INFO)")
	copyIt := fs.Bool("copy", false, "copy the derived key to the clipboard")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *master == "" {
		return chari.ErrMissingMasterKey
	}
	derived, err := token.DeriveKey(*master, *info)
	if err != nil {
		return err
	}
	a.emit(derived, *copyIt)
	return nil
}

type signFlags struct {
	master     *string
	info       *string
	signingKey *string
	challenge  *string
	params     *string
	canonical  *string
}

func (a *app) signFlagSet(name string) (*flag.FlagSet, *signFlags) {
	fs := a.flags(name)
	return fs, &signFlags{
		master:     fs.String("master", a.cfg.MasterKey, "packed master key (CHARI_MASTER_KEY)"),
		info:       fs.String("info", a.cfg.SignInfo, "HKDF info for the signing key (CHARI_SIGN_INFO)"),
		signingKey: fs.String("signing-key", "", "packed derived signing key; overrides --master"),
		challenge:  fs.String("challenge", "", "challenge string"),
		params:     fs.String("params", "", "params as a JSON value or a plain string"),
		canonical:  fs.String("canonical", a.cfg.Canonical, "params canonicalizer: json or params"),
	}
}

func (a *app) signer(sf *signFlags) (*token.Signer, string, error) {
	cfg := a.cfg
	cfg.Canonical = *sf.canonical
	opts, err := cfg.Options()
	if err != nil {
		return nil, "", err
	}
	key := *sf.signingKey
	if key == "" {
		if *sf.master == "" {
			return nil, "", chari.ErrMissingMasterKey
		}
		if key, err = token.DeriveKey(*sf.master, *sf.info); err != nil {
			return nil, "", err
		}
	}
	return token.NewSigner(opts...), key, nil
}

func (a *app) sign(args []string) error {
	fs, sf := a.signFlagSet("sign")
	window := fs.Int64("window", -1, "explicit window number (default current)")
	copyIt := fs.Bool("copy", false, "copy the signature to the clipboard")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, key, err := a.signer(sf)
	if err != nil {
		return err
	}
	w := *window
	if w < 0 {
		w = s.Window()
	}
	sig, err := s.SignWindow(key, *sf.challenge, parseValue(*sf.params), w)
	if err != nil {
		return err
	}
	a.log.Debug("signed", slog.Int64("window", w))
	a.emit(sig, *copyIt)
	return nil
}

func (a *app) verify(args []string) error {
	fs, sf := a.signFlagSet("verify")
	signature := fs.String("signature", "", "hex signature to check")
	drift := fs.Bool("drift", true, "accept signatures from the previous windows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, key, err := a.signer(sf)
	if err != nil {
		return err
	}
	ok, err := s.Verify(key, *sf.challenge, parseValue(*sf.params), *signature, *drift)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.stdout, "invalid")
		return errSignatureInvalid
	}
	fmt.Fprintln(a.stdout, "valid")
	return nil
}

func (a *app) codecFlags(name string) (*flag.FlagSet, *string, *string) {
	fs := a.flags(name)
	data := fs.String("data-key", a.cfg.DataKey, "data passphrase (CHARI_DATA_KEY, derived from the master key when empty)")
	marks := fs.String("marks-key", a.cfg.MarksKey, "marks passphrase (CHARI_MARKS_KEY, derived from the master key when empty)")
	return fs, data, marks
}

func (a *app) codec(data, marks string) (*token.Codec, error) {
	cfg := a.cfg
	cfg.DataKey, cfg.MarksKey = data, marks
	d, m, err := cfg.CodecMaterial()
	if err != nil {
		return nil, err
	}
	return token.NewCodec(d, m), nil
}

func (a *app) encrypt(args []string) error {
	fs, data, marks := a.codecFlags("encrypt")
	payload := fs.String("payload", "", "payload as a JSON value or a plain string")
	fs.StringVar(payload, "p", "", "payload (shorthand)")
	iv := fs.String("iv", "", "explicit 8 character IV (random by default)")
	copyIt := fs.Bool("copy", false, "copy the token to the clipboard")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := a.codec(*data, *marks)
	if err != nil {
		return err
	}
	var tok string
	if *iv != "" {
		tok, err = c.EncryptWithIV(parseValue(*payload), *iv)
	} else {
		tok, err = c.Encrypt(parseValue(*payload))
	}
	if err != nil {
		return err
	}
	a.log.Debug("encrypted", logger.Length("token_len", len(tok)))
	a.emit(tok, *copyIt)
	return nil
}

func (a *app) decrypt(args []string) error {
	fs, data, marks := a.codecFlags("decrypt")
	tok := fs.String("token", "", "token to decrypt")
	unpack := fs.Bool("unpack", false, "print the hidden IV and the ciphertext instead of decrypting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tok == "" && fs.NArg() > 0 {
		*tok = fs.Arg(0)
	}
	c, err := a.codec(*data, *marks)
	if err != nil {
		return err
	}
	if *unpack {
		ciphertext, iv, err := c.Unpack(*tok)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "iv: %s\nciphertext: %s\n", iv, ciphertext)
		return nil
	}
	plain, err := c.Decrypt(*tok)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, plain)
	return nil
}

func (a *app) radix(args []string) error {
	fs := a.flags("radix")
	from := fs.Int("from", 10, "input base (2..62, 16 accepts a 0x prefix)")
	to := fs.Int("to", 62, "output base (2..62)")
	alphaIn := fs.Bool("alpha-in", false, "read the input as base-26 letters")
	alphaOut := fs.Bool("alpha-out", false, "write the output as base-26 letters")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: radix takes exactly one value", errUsage)
	}

	var (
		n   *radix.Number
		err error
	)
	if *alphaIn {
		n, err = radix.FromAlpha(fs.Arg(0))
	} else {
		n, err = radix.New(fs.Arg(0), *from)
	}
	if err != nil {
		return err
	}
	if *alphaOut {
		fmt.Fprintln(a.stdout, n.ToAlpha())
		return nil
	}
	out, err := n.To(*to)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, out)
	return nil
}

func (a *app) split(args []string) error {
	fs := a.flags("split")
	master := fs.String("master", a.cfg.MasterKey, "packed master key (CHARI_MASTER_KEY)")
	parts := fs.Int("parts", 5, "number of shares")
	threshold := fs.Int("threshold", 3, "shares needed to restore the key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *master == "" {
		return chari.ErrMissingMasterKey
	}
	shares, err := token.SplitMasterKey(*master, *parts, *threshold)
	if err != nil {
		return err
	}
	for _, s := range shares {
		fmt.Fprintln(a.stdout, s)
	}
	a.log.Info("master key split", slog.Int("parts", *parts), slog.Int("threshold", *threshold))
	return nil
}

func (a *app) combine(args []string) error {
	fs := a.flags("combine")
	copyIt := fs.Bool("copy", false, "copy the restored key to the clipboard")
	if err := fs.Parse(args); err != nil {
		return err
	}
	master, err := token.CombineMasterKey(fs.Args())
	if err != nil {
		return err
	}
	a.emit(master, *copyIt)
	return nil
}

func (a *app) obfus(args []string) error {
	fs := a.flags("obfus")
	decode := fs.Bool("decode", false, "decode an expression instead of generating one")
	copyIt := fs.Bool("copy", false, "copy the result to the clipboard")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.Join(fs.Args(), " ")
	if *decode {
		plain, err := obfus.Decode(text)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, plain)
		return nil
	}
	code, err := obfus.GenerateCode(text)
	if err != nil {
		return err
	}
	a.emit(code, *copyIt)
	return nil
}

// parseValue turns a JSON object or array argument into a value and keeps
// anything else as a plain string.
func parseValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return raw
}
