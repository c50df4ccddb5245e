// Package chari bundles key management, time-windowed request signing and
// IV-hiding token encryption behind one configuration.
//
// Most programs build a Toolkit once from the environment:
//
//	tk, err := chari.FromEnv()
//	sig, err := tk.Sign(challenge, params)
//	ok, err := tk.Verify(challenge, params, sig, true)
//	tok, err := tk.Encrypt(map[string]any{"user": 42})
//	plain, err := tk.Decrypt(tok)
//
// The packages underneath (token, radix, params, obfus) can be used on their
// own when finer control is needed.
package chari

import (
	"errors"
	"fmt"
	"time"

	"github.com/oarkflow/chari/internal/config"
	"github.com/oarkflow/chari/params"
	"github.com/oarkflow/chari/token"
)

// Canonicalizer names accepted by Config.Canonical.
const (
	CanonicalJSON   = "json"
	CanonicalParams = "params"
)

// HKDF info strings used when the codec keys are derived from the master key.
const (
	DataKeyInfo  = "chari/data/v1"
	MarksKeyInfo = "chari/marks/v1"
)

var (
	// ErrMissingMasterKey is returned when no master key is configured.
	ErrMissingMasterKey = errors.New("master key is not configured")
	// ErrUnknownCanonical is returned for an unsupported Config.Canonical value.
	ErrUnknownCanonical = errors.New("unknown canonicalizer")
)

// Config describes a Toolkit. Every field can be set from the environment.
type Config struct {
	MasterKey    string        `env:"CHARI_MASTER_KEY"`
	SignInfo     string        `env:"CHARI_SIGN_INFO" envDefault:"chari/sign/v1"`
	DataKey      string        `env:"CHARI_DATA_KEY"`
	MarksKey     string        `env:"CHARI_MARKS_KEY"`
	Window       time.Duration `env:"CHARI_WINDOW" envDefault:"10s"`
	DriftWindows int           `env:"CHARI_DRIFT_WINDOWS" envDefault:"1"`
	Canonical    string        `env:"CHARI_CANONICAL" envDefault:"json"`
	LogLevel     string        `env:"CHARI_LOG_LEVEL" envDefault:"info"`
	LogFormat    string        `env:"CHARI_LOG_FORMAT" envDefault:"text"`
}

// LoadConfig reads Config from the environment and an optional .env file.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Toolkit signs and encrypts with keys taken from a Config.
type Toolkit struct {
	keys    *token.KeyManager
	signer  *token.Signer
	codec   *token.Codec
	signKey string
}

// FromEnv is LoadConfig followed by New.
func FromEnv(opts ...token.Option) (*Toolkit, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// New validates cfg and builds a Toolkit. The signing key is derived from
// the master key with cfg.SignInfo. opts are applied after the options
// built from cfg, so tests can override the clock or the entropy source.
func New(cfg Config, opts ...token.Option) (*Toolkit, error) {
	if cfg.MasterKey == "" {
		return nil, ErrMissingMasterKey
	}
	signKey, err := token.DeriveKey(cfg.MasterKey, cfg.SignInfo)
	if err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	dataKey, marksKey, err := cfg.CodecMaterial()
	if err != nil {
		return nil, err
	}
	all, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	all = append(all, opts...)

	return &Toolkit{
		keys:    token.NewKeyManager(all...),
		signer:  token.NewSigner(all...),
		codec:   token.NewCodec(dataKey, marksKey, all...),
		signKey: signKey,
	}, nil
}

// Options translates the window, drift and canonicalizer settings.
func (c Config) Options() ([]token.Option, error) {
	opts := make([]token.Option, 0, 3)
	if c.Window > 0 {
		opts = append(opts, token.WithWindow(c.Window))
	}
	opts = append(opts, token.WithDriftWindows(c.DriftWindows))
	switch c.Canonical {
	case "", CanonicalJSON:
	case CanonicalParams:
		opts = append(opts, token.WithCanonicalizer(params.Simplifier{}))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCanonical, c.Canonical)
	}
	return opts, nil
}

// CodecMaterial returns the codec passphrases. Empty ones are derived from
// the master key with DataKeyInfo and MarksKeyInfo.
func (c Config) CodecMaterial() (data, marks string, err error) {
	data, err = materialOrDerived(c.DataKey, c.MasterKey, DataKeyInfo)
	if err != nil {
		return "", "", err
	}
	marks, err = materialOrDerived(c.MarksKey, c.MasterKey, MarksKeyInfo)
	if err != nil {
		return "", "", err
	}
	return data, marks, nil
}

func materialOrDerived(material, master, info string) (string, error) {
	if material != "" {
		return material, nil
	}
	if master == "" {
		return "", ErrMissingMasterKey
	}
	derived, err := token.DeriveKey(master, info)
	if err != nil {
		return "", fmt.Errorf("derive %s: %w", info, err)
	}
	return derived, nil
}

// Keys returns the key manager.
func (t *Toolkit) Keys() *token.KeyManager { return t.keys }

// Signer returns the signer.
func (t *Toolkit) Signer() *token.Signer { return t.signer }

// Codec returns the token codec.
func (t *Toolkit) Codec() *token.Codec { return t.codec }

// SigningKey returns the packed key derived for signing.
func (t *Toolkit) SigningKey() string { return t.signKey }

// Sign signs params and challenge for the current window.
func (t *Toolkit) Sign(challenge string, args any) (string, error) {
	return t.signer.Sign(t.signKey, challenge, args)
}

// Verify checks a signature produced by Sign.
func (t *Toolkit) Verify(challenge string, args any, signature string, allowDrift bool) (bool, error) {
	return t.signer.Verify(t.signKey, challenge, args, signature, allowDrift)
}

// Encrypt encrypts payload into a token.
func (t *Toolkit) Encrypt(payload any) (string, error) {
	return t.codec.Encrypt(payload)
}

// Decrypt recovers the plaintext of a token. Every failure is token.ErrInvalidToken.
func (t *Toolkit) Decrypt(tok string) (string, error) {
	return t.codec.Decrypt(tok)
}
