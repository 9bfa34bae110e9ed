// Package totpx issues and validates time-based one-time codes (RFC 6238).
// Issuance and validation share one Config so the parameters baked into an
// authenticator app always match what the server checks.
package totpx

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Config is the single source of TOTP parameters.
type Config struct {
	Issuer     string
	Digits     otp.Digits
	Period     uint
	Algorithm  otp.Algorithm
	SecretSize uint

	// Skew is how many periods either side of the current one are accepted.
	// 1 accepts codes from a 90 second window.
	Skew uint

	// QRSize is the width and height of the rendered QR code in pixels.
	QRSize int
}

// DefaultConfig matches what common authenticator apps assume.
func DefaultConfig() Config {
	return Config{
		Issuer:     "GameStoreApp",
		Digits:     otp.DigitsSix,
		Period:     30,
		Algorithm:  otp.AlgorithmSHA1,
		SecretSize: 20,
		Skew:       1,
		QRSize:     200,
	}
}

// Enrollment is returned once when a secret is issued.
type Enrollment struct {
	Secret    string // base32, no padding
	URL       string // otpauth://totp/...
	QRCodeURL string // data:image/png;base64,...
}

// Service issues secrets and validates codes with a fixed Config.
type Service struct {
	cfg Config

	// dummy is validated against when no secret is stored so both paths do
	// the same amount of work.
	dummy string
}

func New(cfg Config) *Service {
	def := DefaultConfig()
	if cfg.Issuer == "" {
		cfg.Issuer = def.Issuer
	}
	if cfg.Digits == 0 {
		cfg.Digits = def.Digits
	}
	if cfg.Period == 0 {
		cfg.Period = def.Period
	}
	if cfg.SecretSize == 0 {
		cfg.SecretSize = def.SecretSize
	}
	if cfg.QRSize <= 0 {
		cfg.QRSize = def.QRSize
	}

	return &Service{
		cfg:   cfg,
		dummy: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ",
	}
}

func (s *Service) Config() Config { return s.cfg }

// Issue creates a new random secret for ownerID. The otpauth label becomes
// "<issuer>:<ownerID>".
func (s *Service) Issue(ownerID string) (Enrollment, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Enrollment{}, fmt.Errorf("totpx: owner id is required")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.Issuer,
		AccountName: ownerID,
		Period:      s.cfg.Period,
		SecretSize:  s.cfg.SecretSize,
		Digits:      s.cfg.Digits,
		Algorithm:   s.cfg.Algorithm,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("totpx: generate key: %w", err)
	}

	qr, err := qrDataURL(key, s.cfg.QRSize)
	if err != nil {
		return Enrollment{}, err
	}

	return Enrollment{
		Secret:    key.Secret(),
		URL:       key.URL(),
		QRCodeURL: qr,
	}, nil
}

func qrDataURL(key *otp.Key, size int) (string, error) {
	img, err := key.Image(size, size)
	if err != nil {
		return "", fmt.Errorf("totpx: render qr: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("totpx: encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Validate reports whether code is valid for secret right now.
func (s *Service) Validate(secret, code string) bool {
	return s.ValidateAt(secret, code, time.Now())
}

// ValidateAt reports whether code is valid for secret at t. A missing or
// undecodable secret is still run through the same computation and then
// rejected, so callers cannot tell it apart from a wrong code by timing.
func (s *Service) ValidateAt(secret, code string, t time.Time) bool {
	usable := secret != ""
	if !usable {
		secret = s.dummy
	}

	ok, err := totp.ValidateCustom(code, secret, t.UTC(), totp.ValidateOpts{
		Period:    s.cfg.Period,
		Skew:      s.cfg.Skew,
		Digits:    s.cfg.Digits,
		Algorithm: s.cfg.Algorithm,
	})
	if err != nil {
		// Bad base32 or a malformed code: a rejection, never an error.
		return false
	}
	return usable && ok
}

// CodeAt returns the code for secret at t. Meant for tests and tooling.
func (s *Service) CodeAt(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t.UTC(), totp.ValidateOpts{
		Period:    s.cfg.Period,
		Digits:    s.cfg.Digits,
		Algorithm: s.cfg.Algorithm,
	})
}
