// Package envelope signs stored URLs with a secret key and verifies them on read,
// so that a value substituted in the store is never handed back to callers.
package envelope

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrMalformedEnvelope is returned when a stored blob cannot be decoded.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrIntegrityViolation is returned when an envelope's signature does not match its value.
	ErrIntegrityViolation = errors.New("integrity violation")
	// ErrInvalidValue is returned when a value cannot be stored without alteration.
	ErrInvalidValue = errors.New("value is not valid utf-8")
)

// Envelope is the serialized form of a signed URL.
type Envelope struct {
	Signature string `json:"signature"`
	Value     string `json:"value"`
}

// Signer wraps and unwraps envelopes with an HMAC-SHA256 key.
type Signer struct {
	key []byte
}

// NewSigner creates a Signer. The key is copied.
func NewSigner(key []byte) *Signer {
	return &Signer{key: bytes.Clone(key)}
}

// Sign returns the lowercase hex HMAC-SHA256 of value.
func (s *Signer) Sign(value string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// Wrap signs url and returns the serialized envelope. JSON cannot carry
// invalid UTF-8 unchanged, so such input is rejected.
func (s *Signer) Wrap(url string) ([]byte, error) {
	const op = "envelope.Signer.Wrap"

	if !utf8.ValidString(url) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidValue)
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(Envelope{Signature: s.Sign(url), Value: url}); err != nil {
		return nil, fmt.Errorf("%s: failed to encode envelope: %w", op, err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Unwrap decodes blob, verifies its signature and returns the embedded URL.
// The URL is returned only when verification succeeds.
func (s *Signer) Unwrap(blob []byte) (string, error) {
	const op = "envelope.Signer.Unwrap"

	var env Envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrMalformedEnvelope, err)
	}

	if env.Signature == "" {
		return "", fmt.Errorf("%s: %w: missing signature", op, ErrMalformedEnvelope)
	}

	if !hmac.Equal([]byte(s.Sign(env.Value)), []byte(env.Signature)) {
		return "", fmt.Errorf("%s: %w", op, ErrIntegrityViolation)
	}

	return env.Value, nil
}
