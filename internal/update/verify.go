package update

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"aead.dev/minisign"
)

var (
	// ErrNoPublicKey is returned when an install is attempted without a configured key.
	ErrNoPublicKey = errors.New("no update public key configured")
	// ErrNoSignature is returned when the release carries no signature.
	ErrNoSignature = errors.New("update has no signature")
	// ErrBadSignature is returned when the artifact does not match its signature.
	ErrBadSignature = errors.New("update signature is invalid")
)

// CanInstall reports whether a public key is configured. Without one every
// install is refused.
func (u *Updater) CanInstall() bool {
	return u.pubkey != ""
}

// Verify checks the file at path against a minisign signature made with the
// configured public key. Both the key and the signature may be given as the
// minisign file text or as that text base64 encoded, which is how latest.json
// carries them.
func (u *Updater) Verify(path, signature string) error {
	if !u.CanInstall() {
		return ErrNoPublicKey
	}
	if strings.TrimSpace(signature) == "" {
		return ErrNoSignature
	}

	key, err := parsePublicKey(u.pubkey)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read update: %w", err)
	}

	if !minisign.Verify(key, data, minisignText(signature)) {
		return ErrBadSignature
	}
	return nil
}

func parsePublicKey(s string) (minisign.PublicKey, error) {
	var key minisign.PublicKey

	// The key itself is the last line; anything above it is a comment
	lines := strings.Split(strings.TrimSpace(string(minisignText(s))), "\n")
	line := strings.TrimSpace(lines[len(lines)-1])
	if err := key.UnmarshalText([]byte(line)); err != nil {
		return key, fmt.Errorf("invalid update public key: %w", err)
	}
	return key, nil
}

// minisignText undoes the extra base64 layer latest.json wraps around
// minisign files. Plain text is returned unchanged.
func minisignText(s string) []byte {
	s = strings.TrimSpace(s)
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil &&
		strings.HasPrefix(string(decoded), "untrusted comment:") {
		return decoded
	}
	return []byte(s)
}
