// Package attachments defines the object-store key namespace for entry
// attachments. A key is "<owner>/<name>"; the owner segment is the only proof
// of ownership, so keys are handled as a structured Key rather than a string
// wherever ownership matters.
package attachments

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/diarykeeper/internal/common"
)

// MaxFilenameLength caps the sanitized filename part of an upload key.
const MaxFilenameLength = 200

// ErrInvalidKey is returned for keys without a usable owner segment.
var ErrInvalidKey = errors.New("invalid attachment key")

// Key is an owner-scoped object-store key.
type Key struct {
	Owner string
	Name  string
}

// NewKey builds a key from its parts. The owner must be non-empty and must
// not contain '/'; the name must be non-empty.
func NewKey(owner, name string) (Key, error) {
	if owner == "" || strings.Contains(owner, "/") {
		return Key{}, fmt.Errorf("%w: bad owner %q", ErrInvalidKey, owner)
	}
	if name == "" {
		return Key{}, fmt.Errorf("%w: empty name", ErrInvalidKey)
	}
	return Key{Owner: owner, Name: name}, nil
}

// ParseKey splits a raw key at its first '/'.
func ParseKey(raw string) (Key, error) {
	owner, name, ok := strings.Cut(raw, "/")
	if !ok {
		return Key{}, fmt.Errorf("%w: no owner segment in %q", ErrInvalidKey, raw)
	}
	return NewKey(owner, name)
}

// UploadKey mints the key for a new upload: "<owner>/<yyyy-mm-dd>-<sanitized filename>".
func UploadKey(owner, filename string, day time.Time) (Key, error) {
	safe := SanitizeFilename(filename)
	if safe == "" {
		return Key{}, fmt.Errorf("%w: empty filename", ErrInvalidKey)
	}
	return NewKey(owner, day.UTC().Format(common.DateLayout)+"-"+safe)
}

func (k Key) String() string {
	return k.Owner + "/" + k.Name
}

// OwnedBy reports whether the key belongs to userID.
func (k Key) OwnedBy(userID string) bool {
	return userID != "" && k.Owner == userID
}

// SanitizeFilename replaces every character outside [A-Za-z0-9._-] with '_'
// and truncates the result to MaxFilenameLength characters.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	n := 0
	for _, r := range name {
		if n == MaxFilenameLength {
			break
		}
		if isSafe(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		n++
	}
	return b.String()
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}

// OwnedKeys returns the distinct keys across lists that parse and belong to
// owner, in first-seen order. Everything else is dropped.
func OwnedKeys(owner string, lists ...[]string) []Key {
	seen := make(map[Key]struct{})
	var out []Key
	for _, list := range lists {
		for _, raw := range list {
			k, err := ParseKey(raw)
			if err != nil || !k.OwnedBy(owner) {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// Strings renders keys back to their raw form.
func Strings(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
