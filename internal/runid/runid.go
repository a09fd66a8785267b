// Package runid generates run identities: short opaque tokens that tie
// together branches, commits, tracker comments, and audit directories for
// one end-to-end run.
package runid

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Length is the fixed length of a run identity.
const Length = 8

var validRe = regexp.MustCompile(`^[a-z0-9]{8}$`)

// New returns a fresh 8-character lowercase run identity.
func New() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToLower(id[:Length])
}

// Validate checks that s is a well-formed run identity.
func Validate(s string) error {
	if !validRe.MatchString(s) {
		return fmt.Errorf("invalid run identity %q: must match %s", s, validRe.String())
	}
	return nil
}
