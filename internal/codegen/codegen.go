// Package codegen generates voucher redemption codes.
package codegen

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// alphabet excludes ambiguous characters (0/O, 1/I/L) so codes survive being
// read over the phone or typed from a printout.
const alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	groupLen   = 4
	groupCount = 3
)

// Generator produces voucher codes of the form XXXX-XXXX-XXXX. The code
// space (31^12) makes collisions rare; uniqueness is still enforced against
// the voucher table by the caller, which retries on collision.
type Generator struct{}

// New creates a code generator.
func New() *Generator {
	return &Generator{}
}

// Generate returns a fresh random code.
func (g *Generator) Generate() (string, error) {
	raw := make([]byte, groupLen*groupCount)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	var b strings.Builder
	b.Grow(groupLen*groupCount + groupCount - 1)
	for i, r := range raw {
		if i > 0 && i%groupLen == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(alphabet[int(r)%len(alphabet)])
	}
	return b.String(), nil
}
