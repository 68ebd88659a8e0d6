// Package idgen derives short, deterministic item identifiers from a title
// and creation timestamp, following the hash-id scheme used throughout the
// beads lineage of task trackers.
package idgen

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Prefix is fixed so external tools can recognise engram identifiers.
const Prefix = "eg-"

// idLen is the number of base32 characters kept from the truncated hash.
// 13 chars of base32 cover the ~64 bits of entropy the spec calls for.
const idLen = 13

const base32Alphabet = "0123456789abcdefghijklmnopqrstuv"

// encodeBase32 converts data to a base32 string of exactly length characters,
// left-padding with zeros and keeping the least-significant digits if the
// natural encoding is longer than requested.
func encodeBase32(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)
	base := big.NewInt(32)
	zero := big.NewInt(0)
	mod := new(big.Int)

	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base32Alphabet[mod.Int64()])
	}

	var sb strings.Builder
	for i := len(chars) - 1; i >= 0; i-- {
		sb.WriteByte(chars[i])
	}
	str := sb.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}
	if len(str) > length {
		str = str[len(str)-length:]
	}
	return str
}

// New derives an id from title and createdAt. It is deterministic: the same
// title and millisecond-truncated timestamp always produce the same id.
func New(title string, createdAt time.Time) string {
	content := fmt.Sprintf("%s|%d", title, createdAt.UnixMilli())
	sum := sha256.Sum256([]byte(content))
	// Truncate to 64 bits (8 bytes) of hash material before encoding.
	return Prefix + encodeBase32(sum[:8], idLen)
}

// Exists reports whether an id is already present; callers pass the index's
// lookup so idgen stays free of a dependency on the index package.
type Exists func(id string) bool

// Unique derives an id for title/createdAt, perturbing createdAt by +1ms on
// each collision (per spec §4.1) until exists reports false.
func Unique(title string, createdAt time.Time, exists Exists) (string, time.Time) {
	t := createdAt
	for {
		id := New(title, t)
		if !exists(id) {
			return id, t
		}
		t = t.Add(time.Millisecond)
	}
}
