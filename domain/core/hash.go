package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// CacheKey identifies one materialized result: the function that produced it
// plus its full, ordered argument tuple.
type CacheKey struct {
	Function string
	Args     []KeyPart
}

// KeyPart is a single named argument of a CacheKey
type KeyPart struct {
	Name  string
	Value string
}

// NewCacheKey builds a key from alternating name/value pairs
func NewCacheKey(function string, pairs ...string) CacheKey {
	key := CacheKey{Function: function}
	for i := 0; i+1 < len(pairs); i += 2 {
		key.Args = append(key.Args, KeyPart{Name: pairs[i], Value: pairs[i+1]})
	}
	return key
}

// With returns a copy of the key with one more argument
func (k CacheKey) With(name, value string) CacheKey {
	args := make([]KeyPart, len(k.Args), len(k.Args)+1)
	copy(args, k.Args)
	return CacheKey{Function: k.Function, Args: append(args, KeyPart{Name: name, Value: value})}
}

// Canonical renders the key as function--name=value--... with arguments
// sorted by name, so argument order at the call site never matters.
func (k CacheKey) Canonical() string {
	args := make([]KeyPart, len(k.Args))
	copy(args, k.Args)
	sort.SliceStable(args, func(i, j int) bool { return args[i].Name < args[j].Name })

	var b strings.Builder
	b.WriteString(k.Function)
	for _, a := range args {
		b.WriteString("--")
		b.WriteString(a.Name)
		b.WriteString("=")
		b.WriteString(strings.ReplaceAll(a.Value, " ", "_"))
	}
	return b.String()
}

// Hash returns the sha256 of the canonical form
func (k CacheKey) Hash() Hash {
	return NewHash([]byte(k.Canonical()))
}

func (k CacheKey) String() string {
	return k.Canonical()
}

// FormatFloatArg renders a float argument with a stable representation
func FormatFloatArg(v float64) string {
	return fmt.Sprintf("%g", v)
}
