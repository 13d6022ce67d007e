// Package fingerprint derives deterministic, path-safe identifiers for
// function invocations.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// unsafeChar matches any character outside [A-Za-z0-9.\-_(),=].
var unsafeChar = regexp.MustCompile(`[^A-Za-z0-9.\-_(),=]`)

// maxPathSafeLen is the truncation length for path-safe job ids.
const maxPathSafeLen = 256

// UniqueJobID returns the 64-char lowercase hex SHA-256 fingerprint of a
// function name and its arguments. Identical args (regardless of
// insertion order) always produce the same id.
func UniqueJobID(name string, args map[string]any) string {
	h := sha256.Sum256([]byte(name + "(" + joinArgs(args) + ")"))
	return hex.EncodeToString(h[:])
}

// PathSafeJobID mints a fresh, path-safe identifier: a random UUIDv4
// (hyphens stripped) concatenated with UniqueJobID(name, args), truncated
// to 256 characters, with every character outside
// [A-Za-z0-9.\-_(),=] replaced by '_'.
func PathSafeJobID(name string, args map[string]any) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "") + UniqueJobID(name, args)
	safe := unsafeChar.ReplaceAllString(raw, "_")
	if len(safe) > maxPathSafeLen {
		safe = safe[:maxPathSafeLen]
	}
	return safe
}

// joinArgs renders args as a comma-separated, key-sorted "k = v" list.
// Undefined (nil) values render as the literal "undef".
func joinArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s = %s", k, renderValue(args[k])))
	}
	return strings.Join(parts, ", ")
}

// renderValue gives a deterministic textual rendering of an arg value.
func renderValue(v any) string {
	if v == nil {
		return "undef"
	}
	switch val := v.(type) {
	case string:
		return val
	case []any:
		rendered := make([]string, len(val))
		for i, item := range val {
			rendered[i] = renderValue(item)
		}
		return "[" + strings.Join(rendered, ", ") + "]"
	case map[string]any:
		return "{" + joinArgs(val) + "}"
	default:
		return fmt.Sprintf("%v", val)
	}
}
