package vfs

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes a POSIX-style path: a single leading slash, no
// duplicate separators, "." and ".." resolved, and unicode segments folded
// to NFC so that visually identical names map to the same node.
func Normalize(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")

	var stack []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, norm.NFC.String(seg))
		}
	}

	return "/" + strings.Join(stack, "/")
}

// IsSafe reports whether path stays inside the tree root. A path whose ".."
// segments would climb above "/" is rejected before any mutation touches it.
func IsSafe(path string) bool {
	path = strings.ReplaceAll(path, "\\", "/")

	depth := 0
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return false
			}
		default:
			depth++
		}
	}
	return true
}

// Join joins path segments and normalizes the result.
func Join(parts ...string) string {
	return Normalize(strings.Join(parts, "/"))
}

// Split returns the normalized path's segments. The root yields an empty slice.
func Split(path string) []string {
	p := Normalize(path)
	if p == "/" {
		return nil
	}
	return strings.Split(p[1:], "/")
}

// Dir returns the parent of a normalized path. The root is its own parent.
func Dir(path string) string {
	p := Normalize(path)
	idx := strings.LastIndexByte(p, '/')
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}

// Base returns the final segment of a normalized path, "" for the root.
func Base(path string) string {
	p := Normalize(path)
	if p == "/" {
		return ""
	}
	return p[strings.LastIndexByte(p, '/')+1:]
}

// Ext returns the lowercased extension of the final segment, including the
// dot, or "" if there is none.
func Ext(path string) string {
	base := Base(path)
	idx := strings.LastIndexByte(base, '.')
	if idx <= 0 {
		return ""
	}
	return strings.ToLower(base[idx:])
}

// ContentHash returns a stable hex digest of content, suitable as a build
// cache key. Truncated sha256; 32 hex chars is plenty for cache addressing.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:16])
}
