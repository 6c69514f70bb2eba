// Package security holds path checks applied to names that come from
// untrusted input such as archive members.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned when a relative name resolves outside its root.
var ErrPathEscape = errors.New("path escapes root")

// JoinWithin joins a slash-separated member name onto root and rejects the
// result when it does not stay below root. Absolute names and names with
// enough ".." elements to climb out are refused. The check is lexical so it
// also holds on in-memory filesystems.
func JoinWithin(root, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty name: %w", ErrPathEscape)
	}
	native := filepath.FromSlash(name)
	if strings.HasPrefix(name, "/") || filepath.IsAbs(native) || filepath.VolumeName(native) != "" {
		return "", fmt.Errorf("%q is absolute: %w", name, ErrPathEscape)
	}
	base := filepath.Clean(root)
	target := filepath.Join(base, native)
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", fmt.Errorf("%q: %w", name, ErrPathEscape)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q leaves %s: %w", name, root, ErrPathEscape)
	}
	return target, nil
}
