package refs

import (
	"fmt"
	"strings"
)

// maxNameLen caps normalized reference names, matching git's historical
// refname limit.
const maxNameLen = 1024

const (
	refsDir    = "refs/"
	tagsDir    = "refs/tags/"
	headsDir   = "refs/heads/"
	headFile   = "HEAD"
	mergeHead  = "MERGE_HEAD"
	fetchHead  = "FETCH_HEAD"
	lockSuffix = ".lock"
)

// Normalize validates and canonicalizes a reference name without requiring
// it to refer to an OID. Duplicate slashes are collapsed; any grammar
// violation returns ErrInvalidName.
func Normalize(name string) (string, error) {
	return normalizeName(name, false)
}

// NormalizeOID validates and canonicalizes a name intended to refer
// directly to an object: it must live under refs/, or be one of the
// well-known roots HEAD, MERGE_HEAD, FETCH_HEAD.
func NormalizeOID(name string) (string, error) {
	return normalizeName(name, true)
}

func isWellKnownRoot(name string) bool {
	return name == headFile || name == mergeHead || name == fetchHead
}

func normalizeName(name string, oidRef bool) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if last := name[len(name)-1]; last == '.' || last == '/' {
		return "", fmt.Errorf("%w: %q ends with '.' or '/'", ErrInvalidName, name)
	}

	var out strings.Builder
	out.Grow(len(name))

	var prev byte
	for i := 0; i < len(name); i++ {
		c := name[i]

		if c <= ' ' || c == 0x7f {
			return "", fmt.Errorf("%w: %q contains a control or space character", ErrInvalidName, name)
		}
		switch c {
		case '~', '^', ':', '\\', '?', '[', '*':
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, string(c))
		}

		if out.Len() == 0 {
			// A name can not start with a dot.
			if c == '.' {
				return "", fmt.Errorf("%w: %q starts with '.'", ErrInvalidName, name)
			}
		} else {
			// No double dots, no dot-led path components.
			if c == '.' && (prev == '.' || prev == '/') {
				return "", fmt.Errorf("%w: %q contains '..' or a component starting with '.'", ErrInvalidName, name)
			}
			if c == '{' && prev == '@' {
				return "", fmt.Errorf("%w: %q contains \"@{\"", ErrInvalidName, name)
			}
			// Collapse consecutive slashes.
			if c == '/' && prev == '/' {
				continue
			}
		}

		out.WriteByte(c)
		prev = c
	}

	if out.Len() > maxNameLen {
		return "", fmt.Errorf("%w: %q is too long", ErrInvalidName, name)
	}

	normalized := out.String()

	if strings.HasSuffix(normalized, lockSuffix) {
		return "", fmt.Errorf("%w: %q ends with %q", ErrInvalidName, name, lockSuffix)
	}

	// Direct references must live under refs/, except for the well-known
	// roots at the repository top level.
	if oidRef && !isWellKnownRoot(normalized) && !strings.HasPrefix(normalized, refsDir) {
		return "", fmt.Errorf("%w: %q does not start with %q", ErrInvalidName, name, refsDir)
	}

	return normalized, nil
}
