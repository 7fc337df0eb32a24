package refs

import (
	"errors"
	"testing"
)

func TestNormalize_Valid(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"refs/heads/main", "refs/heads/main"},
		{"refs//heads///x", "refs/heads/x"},
		{"HEAD", "HEAD"},
		{"MERGE_HEAD", "MERGE_HEAD"},
		{"refs/tags/v1.0", "refs/tags/v1.0"},
		{"refs/remotes/origin/feature/x", "refs/remotes/origin/feature/x"},
		{"refs/heads/lock.not", "refs/heads/lock.not"},
	}
	for _, tc := range tests {
		got, err := Normalize(tc.in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalize_Invalid(t *testing.T) {
	tests := []string{
		"",
		"refs/heads/foo..bar",
		"refs/heads/foo.lock",
		".hidden",
		"refs/heads/.hidden",
		"refs/heads/x.",
		"refs/heads/x/",
		"refs/he~ad",
		"refs/he^ad",
		"refs/he:ad",
		"refs/he\\ad",
		"refs/he?ad",
		"refs/he[ad",
		"refs/he*ad",
		"refs/he ad",
		"refs/he\tad",
		"refs/heads/x\x01y",
		"refs/heads/x\x7fy",
		"refs/heads/v@{1}",
	}
	for _, in := range tests {
		if _, err := Normalize(in); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Normalize(%q) = %v, want ErrInvalidName", in, err)
		}
	}
}

func TestNormalizeOID_RequiresRefsPrefixOrWellKnownRoot(t *testing.T) {
	for _, in := range []string{"HEAD", "MERGE_HEAD", "FETCH_HEAD", "refs/heads/x", "refs/tags/v1"} {
		if _, err := NormalizeOID(in); err != nil {
			t.Errorf("NormalizeOID(%q): %v", in, err)
		}
	}
	for _, in := range []string{"foo", "ORIG_HEAD", "heads/main"} {
		if _, err := NormalizeOID(in); !errors.Is(err, ErrInvalidName) {
			t.Errorf("NormalizeOID(%q) = %v, want ErrInvalidName", in, err)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"refs//heads///x",
		"refs/heads/main",
		"HEAD",
		"refs/remotes/origin/feature/x",
	}
	for _, in := range inputs {
		once, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(Normalize(%q)): %v", in, err)
		}
		if once != twice {
			t.Errorf("normalize not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}
