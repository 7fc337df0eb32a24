// Package repo ties the reference backend to an on-disk repository: the
// .reft metadata directory, the object store, the TOML config, and the
// reflog.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/reft/pkg/object"
	"github.com/odvcencio/reft/pkg/refs"
)

// MetaDirName is the repository metadata directory created at the root.
const MetaDirName = ".reft"

// DefaultBranch is the initial branch name when none is configured.
const DefaultBranch = "main"

// Repo is an open repository. The reference DB it owns holds the packed
// cache for the repository's lifetime; callers serialize mutations on a
// Repo externally.
type Repo struct {
	RootDir string
	MetaDir string
	Store   *object.Store
	Refs    *refs.DB
}

func newRepo(root, meta string) *Repo {
	r := &Repo{RootDir: root, MetaDir: meta}
	r.Store = object.NewStore(meta)
	r.Refs = refs.New(meta, r.Store, r)
	return r
}

// Init creates a new repository at path: the .reft/ directory with
// objects/, refs/heads/, refs/tags/, logs/, a symbolic HEAD pointing at
// the initial branch, and the config file. An empty branch name selects
// DefaultBranch. Returns an error if a .reft/ directory already exists.
func Init(path, branch string) (*Repo, error) {
	if branch == "" {
		branch = DefaultBranch
	}

	meta := filepath.Join(path, MetaDirName)
	if _, err := os.Stat(meta); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", meta)
	}

	dirs := []string{
		filepath.Join(meta, "objects"),
		filepath.Join(meta, "refs", "heads"),
		filepath.Join(meta, "refs", "tags"),
		filepath.Join(meta, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	r := newRepo(path, meta)
	if _, err := r.Refs.CreateSymbolic("HEAD", "refs/heads/"+branch, true); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}
	if err := r.WriteConfig(&Config{DefaultBranch: branch}); err != nil {
		return nil, err
	}
	return r, nil
}

// Open searches upward from path for a .reft/ directory and opens the
// repository. Returns an error if none is found.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		meta := filepath.Join(cur, MetaDirName)
		info, err := os.Stat(meta)
		if err == nil && info.IsDir() {
			return newRepo(cur, meta), nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open: not a reft repository (or any parent up to /)")
		}
		cur = parent
	}
}

// Head returns the HEAD reference handle.
func (r *Repo) Head() (*refs.Reference, error) {
	return r.Refs.Lookup("HEAD")
}

// CurrentBranch returns the branch HEAD points at, or an error when HEAD
// is detached or missing.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", err
	}
	if head.Kind() == refs.Symbolic && strings.HasPrefix(head.Target(), "refs/heads/") {
		return strings.TrimPrefix(head.Target(), "refs/heads/"), nil
	}
	return "", fmt.Errorf("HEAD is not on a branch")
}
