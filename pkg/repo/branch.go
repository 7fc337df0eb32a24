package repo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/odvcencio/reft/pkg/object"
	"github.com/odvcencio/reft/pkg/refs"
)

// CreateBranch points refs/heads/<name> at target and records the
// creation in the reflog.
func (r *Repo) CreateBranch(name string, target object.OID) error {
	refName := "refs/heads/" + name
	if _, err := r.Refs.CreateDirect(refName, target, false); err != nil {
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	if err := r.AppendReflog(refName, object.ZeroOID, target, "branch: created"); err != nil {
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	return nil
}

// DeleteBranch removes refs/heads/<name>. The current branch cannot be
// deleted.
func (r *Repo) DeleteBranch(name string) error {
	current, err := r.CurrentBranch()
	if err == nil && current == name {
		return fmt.Errorf("delete branch: cannot delete current branch %q", name)
	}

	ref, err := r.Refs.Lookup("refs/heads/" + name)
	if err != nil {
		return fmt.Errorf("delete branch %q: %w", name, err)
	}
	if err := r.Refs.Delete(ref); err != nil {
		return fmt.Errorf("delete branch %q: %w", name, err)
	}
	return nil
}

// ListBranches returns the branch names, packed and loose alike, sorted
// alphabetically.
func (r *Repo) ListBranches() ([]string, error) {
	var names []string
	err := r.Refs.Foreach(refs.IterAll, func(name string) error {
		if strings.HasPrefix(name, "refs/heads/") {
			names = append(names, strings.TrimPrefix(name, "refs/heads/"))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// RenameBranch moves refs/heads/<oldName> to refs/heads/<newName>,
// carrying the reflog along and retargeting a symbolic HEAD.
func (r *Repo) RenameBranch(oldName, newName string, force bool) error {
	ref, err := r.Refs.Lookup("refs/heads/" + oldName)
	if err != nil {
		return fmt.Errorf("rename branch %q: %w", oldName, err)
	}
	if err := r.Refs.Rename(ref, "refs/heads/"+newName, force); err != nil {
		return fmt.Errorf("rename branch %q: %w", oldName, err)
	}
	return nil
}
