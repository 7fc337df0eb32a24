// Package refs implements the reference backend of the repository: the
// loose one-file-per-ref store, the consolidated packed-refs file with its
// in-memory cache, and the unified API that merges the two into one
// logical namespace.
package refs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/odvcencio/reft/pkg/fsutil"
	"github.com/odvcencio/reft/pkg/object"
)

// MaxNestingLevel bounds symbolic reference chains during resolution.
const MaxNestingLevel = 5

// ObjectDB is the slice of the object database the reference backend
// consumes: existence checks for create/update targets, and tag typing
// for peel computation during compaction.
type ObjectDB interface {
	Has(id object.OID) bool
	Type(id object.OID) (object.Type, error)
	TagTarget(id object.OID) (object.OID, error)
}

// Reflog maintains reference log files. The backend only moves a log file
// when its reference is renamed; appending entries is the caller's
// business.
type Reflog interface {
	RenameLog(oldName, newName string) error
}

// Kind discriminates reference variants.
type Kind int

const (
	Invalid Kind = iota
	Direct
	Symbolic
)

func (k Kind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Symbolic:
		return "symbolic"
	default:
		return "invalid"
	}
}

// DB is the unified reference store of one repository. It is not safe for
// concurrent use; callers serialize mutations on a repository externally.
// Cross-process coordination rests on atomic lock-and-rename file writes
// and mtime revalidation, so cooperating processes always observe either
// the pre- or the post-state of an update.
type DB struct {
	dir   string
	odb   ObjectDB
	logs  Reflog
	cache packedCache
}

// New creates a reference DB rooted at the repository metadata directory.
// logs may be nil when no reflog is kept.
func New(dir string, odb ObjectDB, logs Reflog) *DB {
	return &DB{dir: dir, odb: odb, logs: logs}
}

// Reference is a handle onto one named reference. It holds a snapshot of
// the name and target plus the source mtime recorded when it was last read
// or written; SetOID, SetTarget and Rename update the handle in place. A
// concurrent change makes the handle stale, which the next lookup detects.
type Reference struct {
	db     *DB
	name   string
	kind   Kind
	oid    object.OID
	target string
	packed bool
	mtime  time.Time
}

// Name returns the canonical reference name.
func (r *Reference) Name() string { return r.name }

// Kind returns the reference variant.
func (r *Reference) Kind() Kind { return r.kind }

// OID returns the target object id of a direct reference.
func (r *Reference) OID() object.OID { return r.oid }

// Target returns the target name of a symbolic reference.
func (r *Reference) Target() string { return r.target }

// IsPacked reports whether the handle was read from the packed store.
func (r *Reference) IsPacked() bool { return r.packed }

// Lookup finds a reference by name, consulting the loose store first and
// falling back to the packed store. ErrNotFound is reported only when both
// stores miss; any other failure short-circuits.
func (db *DB) Lookup(name string) (*Reference, error) {
	norm, err := Normalize(name)
	if err != nil {
		return nil, err
	}

	ref := &Reference{db: db, name: norm}
	err = db.looseLookup(ref)
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err := db.packedLookup(ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// Exists reports whether a reference with the given name is present in
// either store.
func (db *DB) Exists(name string) (bool, error) {
	norm, err := Normalize(name)
	if err != nil {
		return false, err
	}
	if fsutil.IsFile(db.refPath(norm)) {
		return true, nil
	}
	if err := db.packedLoad(); err != nil {
		return false, err
	}
	_, ok := db.cache.entries[norm]
	return ok, nil
}

// CreateDirect creates a loose direct reference pointing at id. Without
// force, an occupied or prefix-conflicting name reports ErrExists. The
// target object must exist in the object database.
func (db *DB) CreateDirect(name string, id object.OID, force bool) (*Reference, error) {
	norm, err := NormalizeOID(name)
	if err != nil {
		return nil, err
	}
	if !force {
		if err := db.checkAvailable(norm, ""); err != nil {
			return nil, err
		}
	}
	if !db.odb.Has(id) {
		return nil, fmt.Errorf("create %q: object %s: %w", norm, id, ErrInvalidTarget)
	}

	ref := &Reference{db: db, name: norm, kind: Direct, oid: id}
	if err := db.looseWrite(ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// CreateSymbolic creates a loose symbolic reference pointing at target.
// The target must itself be a valid reference name.
func (db *DB) CreateSymbolic(name, target string, force bool) (*Reference, error) {
	norm, err := Normalize(name)
	if err != nil {
		return nil, err
	}
	normTarget, err := Normalize(target)
	if err != nil {
		return nil, fmt.Errorf("create %q: target %q: %w", norm, target, ErrInvalidTarget)
	}
	if !force {
		if err := db.checkAvailable(norm, ""); err != nil {
			return nil, err
		}
	}

	ref := &Reference{db: db, name: norm, kind: Symbolic, target: normTarget}
	if err := db.looseWrite(ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// SetOID points a direct reference at a new object and rewrites its loose
// file. The packed flag is not cleared: the new loose file simply shadows
// any packed copy of the same name.
func (r *Reference) SetOID(id object.OID) error {
	if r.kind != Direct {
		return fmt.Errorf("set reference %q: not a direct reference", r.name)
	}
	if !r.db.odb.Has(id) {
		return fmt.Errorf("set reference %q: object %s: %w", r.name, id, ErrInvalidTarget)
	}
	r.oid = id
	return r.db.looseWrite(r)
}

// SetTarget repoints a symbolic reference and rewrites its loose file.
func (r *Reference) SetTarget(target string) error {
	if r.kind != Symbolic {
		return fmt.Errorf("set reference %q: not a symbolic reference", r.name)
	}
	norm, err := Normalize(target)
	if err != nil {
		return fmt.Errorf("set reference %q: target %q: %w", r.name, target, ErrInvalidTarget)
	}
	r.target = norm
	return r.db.looseWrite(r)
}

// Delete removes the reference from whichever store holds it. Deleting a
// loose reference also drops a packed entry of the same name, so the
// stale packed copy cannot resurface on the next lookup.
func (db *DB) Delete(ref *Reference) error {
	if ref.packed {
		return db.deletePacked(ref.name)
	}

	path := db.refPath(ref.name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete reference %q: %w", ref.name, err)
	}

	if err := db.packedLoad(); err != nil {
		return err
	}
	if _, ok := db.cache.entries[ref.name]; ok {
		return db.deletePacked(ref.name)
	}
	return nil
}

// deletePacked removes one entry from the packed store and rewrites the
// packed-refs file. Peels of the surviving entries are left untouched.
func (db *DB) deletePacked(name string) error {
	if err := db.packedLoad(); err != nil {
		return err
	}
	if _, ok := db.cache.entries[name]; !ok {
		// The entry vanished between the handle's read and now.
		return fmt.Errorf("delete reference %q: %w", name, ErrNotFound)
	}
	delete(db.cache.entries, name)
	if err := db.packedWrite(); err != nil {
		db.cache.clear()
		return err
	}
	return nil
}

// Rename moves a reference to a new name, updating a symbolic HEAD that
// pointed at the old name and moving the reflog file along. On a failed
// write of the new reference the old one is restored.
func (db *DB) Rename(ref *Reference, newName string, force bool) error {
	var norm string
	var err error
	if ref.kind == Direct {
		norm, err = NormalizeOID(newName)
	} else {
		norm, err = Normalize(newName)
	}
	if err != nil {
		return err
	}

	if !force {
		if err := db.checkAvailable(norm, ref.name); err != nil {
			return fmt.Errorf("rename %q: %w", ref.name, err)
		}
	}

	old := *ref

	if err := db.Delete(ref); err != nil {
		return err
	}

	// A directory of deeper refs may sit where the new file goes; the
	// availability check already proved it holds no live refs.
	newPath := db.refPath(norm)
	if fsutil.IsDir(newPath) {
		if err := fsutil.RemoveAll(newPath); err != nil {
			return fmt.Errorf("rename %q to %q: %w", old.name, norm, err)
		}
	}

	next := &Reference{db: db, name: norm, kind: old.kind, oid: old.oid, target: old.target}
	if err := db.looseWrite(next); err != nil {
		back := old
		back.packed = false
		if rbErr := db.looseWrite(&back); rbErr != nil {
			return fmt.Errorf("rename %q to %q: %v (rollback failed: %w)", old.name, norm, err, rbErr)
		}
		return fmt.Errorf("rename %q to %q: %w", old.name, norm, err)
	}

	// Keep a symbolic HEAD pointing at the moved reference.
	if head, lerr := db.Lookup(headFile); lerr == nil && head.kind == Symbolic && head.target == old.name {
		if err := head.SetTarget(norm); err != nil {
			return fmt.Errorf("rename %q to %q: update HEAD: %w", old.name, norm, err)
		}
	}

	if db.logs != nil {
		if err := db.logs.RenameLog(old.name, norm); err != nil {
			return fmt.Errorf("rename %q to %q: reflog: %w", old.name, norm, err)
		}
	}

	ref.name = norm
	ref.mtime = next.mtime
	ref.packed = false
	return nil
}

// Resolve follows a symbolic chain to a direct reference, re-reading each
// link so external changes are picked up. Chains longer than
// MaxNestingLevel, cycles included, report ErrTooNested.
func (db *DB) Resolve(ref *Reference) (*Reference, error) {
	if ref.kind == Direct {
		return db.Lookup(ref.name)
	}

	cur := ref
	for i := 0; i < MaxNestingLevel; i++ {
		next, err := db.Lookup(cur.target)
		if err != nil {
			return nil, err
		}
		if next.kind == Direct {
			return next, nil
		}
		cur = next
	}
	return nil, fmt.Errorf("resolve %q: %w", ref.name, ErrTooNested)
}

// checkAvailable reports ErrExists when an existing reference other than
// exclude occupies newName or conflicts with it on a path-prefix boundary:
// refs/heads/foo cannot coexist with refs/heads/foo/bar.
func (db *DB) checkAvailable(newName, exclude string) error {
	var conflict string
	err := db.Foreach(IterAll, func(name string) error {
		if name == exclude {
			return nil
		}
		if prefixConflict(name, newName) {
			conflict = name
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return err
	}
	if conflict != "" {
		return fmt.Errorf("name %q conflicts with %q: %w", newName, conflict, ErrExists)
	}
	return nil
}

// prefixConflict reports whether two reference names collide: they are
// equal, or one is a path prefix of the other at a '/' boundary.
func prefixConflict(a, b string) bool {
	if len(a) == len(b) {
		return a == b
	}
	if len(a) < len(b) {
		a, b = b, a
	}
	return strings.HasPrefix(a, b) && a[len(b)] == '/'
}
