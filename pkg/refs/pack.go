package refs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/reft/pkg/object"
)

// maxTagPeelDepth bounds the tag chain walked while computing peels, so a
// corrupt cyclic chain cannot spin forever.
const maxTagPeelDepth = 10

// PackAll folds every loose direct reference into the packed-refs file and
// removes the now-redundant loose files. The packed file is committed
// before any loose file is unlinked: a crash mid-sweep leaves both
// representations live and a re-run completes the cleanup, while a crash
// before the commit leaves everything untouched.
func (db *DB) PackAll() error {
	if err := db.packedLoad(); err != nil {
		return err
	}
	if err := db.foldLoose(); err != nil {
		// The cache holds folded entries the file never got; drop it so
		// the next load re-reads the committed state.
		db.cache.clear()
		return err
	}
	if err := db.peelTags(); err != nil {
		db.cache.clear()
		return err
	}
	if err := db.packedWrite(); err != nil {
		db.cache.clear()
		return err
	}
	return db.removePackedLoose()
}

// foldLoose walks the loose tree and inserts every direct reference into
// the cache flagged was-loose, replacing any packed entry of the same
// name. Symbolic references are not packable and stay on disk; a parse
// failure on any loose reference aborts the pack.
func (db *DB) foldLoose() error {
	root := filepath.Join(db.dir, "refs")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), lockSuffix) {
			return nil
		}

		rel, err := filepath.Rel(db.dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		entry, err := db.looseToPacked(name)
		if err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		db.cache.entries[name] = entry
		return nil
	})
	if err != nil {
		return fmt.Errorf("pack references: %w", err)
	}
	return nil
}

// peelTags fills in the peel OID for tag entries that lack one, following
// the tag chain to the first non-tag object. Entries pointing straight at
// a non-tag object keep the flag unset.
func (db *DB) peelTags() error {
	for _, e := range db.cache.entries {
		if e.hasPeel || !strings.HasPrefix(e.name, tagsDir) {
			continue
		}

		id := e.oid
		for depth := 0; ; depth++ {
			typ, err := db.odb.Type(id)
			if err != nil {
				return fmt.Errorf("pack references: peel %q: %w", e.name, err)
			}
			if typ != object.TypeTag {
				if depth > 0 {
					e.peel = id
					e.hasPeel = true
				}
				break
			}
			if depth == maxTagPeelDepth {
				return fmt.Errorf("pack references: peel %q: tag chain too deep", e.name)
			}
			id, err = db.odb.TagTarget(id)
			if err != nil {
				return fmt.Errorf("pack references: peel %q: %w", e.name, err)
			}
		}
	}
	return nil
}

// removePackedLoose unlinks the loose files of entries folded in by the
// current pack. Unlink failures are recorded and the sweep continues; the
// first failure is reported once every file has been visited.
func (db *DB) removePackedLoose() error {
	var firstErr error
	for _, e := range db.cache.entries {
		if !e.wasLoose {
			continue
		}
		if err := os.Remove(db.refPath(e.name)); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove loose reference %q: %w", e.name, err)
			}
			continue
		}
		e.wasLoose = false
	}
	return firstErr
}
