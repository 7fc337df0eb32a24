package refs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IterFlags selects which references Foreach visits.
type IterFlags uint

const (
	// IterOID visits direct references.
	IterOID IterFlags = 1 << iota
	// IterSymbolic visits symbolic references.
	IterSymbolic
	// IterPacked visits packed references and deduplicates loose files
	// against the packed cache.
	IterPacked

	// IterAll visits everything.
	IterAll = IterOID | IterSymbolic | IterPacked
)

// Foreach invokes cb with the name of every matching reference: the packed
// entries first (when requested), then the loose tree under refs/. A loose
// file whose name is already packed is emitted once. Returning fs.SkipAll
// from cb stops the iteration without error; any other error aborts it.
func (db *DB) Foreach(flags IterFlags, cb func(name string) error) error {
	if flags&IterPacked != 0 {
		if err := db.packedLoad(); err != nil {
			return err
		}
		names := make([]string, 0, len(db.cache.entries))
		for name := range db.cache.entries {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := cb(name); err != nil {
				if errors.Is(err, fs.SkipAll) {
					return nil
				}
				return err
			}
		}
	}

	wantOID := flags&IterOID != 0
	wantSymbolic := flags&IterSymbolic != 0

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

		if flags&IterPacked != 0 {
			if _, ok := db.cache.entries[name]; ok {
				return nil
			}
		}

		// Only sniff the file when the filter can actually exclude a kind.
		if !(wantOID && wantSymbolic) {
			switch looseKind(path) {
			case Direct:
				if !wantOID {
					return nil
				}
			case Symbolic:
				if !wantSymbolic {
					return nil
				}
			default:
				return nil
			}
		}

		return cb(name)
	})
	if err != nil {
		return fmt.Errorf("iterate references: %w", err)
	}
	return nil
}

// List accumulates the names of every reference matching flags.
func (db *DB) List(flags IterFlags) ([]string, error) {
	var names []string
	err := db.Foreach(flags, func(name string) error {
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
