package refs

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/odvcencio/reft/pkg/fsutil"
	"github.com/odvcencio/reft/pkg/object"
)

const (
	// packedRefsFile is the consolidated reference file at the repository
	// metadata root.
	packedRefsFile = "packed-refs"

	// packedHeader is the single comment line the writer emits. The
	// trailing space is part of the historical token.
	packedHeader = "# pack-refs with: peeled "

	// packedFileMode is the permission set for the packed-refs file.
	packedFileMode = 0o644
)

// packEntry is one cached packed reference. The peel OID is set only for
// annotated tags; wasLoose marks entries folded in from loose files by
// pack-all, whose files must be swept after the packed commit.
type packEntry struct {
	name     string
	oid      object.OID
	peel     object.OID
	hasPeel  bool
	wasLoose bool
}

// packedCache is the in-memory view of the packed-refs file, keyed by
// reference name, with the file mtime recorded at the last successful
// parse. The map is replaced atomically on refresh, never mutated while
// stale.
type packedCache struct {
	entries map[string]*packEntry
	mtime   time.Time
	loaded  bool
}

func (c *packedCache) clear() {
	c.entries = make(map[string]*packEntry)
	c.mtime = time.Time{}
	c.loaded = true
}

func (db *DB) packedPath() string {
	return db.refPath(packedRefsFile)
}

// packedLoad brings the cache up to date with the packed-refs file. A
// missing file clears the cache; an unchanged mtime keeps the current
// map; a parse failure clears the cache and reports
// ErrPackedRefsCorrupt.
func (db *DB) packedLoad() error {
	path := db.packedPath()

	data, mtime, updated, err := fsutil.ReadFileUpdated(path, db.cache.mtime)
	if err != nil {
		if os.IsNotExist(err) {
			db.cache.clear()
			return nil
		}
		return fmt.Errorf("load %s: %w", packedRefsFile, err)
	}
	if db.cache.loaded && !updated {
		return nil
	}

	entries, err := parsePackedRefs(path, data)
	if err != nil {
		db.cache.clear()
		return err
	}

	db.cache.entries = entries
	db.cache.mtime = mtime
	db.cache.loaded = true
	return nil
}

// parsePackedRefs parses the full content of a packed-refs file into a
// fresh entry map. Any malformation fails the whole parse.
func parsePackedRefs(path string, data []byte) (map[string]*packEntry, error) {
	entries := make(map[string]*packEntry)
	pos := 0

	// Leading comment lines.
	for pos < len(data) && data[pos] == '#' {
		eol := bytes.IndexByte(data[pos:], '\n')
		if eol < 0 {
			return nil, corruptPacked(path, "unterminated comment line")
		}
		pos += eol + 1
	}

	var lastTag *packEntry
	for pos < len(data) {
		if data[pos] == '^' {
			var err error
			pos, err = parsePackedPeel(path, data, pos, lastTag)
			if err != nil {
				return nil, err
			}
			lastTag = nil
			continue
		}

		entry, next, err := parsePackedEntry(path, data, pos)
		if err != nil {
			return nil, err
		}
		entries[entry.name] = entry
		pos = next
		lastTag = entry
	}

	return entries, nil
}

// parsePackedEntry parses one "<oid> <name>\n" line starting at pos.
func parsePackedEntry(path string, data []byte, pos int) (*packEntry, int, error) {
	if pos+object.OIDHexSize+1 > len(data) {
		return nil, 0, corruptPacked(path, "truncated reference line")
	}
	if data[pos+object.OIDHexSize] != ' ' {
		return nil, 0, corruptPacked(path, "missing space after object id")
	}
	id, err := object.ParseOID(string(data[pos : pos+object.OIDHexSize]))
	if err != nil {
		return nil, 0, corruptPacked(path, "not a valid object id")
	}

	nameStart := pos + object.OIDHexSize + 1
	eol := bytes.IndexByte(data[nameStart:], '\n')
	if eol < 0 {
		return nil, 0, corruptPacked(path, "missing EOL after reference name")
	}
	nameEnd := nameStart + eol
	next := nameEnd + 1
	if nameEnd > nameStart && data[nameEnd-1] == '\r' {
		nameEnd--
	}
	if nameEnd == nameStart {
		return nil, 0, corruptPacked(path, "empty reference name")
	}

	return &packEntry{name: string(data[nameStart:nameEnd]), oid: id}, next, nil
}

// parsePackedPeel parses a "^<oid>\n" line starting at pos into the
// immediately preceding tag entry. A peel line is legal only after a
// reference under refs/tags/.
func parsePackedPeel(path string, data []byte, pos int, tag *packEntry) (int, error) {
	if tag == nil {
		return 0, corruptPacked(path, "peel line without a preceding reference")
	}
	if !strings.HasPrefix(tag.name, tagsDir) {
		return 0, corruptPacked(path, "peel line after a non-tag reference")
	}

	pos++ // consume '^'
	if pos+object.OIDHexSize > len(data) {
		return 0, corruptPacked(path, "truncated peel line")
	}
	id, err := object.ParseOID(string(data[pos : pos+object.OIDHexSize]))
	if err != nil {
		return 0, corruptPacked(path, "peel is not a valid object id")
	}
	pos += object.OIDHexSize
	if pos < len(data) && data[pos] == '\r' {
		pos++
	}
	if pos >= len(data) || data[pos] != '\n' {
		return 0, corruptPacked(path, "missing EOL after peel line")
	}

	tag.peel = id
	tag.hasPeel = true
	return pos + 1, nil
}

// packedSerialize renders the cache in the on-disk format: the header,
// then entries sorted by name under byte-wise comparison, each optionally
// followed by its peel line. Serialization is deterministic, so two
// writes of the same cache are byte-identical.
func packedSerialize(entries map[string]*packEntry) []byte {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString(packedHeader)
	buf.WriteByte('\n')
	for _, name := range names {
		e := entries[name]
		if e.hasPeel {
			fmt.Fprintf(&buf, "%s %s\n^%s\n", e.oid, e.name, e.peel)
		} else {
			fmt.Fprintf(&buf, "%s %s\n", e.oid, e.name)
		}
	}
	return buf.Bytes()
}

// packedWrite commits the current cache to disk atomically and refreshes
// the cache mtime from the new file.
func (db *DB) packedWrite() error {
	path := db.packedPath()

	file, err := fsutil.NewAtomicFile(path, packedFileMode)
	if err != nil {
		return fmt.Errorf("write %s: %w", packedRefsFile, err)
	}
	if _, err := file.Write(packedSerialize(db.cache.entries)); err != nil {
		file.Cleanup()
		return fmt.Errorf("write %s: %w", packedRefsFile, err)
	}
	if err := file.Commit(); err != nil {
		return fmt.Errorf("write %s: %w", packedRefsFile, err)
	}

	if mtime, err := fsutil.Mtime(path); err == nil {
		db.cache.mtime = mtime
	}
	return nil
}

// packedLookup populates ref from the packed cache, refreshing it first.
// A handle that already carries packed state and matches the cache mtime
// is still fresh and left untouched.
func (db *DB) packedLookup(ref *Reference) error {
	if err := db.packedLoad(); err != nil {
		return err
	}

	if ref.packed && ref.mtime.Equal(db.cache.mtime) {
		return nil
	}

	entry, ok := db.cache.entries[ref.name]
	if !ok {
		return fmt.Errorf("reference %q: %w", ref.name, ErrNotFound)
	}

	ref.kind = Direct
	ref.oid = entry.oid
	ref.target = ""
	ref.packed = true
	ref.mtime = db.cache.mtime
	return nil
}
