package refs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/odvcencio/reft/pkg/fsutil"
	"github.com/odvcencio/reft/pkg/object"
)

// symrefPrefix marks the content of a symbolic reference file.
const symrefPrefix = "ref: "

// looseFileMode is the permission set for loose reference files.
const looseFileMode = 0o644

// refPath maps a normalized reference name to its file below the
// repository metadata directory; the name already encodes the path.
func (db *DB) refPath(name string) string {
	return filepath.Join(db.dir, filepath.FromSlash(name))
}

// parseLooseOID parses a direct loose file: 40 hex characters followed by
// a newline. A carriage return before the newline is tolerated.
func parseLooseOID(path string, data []byte) (object.OID, error) {
	if len(data) < object.OIDHexSize+1 {
		return object.OID{}, corruptLoose(path, "reference too short")
	}
	id, err := object.ParseOID(string(data[:object.OIDHexSize]))
	if err != nil {
		return object.OID{}, corruptLoose(path, "not a valid object id")
	}
	rest := data[object.OIDHexSize:]
	if rest[0] == '\r' {
		rest = rest[1:]
	}
	if len(rest) == 0 || rest[0] != '\n' {
		return object.OID{}, corruptLoose(path, "missing EOL")
	}
	return id, nil
}

// parseLooseSymbolic parses a symbolic loose file: the "ref: " prefix,
// the target name, and a newline.
func parseLooseSymbolic(path string, data []byte) (string, error) {
	if len(data) < len(symrefPrefix)+1 {
		return "", corruptLoose(path, "reference too short")
	}
	target := data[len(symrefPrefix):]
	eol := bytes.IndexByte(target, '\n')
	if eol < 0 {
		return "", corruptLoose(path, "missing EOL")
	}
	target = target[:eol]
	if len(target) > 0 && target[len(target)-1] == '\r' {
		target = target[:len(target)-1]
	}
	return string(target), nil
}

// looseLookup populates ref from its loose file. When the file's mtime
// matches the handle's recorded mtime the in-memory target is kept.
// A missing file reports ErrNotFound so lookup can fall through to the
// packed store.
func (db *DB) looseLookup(ref *Reference) error {
	path := db.refPath(ref.name)
	if fsutil.IsDir(path) {
		return fmt.Errorf("reference %q: %w", ref.name, ErrNotFound)
	}

	data, mtime, updated, err := fsutil.ReadFileUpdated(path, ref.mtime)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("reference %q: %w", ref.name, ErrNotFound)
		}
		return fmt.Errorf("reference %q: %w", ref.name, err)
	}
	if updated {
		if bytes.HasPrefix(data, []byte(symrefPrefix)) {
			target, err := parseLooseSymbolic(path, data)
			if err != nil {
				return err
			}
			ref.kind = Symbolic
			ref.target = target
			ref.oid = object.OID{}
		} else {
			id, err := parseLooseOID(path, data)
			if err != nil {
				return err
			}
			ref.kind = Direct
			ref.oid = id
			ref.target = ""
		}
	}
	ref.packed = false
	ref.mtime = mtime
	return nil
}

// looseWrite serializes ref to its loose file via the atomic
// lock-and-rename writer and refreshes the handle's mtime from a
// post-write stat.
func (db *DB) looseWrite(ref *Reference) error {
	path := db.refPath(ref.name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write reference %q: mkdir: %w", ref.name, err)
	}

	// A vacated directory may still sit at the path (all refs beneath it
	// deleted); clear it so the rename can land. Removal fails while the
	// directory still holds live refs, which the availability checks
	// report before we get here.
	if fsutil.IsDir(path) {
		os.Remove(path)
	}

	var content string
	switch ref.kind {
	case Direct:
		content = ref.oid.String() + "\n"
	case Symbolic:
		content = symrefPrefix + ref.target + "\n"
	default:
		return fmt.Errorf("write reference %q: invalid reference kind", ref.name)
	}

	file, err := fsutil.NewAtomicFile(path, looseFileMode)
	if err != nil {
		return fmt.Errorf("write reference %q: %w", ref.name, err)
	}
	if _, err := file.WriteString(content); err != nil {
		file.Cleanup()
		return fmt.Errorf("write reference %q: %w", ref.name, err)
	}
	if err := file.Commit(); err != nil {
		return fmt.Errorf("write reference %q: %w", ref.name, err)
	}

	if mtime, err := fsutil.Mtime(path); err == nil {
		ref.mtime = mtime
	}
	return nil
}

// looseKind sniffs the kind of a loose reference file from its first
// bytes without paying for a full parse. A missing or unreadable file
// reports Invalid.
func looseKind(path string) Kind {
	data, err := os.ReadFile(path)
	if err != nil {
		return Invalid
	}
	if bytes.HasPrefix(data, []byte(symrefPrefix)) {
		return Symbolic
	}
	return Direct
}

// looseToPacked reads the loose file for name and converts it into a
// packed entry flagged was-loose. Symbolic references are not packable
// and report (nil, nil); parse failures are returned so pack-all can
// abort.
func (db *DB) looseToPacked(name string) (*packEntry, error) {
	path := db.refPath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("reference %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("reference %q: %w", name, err)
	}
	if bytes.HasPrefix(data, []byte(symrefPrefix)) {
		return nil, nil
	}
	id, err := parseLooseOID(path, data)
	if err != nil {
		return nil, err
	}
	return &packEntry{name: name, oid: id, wasLoose: true}, nil
}
