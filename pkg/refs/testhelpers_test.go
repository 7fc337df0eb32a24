package refs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/odvcencio/reft/pkg/object"
)

// fakeODB is a minimal in-memory object database for exercising target
// verification and tag peeling.
type fakeODB struct {
	types   map[object.OID]object.Type
	targets map[object.OID]object.OID
}

func newFakeODB() *fakeODB {
	return &fakeODB{
		types:   make(map[object.OID]object.Type),
		targets: make(map[object.OID]object.OID),
	}
}

func (f *fakeODB) addCommit(id object.OID) {
	f.types[id] = object.TypeCommit
}

func (f *fakeODB) addTag(id, target object.OID) {
	f.types[id] = object.TypeTag
	f.targets[id] = target
}

func (f *fakeODB) Has(id object.OID) bool {
	_, ok := f.types[id]
	return ok
}

func (f *fakeODB) Type(id object.OID) (object.Type, error) {
	t, ok := f.types[id]
	if !ok {
		return "", fmt.Errorf("object %s: %w", id, object.ErrNotExist)
	}
	return t, nil
}

func (f *fakeODB) TagTarget(id object.OID) (object.OID, error) {
	target, ok := f.targets[id]
	if !ok {
		return object.OID{}, fmt.Errorf("object %s is not a tag", id)
	}
	return target, nil
}

func newTestDB(t *testing.T) (*DB, *fakeODB) {
	t.Helper()
	odb := newFakeODB()
	return New(t.TempDir(), odb, nil), odb
}

// seqOID builds an OID whose hex form repeats the given hex digit.
func seqOID(t *testing.T, digit string) object.OID {
	t.Helper()
	id, err := object.ParseOID(strings.Repeat(digit, object.OIDHexSize))
	if err != nil {
		t.Fatalf("ParseOID: %v", err)
	}
	return id
}

// writeLoose drops raw bytes at the ref path, bypassing the API.
func writeLoose(t *testing.T, db *DB, name, content string) {
	t.Helper()
	path := db.refPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// writePacked drops raw bytes into the packed-refs file, bypassing the
// writer, and bumps the mtime so the cache reloads.
func writePacked(t *testing.T, db *DB, content string) {
	t.Helper()
	path := db.packedPath()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write packed-refs: %v", err)
	}
	bumpMtime(t, path)
}

// mtimeBump hands out strictly increasing timestamps so cache freshness
// checks see every rewrite, even within one filesystem timer tick.
var mtimeBump int64

func bumpMtime(t *testing.T, path string) {
	t.Helper()
	mtimeBump++
	when := time.Now().Add(time.Duration(mtimeBump) * time.Second)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func mustCreateDirect(t *testing.T, db *DB, odb *fakeODB, name string, id object.OID) *Reference {
	t.Helper()
	odb.addCommit(id)
	ref, err := db.CreateDirect(name, id, false)
	if err != nil {
		t.Fatalf("CreateDirect(%s): %v", name, err)
	}
	return ref
}
