package refs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

// Test 1: create, read, and resolve HEAD through a symbolic chain.
func TestRefs_CreateReadResolveHEAD(t *testing.T) {
	db, odb := newTestDB(t)
	id := seqOID(t, "a")
	mustCreateDirect(t, db, odb, "refs/heads/main", id)

	if _, err := db.CreateSymbolic("HEAD", "refs/heads/main", false); err != nil {
		t.Fatalf("CreateSymbolic(HEAD): %v", err)
	}

	head, err := db.Lookup("HEAD")
	if err != nil {
		t.Fatalf("Lookup(HEAD): %v", err)
	}
	resolved, err := db.Resolve(head)
	if err != nil {
		t.Fatalf("Resolve(HEAD): %v", err)
	}
	if resolved.Kind() != Direct {
		t.Fatalf("resolved kind = %v, want direct", resolved.Kind())
	}
	if resolved.OID() != id {
		t.Errorf("resolved OID = %s, want %s", resolved.OID(), id)
	}

	data, err := os.ReadFile(db.refPath("HEAD"))
	if err != nil {
		t.Fatalf("read HEAD: %v", err)
	}
	if want := "ref: refs/heads/main\n"; string(data) != want {
		t.Errorf("HEAD = %q, want %q", data, want)
	}
}

// Test 2: a loose ref shadows a packed ref of the same name; removing the
// loose file exposes the packed one again.
func TestRefs_Shadowing(t *testing.T) {
	db, _ := newTestDB(t)
	packedID := seqOID(t, "1")
	looseID := seqOID(t, "2")

	writePacked(t, db, packedID.String()+" refs/heads/main\n")
	writeLoose(t, db, "refs/heads/main", looseID.String()+"\n")

	ref, err := db.Lookup("refs/heads/main")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ref.OID() != looseID {
		t.Errorf("shadowed OID = %s, want loose %s", ref.OID(), looseID)
	}
	if ref.IsPacked() {
		t.Errorf("IsPacked = true, want false")
	}

	// Remove the loose file out from under the backend.
	if err := os.Remove(db.refPath("refs/heads/main")); err != nil {
		t.Fatalf("remove loose: %v", err)
	}

	ref, err = db.Lookup("refs/heads/main")
	if err != nil {
		t.Fatalf("Lookup after unshadow: %v", err)
	}
	if ref.OID() != packedID {
		t.Errorf("unshadowed OID = %s, want packed %s", ref.OID(), packedID)
	}
	if !ref.IsPacked() {
		t.Errorf("IsPacked = false, want true")
	}
}

// Test 3: deleting a loose ref also drops the packed entry of the same
// name so it cannot resurface.
func TestRefs_DeleteDropsPackedTwin(t *testing.T) {
	db, _ := newTestDB(t)
	writePacked(t, db, seqOID(t, "1").String()+" refs/heads/main\n")
	writeLoose(t, db, "refs/heads/main", seqOID(t, "2").String()+"\n")

	ref, err := db.Lookup("refs/heads/main")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if err := db.Delete(ref); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := db.Lookup("refs/heads/main"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup after delete = %v, want ErrNotFound", err)
	}
}

// Test 4: deleting a packed-only ref rewrites packed-refs without it.
func TestRefs_DeletePacked(t *testing.T) {
	db, _ := newTestDB(t)
	writePacked(t, db,
		seqOID(t, "1").String()+" refs/heads/dev\n"+
			seqOID(t, "2").String()+" refs/heads/main\n")

	ref, err := db.Lookup("refs/heads/dev")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ref.IsPacked() {
		t.Fatalf("IsPacked = false, want true")
	}
	if err := db.Delete(ref); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := db.Lookup("refs/heads/dev"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(dev) = %v, want ErrNotFound", err)
	}
	if _, err := db.Lookup("refs/heads/main"); err != nil {
		t.Errorf("Lookup(main) after deleting dev: %v", err)
	}

	data, err := os.ReadFile(db.packedPath())
	if err != nil {
		t.Fatalf("read packed-refs: %v", err)
	}
	if strings.Contains(string(data), "refs/heads/dev") {
		t.Errorf("packed-refs still contains deleted entry:\n%s", data)
	}
}

// Test 5: resolution follows chains up to MaxNestingLevel and rejects
// longer chains and cycles.
func TestRefs_ResolveBounds(t *testing.T) {
	db, odb := newTestDB(t)
	id := seqOID(t, "d")
	mustCreateDirect(t, db, odb, "refs/heads/final", id)

	// s5 -> final, s4 -> s5, ... s1 -> s2: five symbolic hops.
	if _, err := db.CreateSymbolic("refs/sym/s5", "refs/heads/final", false); err != nil {
		t.Fatalf("CreateSymbolic(s5): %v", err)
	}
	for i := 4; i >= 1; i-- {
		name := fmt.Sprintf("refs/sym/s%d", i)
		target := fmt.Sprintf("refs/sym/s%d", i+1)
		if _, err := db.CreateSymbolic(name, target, false); err != nil {
			t.Fatalf("CreateSymbolic(%s): %v", name, err)
		}
	}

	ref, err := db.Lookup("refs/sym/s1")
	if err != nil {
		t.Fatalf("Lookup(s1): %v", err)
	}
	resolved, err := db.Resolve(ref)
	if err != nil {
		t.Fatalf("Resolve(s1): %v", err)
	}
	if resolved.OID() != id {
		t.Errorf("resolved OID = %s, want %s", resolved.OID(), id)
	}

	// One more hop pushes the chain over the bound.
	if _, err := db.CreateSymbolic("refs/sym/s0", "refs/sym/s1", false); err != nil {
		t.Fatalf("CreateSymbolic(s0): %v", err)
	}
	s0, err := db.Lookup("refs/sym/s0")
	if err != nil {
		t.Fatalf("Lookup(s0): %v", err)
	}
	if _, err := db.Resolve(s0); !errors.Is(err, ErrTooNested) {
		t.Errorf("Resolve(s0) = %v, want ErrTooNested", err)
	}

	// A two-ref cycle never terminates and must also be bounded.
	if _, err := db.CreateSymbolic("refs/sym/a", "refs/sym/b", false); err != nil {
		t.Fatalf("CreateSymbolic(a): %v", err)
	}
	if _, err := db.CreateSymbolic("refs/sym/b", "refs/sym/a", false); err != nil {
		t.Fatalf("CreateSymbolic(b): %v", err)
	}
	a, err := db.Lookup("refs/sym/a")
	if err != nil {
		t.Fatalf("Lookup(a): %v", err)
	}
	if _, err := db.Resolve(a); !errors.Is(err, ErrTooNested) {
		t.Errorf("Resolve(cycle) = %v, want ErrTooNested", err)
	}
}

// Test 6: rename moves the ref and retargets a symbolic HEAD.
func TestRefs_RenameWithHEADUpdate(t *testing.T) {
	db, odb := newTestDB(t)
	id := seqOID(t, "a")
	ref := mustCreateDirect(t, db, odb, "refs/heads/main", id)
	if _, err := db.CreateSymbolic("HEAD", "refs/heads/main", false); err != nil {
		t.Fatalf("CreateSymbolic(HEAD): %v", err)
	}

	if err := db.Rename(ref, "refs/heads/trunk", false); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if ref.Name() != "refs/heads/trunk" {
		t.Errorf("handle name = %q, want refs/heads/trunk", ref.Name())
	}

	if _, err := db.Lookup("refs/heads/main"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(main) = %v, want ErrNotFound", err)
	}
	moved, err := db.Lookup("refs/heads/trunk")
	if err != nil {
		t.Fatalf("Lookup(trunk): %v", err)
	}
	if moved.OID() != id {
		t.Errorf("trunk OID = %s, want %s", moved.OID(), id)
	}

	data, err := os.ReadFile(db.refPath("HEAD"))
	if err != nil {
		t.Fatalf("read HEAD: %v", err)
	}
	if want := "ref: refs/heads/trunk\n"; string(data) != want {
		t.Errorf("HEAD = %q, want %q", data, want)
	}
}

// Test 7: a failed write of the new name rolls the old ref back.
func TestRefs_RenameRollback(t *testing.T) {
	db, odb := newTestDB(t)
	blocker := seqOID(t, "b")
	mustCreateDirect(t, db, odb, "refs/heads/sub", blocker)
	id := seqOID(t, "a")
	ref := mustCreateDirect(t, db, odb, "refs/heads/x", id)

	// refs/heads/sub is a file, so creating refs/heads/sub/y cannot make
	// its parent directory. force skips the availability check that would
	// otherwise catch the conflict up front.
	err := db.Rename(ref, "refs/heads/sub/y", true)
	if err == nil {
		t.Fatalf("Rename into blocked path succeeded, want error")
	}

	back, lerr := db.Lookup("refs/heads/x")
	if lerr != nil {
		t.Fatalf("Lookup(x) after rollback: %v", lerr)
	}
	if back.OID() != id {
		t.Errorf("rolled-back OID = %s, want %s", back.OID(), id)
	}
}

// Test 8: a name that prefix-conflicts with an existing ref is rejected.
func TestRefs_PrefixAvailability(t *testing.T) {
	db, odb := newTestDB(t)
	deep := mustCreateDirect(t, db, odb, "refs/heads/a/b", seqOID(t, "1"))

	id := seqOID(t, "2")
	odb.addCommit(id)
	if _, err := db.CreateDirect("refs/heads/a", id, false); !errors.Is(err, ErrExists) {
		t.Fatalf("CreateDirect(a) = %v, want ErrExists", err)
	}

	// The other direction conflicts too.
	if _, err := db.CreateDirect("refs/heads/a/b/c", id, false); !errors.Is(err, ErrExists) {
		t.Fatalf("CreateDirect(a/b/c) = %v, want ErrExists", err)
	}

	if err := db.Delete(deep); err != nil {
		t.Fatalf("Delete(a/b): %v", err)
	}
	if _, err := db.CreateDirect("refs/heads/a", id, true); err != nil {
		t.Fatalf("CreateDirect(a) after delete: %v", err)
	}
}

// Test 9: creation without force refuses occupied names; with force it
// overwrites.
func TestRefs_CreateExistsAndForce(t *testing.T) {
	db, odb := newTestDB(t)
	first := seqOID(t, "1")
	mustCreateDirect(t, db, odb, "refs/heads/main", first)

	second := seqOID(t, "2")
	odb.addCommit(second)
	if _, err := db.CreateDirect("refs/heads/main", second, false); !errors.Is(err, ErrExists) {
		t.Fatalf("CreateDirect = %v, want ErrExists", err)
	}
	if _, err := db.CreateDirect("refs/heads/main", second, true); err != nil {
		t.Fatalf("CreateDirect(force): %v", err)
	}

	ref, err := db.Lookup("refs/heads/main")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ref.OID() != second {
		t.Errorf("OID = %s, want %s", ref.OID(), second)
	}
}

// Test 10: targets must exist in the object database, and symbolic
// targets must normalize.
func TestRefs_InvalidTargets(t *testing.T) {
	db, odb := newTestDB(t)
	missing := seqOID(t, "e")
	if _, err := db.CreateDirect("refs/heads/x", missing, false); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("CreateDirect(missing) = %v, want ErrInvalidTarget", err)
	}

	if _, err := db.CreateSymbolic("HEAD", "refs/heads/bad..name", false); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("CreateSymbolic(bad target) = %v, want ErrInvalidTarget", err)
	}

	id := seqOID(t, "1")
	ref := mustCreateDirect(t, db, odb, "refs/heads/main", id)
	if err := ref.SetOID(missing); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("SetOID(missing) = %v, want ErrInvalidTarget", err)
	}
}

// Test 11: updates through handles require the matching kind.
func TestRefs_SetKindMismatch(t *testing.T) {
	db, odb := newTestDB(t)
	id := seqOID(t, "1")
	direct := mustCreateDirect(t, db, odb, "refs/heads/main", id)
	sym, err := db.CreateSymbolic("HEAD", "refs/heads/main", false)
	if err != nil {
		t.Fatalf("CreateSymbolic: %v", err)
	}

	if err := direct.SetTarget("refs/heads/other"); err == nil {
		t.Errorf("SetTarget on direct ref succeeded, want error")
	}
	if err := sym.SetOID(id); err == nil {
		t.Errorf("SetOID on symbolic ref succeeded, want error")
	}
}

// Test 12: Exists consults both stores.
func TestRefs_Exists(t *testing.T) {
	db, odb := newTestDB(t)
	mustCreateDirect(t, db, odb, "refs/heads/loose", seqOID(t, "1"))
	writePacked(t, db, seqOID(t, "2").String()+" refs/heads/packed\n")

	for _, name := range []string{"refs/heads/loose", "refs/heads/packed"} {
		ok, err := db.Exists(name)
		if err != nil {
			t.Fatalf("Exists(%s): %v", name, err)
		}
		if !ok {
			t.Errorf("Exists(%s) = false, want true", name)
		}
	}

	ok, err := db.Exists("refs/heads/absent")
	if err != nil {
		t.Fatalf("Exists(absent): %v", err)
	}
	if ok {
		t.Errorf("Exists(absent) = true, want false")
	}
}

// Test 13: SetOID leaves the new loose file shadowing the packed entry.
func TestRefs_SetOIDShadowsPacked(t *testing.T) {
	db, odb := newTestDB(t)
	writePacked(t, db, seqOID(t, "1").String()+" refs/heads/main\n")

	ref, err := db.Lookup("refs/heads/main")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	next := seqOID(t, "2")
	odb.addCommit(next)
	if err := ref.SetOID(next); err != nil {
		t.Fatalf("SetOID: %v", err)
	}

	again, err := db.Lookup("refs/heads/main")
	if err != nil {
		t.Fatalf("Lookup after SetOID: %v", err)
	}
	if again.OID() != next {
		t.Errorf("OID = %s, want %s", again.OID(), next)
	}
	if again.IsPacked() {
		t.Errorf("IsPacked = true, want loose shadow")
	}
}
