package object

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ErrNotExist is returned when the store has no object for a given OID.
var ErrNotExist = errors.New("object does not exist")

// maxPeelDepth bounds tag-chain peeling so a corrupt cyclic chain cannot
// spin forever.
const maxPeelDepth = 10

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123... Objects are stored as
// zstd-compressed "type len\0content" envelopes.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory. The objects/
// subdirectory is created lazily on first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// objectPath returns the filesystem path for a given OID.
func (s *Store) objectPath(id OID) string {
	hex := id.String()
	return filepath.Join(s.root, "objects", hex[:2], hex[2:])
}

// Has reports whether the store contains an object with the given OID.
func (s *Store) Has(id OID) bool {
	_, err := os.Stat(s.objectPath(id))
	return err == nil
}

// Write stores an object and returns its content OID. The envelope
// "type len\0content" is zstd-compressed on disk. Writes are atomic: data
// is written to a temp file and then renamed into place.
func (s *Store) Write(objType Type, data []byte) (OID, error) {
	envelope := fmt.Sprintf("%s %d\x00", objType, len(data))
	raw := append([]byte(envelope), data...)

	id := HashObject(objType, data)

	// Fast path: already exists.
	if s.Has(id) {
		return id, nil
	}

	compressed, err := compress(raw)
	if err != nil {
		return OID{}, fmt.Errorf("object write %s: compress: %w", id, err)
	}

	hex := id.String()
	dir := filepath.Join(s.root, "objects", hex[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return OID{}, fmt.Errorf("object write mkdir: %w", err)
	}

	// Atomic write via temp + rename.
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return OID{}, fmt.Errorf("object write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return OID{}, fmt.Errorf("object write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return OID{}, fmt.Errorf("object write close: %w", err)
	}

	if err := os.Rename(tmpName, s.objectPath(id)); err != nil {
		os.Remove(tmpName)
		return OID{}, fmt.Errorf("object write rename: %w", err)
	}

	return id, nil
}

// Read retrieves an object by OID, returning its type and raw content.
func (s *Store) Read(id OID) (Type, []byte, error) {
	compressed, err := os.ReadFile(s.objectPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("object read %s: %w", id, ErrNotExist)
		}
		return "", nil, fmt.Errorf("object read %s: %w", id, err)
	}

	raw, err := decompress(compressed)
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: decompress: %w", id, err)
	}

	// Parse envelope: "type len\0content"
	nulIdx := bytes.IndexByte(raw, 0)
	if nulIdx < 0 {
		return "", nil, fmt.Errorf("object read %s: invalid format (no NUL)", id)
	}
	header := string(raw[:nulIdx])
	content := raw[nulIdx+1:]

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("object read %s: invalid header %q", id, header)
	}
	objType := Type(parts[0])
	length, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: invalid length %q: %w", id, parts[1], err)
	}
	if len(content) != length {
		return "", nil, fmt.Errorf("object read %s: length mismatch (header=%d, actual=%d)", id, length, len(content))
	}

	return objType, content, nil
}

// Type returns the stored type of an object without interpreting its
// content.
func (s *Store) Type(id OID) (Type, error) {
	objType, _, err := s.Read(id)
	return objType, err
}

// TagTarget returns the object a tag points at. The object named by id
// must be a tag.
func (s *Store) TagTarget(id OID) (OID, error) {
	tag, err := s.ReadTag(id)
	if err != nil {
		return OID{}, err
	}
	return tag.TargetOID, nil
}

// Peel resolves a tag chain to the first non-tag object. Non-tag objects
// peel to themselves.
func (s *Store) Peel(id OID) (OID, error) {
	for i := 0; i < maxPeelDepth; i++ {
		objType, err := s.Type(id)
		if err != nil {
			return OID{}, err
		}
		if objType != TypeTag {
			return id, nil
		}
		id, err = s.TagTarget(id)
		if err != nil {
			return OID{}, err
		}
	}
	return OID{}, fmt.Errorf("peel %s: tag chain too deep", id)
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// WriteBlob serializes and stores a Blob.
func (s *Store) WriteBlob(b *Blob) (OID, error) {
	return s.Write(TypeBlob, MarshalBlob(b))
}

// ReadBlob reads and deserializes a Blob.
func (s *Store) ReadBlob(id OID) (*Blob, error) {
	objType, data, err := s.Read(id)
	if err != nil {
		return nil, err
	}
	if objType != TypeBlob {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", id, objType, TypeBlob)
	}
	return UnmarshalBlob(data)
}

// WriteTree serializes and stores a TreeObj.
func (s *Store) WriteTree(tr *TreeObj) (OID, error) {
	return s.Write(TypeTree, MarshalTree(tr))
}

// ReadTree reads and deserializes a TreeObj.
func (s *Store) ReadTree(id OID) (*TreeObj, error) {
	objType, data, err := s.Read(id)
	if err != nil {
		return nil, err
	}
	if objType != TypeTree {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", id, objType, TypeTree)
	}
	return UnmarshalTree(data)
}

// WriteCommit serializes and stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (OID, error) {
	return s.Write(TypeCommit, MarshalCommit(c))
}

// ReadCommit reads and deserializes a CommitObj.
func (s *Store) ReadCommit(id OID) (*CommitObj, error) {
	objType, data, err := s.Read(id)
	if err != nil {
		return nil, err
	}
	if objType != TypeCommit {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", id, objType, TypeCommit)
	}
	return UnmarshalCommit(data)
}

// WriteTag serializes and stores a TagObj.
func (s *Store) WriteTag(t *TagObj) (OID, error) {
	return s.Write(TypeTag, MarshalTag(t))
}

// ReadTag reads and deserializes a TagObj.
func (s *Store) ReadTag(id OID) (*TagObj, error) {
	objType, data, err := s.Read(id)
	if err != nil {
		return nil, err
	}
	if objType != TypeTag {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", id, objType, TypeTag)
	}
	return UnmarshalTag(data)
}
