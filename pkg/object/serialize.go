package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob serializes a Blob to raw bytes (identity).
func MarshalBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// UnmarshalBlob deserializes raw bytes into a Blob.
func UnmarshalBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// MarshalTree serializes a TreeObj to a deterministic text format, one
// entry per line:
//
//	<mode> <oid>\t<name>
//
// Entries are sorted by name before writing.
func MarshalTree(tr *TreeObj) []byte {
	entries := make([]TreeEntry, len(tr.Entries))
	copy(entries, tr.Entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s %s\t%s\n", e.Mode, e.OID, e.Name)
	}
	return buf.Bytes()
}

// UnmarshalTree parses a TreeObj from its serialized form.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		head, name, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("unmarshal tree: malformed entry %q", line)
		}
		mode, oidHex, ok := strings.Cut(head, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal tree: malformed entry %q", line)
		}
		id, err := ParseOID(oidHex)
		if err != nil {
			return nil, fmt.Errorf("unmarshal tree: %w", err)
		}
		tr.Entries = append(tr.Entries, TreeEntry{Mode: mode, Name: name, OID: id})
	}
	return tr, nil
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj to a git-style text format:
//
//	tree H
//	parent H        (repeated)
//	author A T
//
//	<message>
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.TreeOID)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s %d\n", c.Author, c.Timestamp)
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// UnmarshalCommit parses a CommitObj from its serialized form.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	header, message, ok := strings.Cut(string(data), "\n\n")
	if !ok {
		return nil, fmt.Errorf("unmarshal commit: missing header/message separator")
	}

	c := &CommitObj{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal commit: malformed header %q", line)
		}
		switch key {
		case "tree":
			id, err := ParseOID(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: %w", err)
			}
			c.TreeOID = id
		case "parent":
			id, err := ParseOID(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: %w", err)
			}
			c.Parents = append(c.Parents, id)
		case "author":
			author, ts, ok := cutLast(val, " ")
			if !ok {
				return nil, fmt.Errorf("unmarshal commit: malformed author %q", val)
			}
			sec, err := strconv.ParseInt(ts, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: author timestamp: %w", err)
			}
			c.Author = author
			c.Timestamp = sec
		default:
			return nil, fmt.Errorf("unmarshal commit: unknown header key %q", key)
		}
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// TagObj
// ---------------------------------------------------------------------------

// MarshalTag serializes a TagObj to a git-style text format:
//
//	object H
//	type T
//	tag N
//	tagger A T
//	sig S           (optional)
//
//	<message>
func MarshalTag(t *TagObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", t.TargetOID)
	fmt.Fprintf(&buf, "type %s\n", t.TargetType)
	fmt.Fprintf(&buf, "tag %s\n", t.Name)
	fmt.Fprintf(&buf, "tagger %s %d\n", t.Tagger, t.Timestamp)
	if t.Signature != "" {
		fmt.Fprintf(&buf, "sig %s\n", t.Signature)
	}
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	return buf.Bytes()
}

// UnmarshalTag parses a TagObj from its serialized form.
func UnmarshalTag(data []byte) (*TagObj, error) {
	header, message, ok := strings.Cut(string(data), "\n\n")
	if !ok {
		return nil, fmt.Errorf("unmarshal tag: missing header/message separator")
	}

	t := &TagObj{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal tag: malformed header %q", line)
		}
		switch key {
		case "object":
			id, err := ParseOID(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal tag: %w", err)
			}
			t.TargetOID = id
		case "type":
			t.TargetType = Type(val)
		case "tag":
			t.Name = val
		case "tagger":
			tagger, ts, ok := cutLast(val, " ")
			if !ok {
				return nil, fmt.Errorf("unmarshal tag: malformed tagger %q", val)
			}
			sec, err := strconv.ParseInt(ts, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("unmarshal tag: tagger timestamp: %w", err)
			}
			t.Tagger = tagger
			t.Timestamp = sec
		case "sig":
			t.Signature = val
		default:
			return nil, fmt.Errorf("unmarshal tag: unknown header key %q", key)
		}
	}
	return t, nil
}

// cutLast splits s at the last occurrence of sep.
func cutLast(s, sep string) (before, after string, found bool) {
	idx := strings.LastIndex(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+len(sep):], true
}
