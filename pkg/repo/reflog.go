package repo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/odvcencio/reft/pkg/object"
	"github.com/odvcencio/reft/pkg/refs"
)

// ReflogEntry is one recorded reference update. A zero OID marks creation
// (old side) or deletion (new side).
type ReflogEntry struct {
	Ref       string
	OldOID    object.OID
	NewOID    object.OID
	Timestamp int64
	Reason    string
}

func (r *Repo) logPath(ref string) string {
	return filepath.Join(r.MetaDir, "logs", filepath.FromSlash(ref))
}

// AppendReflog records a reference update under logs/<ref>, one line per
// update: "<old> <new> <unix> <reason>".
func (r *Repo) AppendReflog(ref string, oldID, newID object.OID, reason string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if strings.TrimSpace(reason) == "" {
		reason = "update"
	}

	logPath := r.logPath(ref)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("reflog mkdir: %w", err)
	}

	line := fmt.Sprintf("%s %s %d %s\n", oldID, newID, time.Now().Unix(), reason)

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reflog open: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("reflog write: %w", err)
	}
	return nil
}

// ReadReflog returns the update history of a reference, newest first.
// An empty ref or "HEAD" follows a symbolic HEAD to its branch; a name
// without a refs/ prefix is taken as a branch. A missing log file yields
// no entries.
func (r *Repo) ReadReflog(ref string, limit int) ([]ReflogEntry, error) {
	refName, err := r.resolveReflogRefName(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(r.logPath(refName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reflog: %w", err)
	}
	defer f.Close()

	var entries []ReflogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 4)
		if len(parts) < 4 {
			continue
		}
		oldID, err := object.ParseOID(parts[0])
		if err != nil {
			continue
		}
		newID, err := object.ParseOID(parts[1])
		if err != nil {
			continue
		}
		ts, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, ReflogEntry{
			Ref:       refName,
			OldOID:    oldID,
			NewOID:    newID,
			Timestamp: ts,
			Reason:    parts[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read reflog: %w", err)
	}

	// Newest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *Repo) resolveReflogRefName(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "HEAD" {
		head, err := r.Head()
		if err == nil && head.Kind() == refs.Symbolic {
			return head.Target(), nil
		}
		return "HEAD", nil
	}
	if strings.HasPrefix(ref, "refs/") {
		return ref, nil
	}
	return "refs/heads/" + ref, nil
}

// RenameLog moves the log file of a renamed reference. A reference
// without a log is not an error.
func (r *Repo) RenameLog(oldName, newName string) error {
	oldPath := r.logPath(oldName)
	if _, err := os.Stat(oldPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("rename reflog: %w", err)
	}

	newPath := r.logPath(newName)
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return fmt.Errorf("rename reflog: mkdir: %w", err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("rename reflog: %w", err)
	}
	return nil
}
