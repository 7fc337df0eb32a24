package repo

import (
	"fmt"
	"strings"
	"time"

	"github.com/odvcencio/reft/pkg/object"
	"github.com/odvcencio/reft/pkg/refs"
)

// TagSigner signs an annotated tag payload, returning an armored
// signature string stored in the tag object.
type TagSigner func(payload []byte) (string, error)

// CreateTag creates a lightweight tag: refs/tags/<name> pointing straight
// at target.
func (r *Repo) CreateTag(name string, target object.OID, force bool) error {
	if _, err := r.Refs.CreateDirect("refs/tags/"+name, target, force); err != nil {
		return fmt.Errorf("create tag %q: %w", name, err)
	}
	return nil
}

// CreateAnnotatedTag writes a tag object for target, optionally signed,
// and points refs/tags/<name> at it. The tag object's OID is returned.
func (r *Repo) CreateAnnotatedTag(name string, target object.OID, tagger, message string, signer TagSigner, force bool) (object.OID, error) {
	targetType, err := r.Store.Type(target)
	if err != nil {
		return object.OID{}, fmt.Errorf("create tag %q: target: %w", name, err)
	}

	tag := &object.TagObj{
		TargetOID:  target,
		TargetType: targetType,
		Name:       name,
		Tagger:     tagger,
		Timestamp:  time.Now().Unix(),
		Message:    message,
	}
	if signer != nil {
		sig, err := signer(object.MarshalTag(tag))
		if err != nil {
			return object.OID{}, fmt.Errorf("create tag %q: sign: %w", name, err)
		}
		tag.Signature = sig
	}

	id, err := r.Store.WriteTag(tag)
	if err != nil {
		return object.OID{}, fmt.Errorf("create tag %q: %w", name, err)
	}
	if _, err := r.Refs.CreateDirect("refs/tags/"+name, id, force); err != nil {
		return object.OID{}, fmt.Errorf("create tag %q: %w", name, err)
	}
	return id, nil
}

// DeleteTag removes refs/tags/<name>.
func (r *Repo) DeleteTag(name string) error {
	ref, err := r.Refs.Lookup("refs/tags/" + name)
	if err != nil {
		return fmt.Errorf("delete tag %q: %w", name, err)
	}
	if err := r.Refs.Delete(ref); err != nil {
		return fmt.Errorf("delete tag %q: %w", name, err)
	}
	return nil
}

// ListTags maps every tag name, packed and loose alike, to its target
// OID.
func (r *Repo) ListTags() (map[string]object.OID, error) {
	tags := make(map[string]object.OID)
	err := r.Refs.Foreach(refs.IterAll, func(name string) error {
		if !strings.HasPrefix(name, "refs/tags/") {
			return nil
		}
		ref, err := r.Refs.Lookup(name)
		if err != nil {
			return err
		}
		tags[strings.TrimPrefix(name, "refs/tags/")] = ref.OID()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}
