package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/odvcencio/reft/pkg/object"
	"github.com/odvcencio/reft/pkg/repo"
	"github.com/spf13/cobra"
)

func newTagCmd() *cobra.Command {
	var deleteTag string
	var annotate bool
	var message string
	var sign bool
	var keyPath string
	var force bool
	var showOID bool

	cmd := &cobra.Command{
		Use:   "tag [name] [target]",
		Short: "List, create, or delete tags",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			if strings.TrimSpace(deleteTag) != "" {
				if len(args) > 0 {
					return fmt.Errorf("tag --delete does not accept positional args")
				}
				return r.DeleteTag(deleteTag)
			}

			if len(args) == 0 {
				tags, err := r.ListTags()
				if err != nil {
					return err
				}
				names := make([]string, 0, len(tags))
				for name := range tags {
					names = append(names, name)
				}
				sort.Strings(names)

				for _, name := range names {
					if showOID {
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", tags[name], name)
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), name)
					}
				}
				return nil
			}

			name := args[0]
			target, err := resolveTagTarget(r, args)
			if err != nil {
				return err
			}

			if !annotate {
				return r.CreateTag(name, target, force)
			}

			if strings.TrimSpace(message) == "" {
				return fmt.Errorf("tag -a needs a message (-m)")
			}

			var signer repo.TagSigner
			if sign {
				s, resolvedKey, err := newSSHTagSigner(keyPath)
				if err != nil {
					return err
				}
				signer = s
				fmt.Fprintf(cmd.OutOrStdout(), "signing with %s\n", resolvedKey)
			}

			tagger := os.Getenv("REFT_TAGGER")
			if tagger == "" {
				tagger = "reft"
			}

			id, err := r.CreateAnnotatedTag(name, target, tagger, message, signer, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&deleteTag, "delete", "d", "", "delete the named tag")
	cmd.Flags().BoolVarP(&annotate, "annotate", "a", false, "create an annotated tag object")
	cmd.Flags().StringVarP(&message, "message", "m", "", "annotated tag message")
	cmd.Flags().BoolVarP(&sign, "sign", "s", false, "sign the annotated tag with an SSH key")
	cmd.Flags().StringVar(&keyPath, "key", "", "SSH private key to sign with")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing tag")
	cmd.Flags().BoolVar(&showOID, "show-oid", false, "show tag target object ids when listing")

	return cmd
}

// resolveTagTarget turns the optional second argument into an OID: a full
// object id, a reference name, or HEAD when absent.
func resolveTagTarget(r *repo.Repo, args []string) (object.OID, error) {
	if len(args) == 2 {
		targetArg := strings.TrimSpace(args[1])
		if id, err := object.ParseOID(targetArg); err == nil {
			return id, nil
		}
		ref, err := r.Refs.Lookup(targetArg)
		if err != nil {
			return object.OID{}, fmt.Errorf("resolve %q: %w", targetArg, err)
		}
		resolved, err := r.Refs.Resolve(ref)
		if err != nil {
			return object.OID{}, err
		}
		return resolved.OID(), nil
	}

	head, err := r.Head()
	if err != nil {
		return object.OID{}, fmt.Errorf("read HEAD: %w", err)
	}
	resolved, err := r.Refs.Resolve(head)
	if err != nil {
		return object.OID{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	return resolved.OID(), nil
}
