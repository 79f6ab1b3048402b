// Package source acquires a fresh working copy of the live site's source tree.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fulmenhq/sitearchive/pkg/logger"
	"github.com/fulmenhq/sitearchive/pkg/safeio"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrClone marks failures to fetch the remote repository.
var ErrClone = errors.New("clone failed")

// FetchOptions describes what to clone and where.
type FetchOptions struct {
	// Repo is a clone URL or an owner/name GitHub shorthand.
	Repo string
	// Ref is an optional branch, tag or commit; empty means the remote HEAD.
	Ref string
	// Depth limits history for shallow clones; 0 clones everything.
	Depth int
	// Dest is the directory the site is cloned into. Existing content is removed.
	Dest string
}

// Result reports what Fetch did.
type Result struct {
	Path     string
	URL      string
	Head     string
	Replaced bool
}

// Fetch clones opts.Repo into opts.Dest. A pre-existing directory at Dest is
// deleted first so the destination never mixes two clone states.
func Fetch(ctx context.Context, opts FetchOptions) (*Result, error) {
	if strings.TrimSpace(opts.Dest) == "" {
		return nil, errors.New("destination cannot be empty")
	}
	if opts.Depth < 0 {
		return nil, fmt.Errorf("depth must not be negative, got %d", opts.Depth)
	}

	cloneURL, err := BuildCloneURL(opts.Repo)
	if err != nil {
		return nil, err
	}

	replaced, err := safeio.RemoveTree(opts.Dest)
	if err != nil {
		return nil, err
	}
	if replaced {
		logger.Debug("removed existing destination", logger.String("path", opts.Dest))
	}

	// A branch ref can be fetched shallow and single-branch. Tags and hashes
	// need the full history, so they are resolved after a full clone.
	shallowBranch := opts.Ref != "" && opts.Depth > 0 && !(len(opts.Ref) == 40 && isHex(opts.Ref))

	var repository *git.Repository
	if shallowBranch {
		repository, err = clone(ctx, opts.Dest, &git.CloneOptions{
			URL:           cloneURL,
			Depth:         opts.Depth,
			ReferenceName: plumbing.NewBranchReferenceName(opts.Ref),
			SingleBranch:  true,
		})
		if err != nil && isMissingRef(err) {
			logger.Debug("ref is not a branch, falling back to a full clone", logger.String("ref", opts.Ref))
			if _, rmErr := safeio.RemoveTree(opts.Dest); rmErr != nil {
				return nil, rmErr
			}
			shallowBranch = false
		} else if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrClone, cloneURL, err)
		}
	}

	if !shallowBranch {
		fullOpts := &git.CloneOptions{URL: cloneURL}
		if opts.Ref == "" {
			fullOpts.Depth = opts.Depth
		}
		repository, err = clone(ctx, opts.Dest, fullOpts)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrClone, cloneURL, err)
		}
		if opts.Ref != "" {
			hash, err := resolveRefHash(repository, opts.Ref)
			if err != nil {
				return nil, err
			}
			if err := checkoutHash(repository, hash); err != nil {
				return nil, fmt.Errorf("failed to checkout %s: %w", opts.Ref, err)
			}
		}
	}

	result := &Result{Path: opts.Dest, URL: cloneURL, Replaced: replaced}
	if head, err := repository.Head(); err == nil {
		result.Head = head.Hash().String()
	}
	return result, nil
}

func clone(ctx context.Context, dest string, cloneOpts *git.CloneOptions) (*git.Repository, error) {
	logger.Debug("cloning", logger.String("url", cloneOpts.URL), logger.String("dest", dest),
		logger.String("ref", cloneOpts.ReferenceName.String()), logger.Int("depth", cloneOpts.Depth))
	return git.PlainCloneContext(ctx, dest, false, cloneOpts)
}

// isMissingRef reports whether a single-branch clone failed because the remote
// has no branch of that name.
func isMissingRef(err error) bool {
	return errors.Is(err, git.NoMatchingRefSpecError{}) || errors.Is(err, plumbing.ErrReferenceNotFound)
}

// BuildCloneURL expands owner/name shorthands to GitHub HTTPS URLs and passes
// supported URL schemes through untouched.
func BuildCloneURL(repo string) (string, error) {
	trimmed := strings.TrimSpace(repo)
	if trimmed == "" {
		return "", errors.New("repo cannot be empty")
	}
	if strings.HasPrefix(trimmed, "http://") ||
		strings.HasPrefix(trimmed, "https://") ||
		strings.HasPrefix(trimmed, "ssh://") ||
		strings.HasPrefix(trimmed, "file://") {
		return trimmed, nil
	}

	if strings.Contains(trimmed, "://") {
		return "", fmt.Errorf("unsupported repo URL scheme: %s", trimmed)
	}

	trimmed = strings.TrimSuffix(trimmed, ".git")
	if strings.Count(trimmed, "/") != 1 {
		return "", fmt.Errorf("repo shorthand must be owner/name: %s", repo)
	}
	return fmt.Sprintf("https://github.com/%s.git", trimmed), nil
}

func resolveRefHash(repository *git.Repository, ref string) (plumbing.Hash, error) {
	if hash, err := repository.ResolveRevision(plumbing.Revision(ref)); err == nil {
		return *hash, nil
	}

	candidates := []plumbing.ReferenceName{
		plumbing.ReferenceName(ref),
		plumbing.NewBranchReferenceName(ref),
		plumbing.NewRemoteReferenceName("origin", ref),
		plumbing.NewTagReferenceName(ref),
	}
	for _, candidate := range candidates {
		if reference, err := repository.Reference(candidate, true); err == nil {
			return reference.Hash(), nil
		}
	}

	if len(ref) == 40 && isHex(ref) {
		return plumbing.NewHash(ref), nil
	}

	return plumbing.ZeroHash, fmt.Errorf("ref %s not found", ref)
}

func checkoutHash(repository *git.Repository, hash plumbing.Hash) error {
	worktree, err := repository.Worktree()
	if err != nil {
		return err
	}
	return worktree.Checkout(&git.CheckoutOptions{
		Hash:  hash,
		Force: true,
	})
}

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}
