// Package cache implements the content-addressed store of sparse checkouts.
// Each entry is a working checkout under objects/<key>, restricted to the
// requested subpath, with .git metadata intact so its commit stays queryable.
package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gitpm.dev/gitpm/internal/git"
	"gitpm.dev/gitpm/internal/manifest"
)

// Store is the on-disk cache rooted at a configured directory.
type Store struct {
	root   string
	runner git.Runner
}

// NewStore creates a Store at root backed by the given collaborator runner.
func NewStore(root string, runner git.Runner) *Store {
	return &Store{root: root, runner: runner}
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the directory an entry for key lives at.
func (s *Store) Path(key string) string {
	return filepath.Join(s.root, "objects", key)
}

// Has reports whether an entry for key exists.
func (s *Store) Has(key string) bool {
	info, err := os.Stat(s.Path(key))
	return err == nil && info.IsDir()
}

// Commit reports the commit an existing entry is checked out at.
func (s *Store) Commit(ctx context.Context, key string) (string, error) {
	return s.runner.HeadCommit(ctx, s.Path(key))
}

// Ensure makes the entry for key present and checked out, returning the
// resulting commit.
//
// Policy: a miss populates; a hit whose original ref was a mutable branch
// re-fetches so the entry reflects the branch at resolution time; a hit for a
// tag or commit ref is reused unconditionally. Entries are never evicted.
//
// Fresh entries are built in a scratch directory and renamed into place, so a
// concurrent run racing on the same key observes either no entry or a
// complete one. When the rename loses the race the winner's entry is reused.
func (s *Store) Ensure(ctx context.Context, key, url, subpath string, ref manifest.Ref) (string, error) {
	dir := s.Path(key)

	if s.Has(key) {
		if !ref.IsMutable() {
			return s.runner.HeadCommit(ctx, dir)
		}
		// Refresh in place. A failed refresh leaves the entry in an unknown
		// state, so it is discarded like any other failed population.
		commit, err := s.populate(ctx, dir, url, subpath, ref)
		if err != nil {
			_ = os.RemoveAll(dir)
			return "", err
		}
		return commit, nil
	}

	tmp, err := s.scratchDir(key)
	if err != nil {
		return "", err
	}

	commit, err := s.populate(ctx, tmp, url, subpath, ref)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return "", err
	}

	if err := os.Rename(tmp, dir); err != nil {
		_ = os.RemoveAll(tmp)
		if s.Has(key) {
			// A concurrent run populated the same key first.
			return s.runner.HeadCommit(ctx, dir)
		}
		return "", fmt.Errorf("installing cache entry %s: %w", key, err)
	}
	return commit, nil
}

// populate runs the collaborator fetch sequence in dir: initialize (or update
// the remote of) the repository, configure the sparse pattern, fetch the ref
// (shallow for branches, full otherwise), check it out and report the commit.
func (s *Store) populate(ctx context.Context, dir, url, subpath string, ref manifest.Ref) (string, error) {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		if err := s.runner.Init(ctx, dir); err != nil {
			return "", err
		}
	}
	if err := s.runner.SetRemote(ctx, dir, url); err != nil {
		return "", err
	}
	if err := s.runner.EnableSparseCheckout(ctx, dir); err != nil {
		return "", err
	}
	if err := s.runner.WriteSparsePattern(dir, subpath); err != nil {
		return "", err
	}

	checkoutRef, err := s.fetch(ctx, dir, ref)
	if err != nil {
		return "", err
	}
	if err := s.runner.Checkout(ctx, dir, checkoutRef); err != nil {
		return "", err
	}
	return s.runner.HeadCommit(ctx, dir)
}

// fetch brings the requested ref into dir and returns what to check out.
func (s *Store) fetch(ctx context.Context, dir string, ref manifest.Ref) (string, error) {
	switch ref.Type {
	case manifest.RefBranch:
		if err := s.runner.Fetch(ctx, dir, ref.Value, true); err != nil {
			// Some servers reject shallow fetches; retry full.
			if err := s.runner.FetchAll(ctx, dir); err != nil {
				return "", err
			}
		}
		return "FETCH_HEAD", nil
	case manifest.RefTag:
		if err := s.runner.FetchAll(ctx, dir); err != nil {
			return "", err
		}
		return "refs/tags/" + ref.Value, nil
	default: // commit
		if err := s.runner.FetchAll(ctx, dir); err != nil {
			return "", err
		}
		return ref.Value, nil
	}
}

func (s *Store) scratchDir(key string) (string, error) {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, "objects", fmt.Sprintf(".tmp-%s-%s", key, hex.EncodeToString(buf[:])))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
