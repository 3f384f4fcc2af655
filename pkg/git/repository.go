package git

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// RemoteName is the name of the tracked remote.
const RemoteName = "origin"

// AuthProvider resolves transport credentials for a remote URL.
type AuthProvider interface {
	AuthMethod(repoURL string) (transport.AuthMethod, error)
}

// Synchronizer implements types.Repository on top of go-git.
type Synchronizer struct {
	url     string
	branch  string
	root    string
	auth    AuthProvider
	author  types.CommitAuthor
	message string
	now     func() time.Time
}

// New creates a Synchronizer for the repository, branch, working copy and commit identity in cfg.
func New(cfg types.Config, auth AuthProvider) *Synchronizer {
	return &Synchronizer{
		url:     cfg.RepositoryURL,
		branch:  cfg.Branch,
		root:    cfg.Workdir,
		auth:    auth,
		author:  cfg.CommitAuthor,
		message: cfg.CommitMessage,
		now:     time.Now,
	}
}

// Root returns the working copy directory.
func (s *Synchronizer) Root() string {
	return s.root
}

func (s *Synchronizer) fields() logrus.Fields {
	return logrus.Fields{"repository": s.url, "branch": s.branch}
}

func (s *Synchronizer) gitError(op string, cause error) types.GitError {
	return types.GitError{Op: op, URL: s.url, Branch: s.branch, Cause: cause}
}

// Sync clones the repository on first use, then fetches the tracked branch and hard-resets the
// working copy to its tip.
//
// Returns:
//   - error: Non-nil (wrapping types.ErrSync) if the working copy could not be opened, fetched or reset.
func (s *Synchronizer) Sync(ctx context.Context) error {
	logrus.WithFields(s.fields()).WithField("workdir", s.root).Debug("Synchronizing working copy")

	repo, err := s.open()
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrSync, s.gitError("open", err))
	}

	if err := s.ensureRemote(repo); err != nil {
		return fmt.Errorf("%w: %w", types.ErrSync, s.gitError("remote", err))
	}

	auth, err := s.auth.AuthMethod(s.url)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrSync, s.gitError("auth", err))
	}

	remoteRef := plumbing.NewRemoteReferenceName(RemoteName, s.branch)
	refSpec := config.RefSpec(fmt.Sprintf("+%s:%s", plumbing.NewBranchReferenceName(s.branch), remoteRef))

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: RemoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       auth,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("%w: %w", types.ErrSync, s.gitError("fetch", err))
	}

	tip, err := repo.Reference(remoteRef, true)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrSync, s.gitError("fetch", err))
	}

	if err := s.reset(repo, tip.Hash()); err != nil {
		return fmt.Errorf("%w: %w", types.ErrSync, s.gitError("reset", err))
	}

	logrus.WithFields(s.fields()).WithField("commit", tip.Hash().String()).Info("Working copy synchronized")

	return nil
}

// open opens the working copy, initializing an empty repository on first use.
func (s *Synchronizer) open() (*git.Repository, error) {
	repo, err := git.PlainOpen(s.root)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		logrus.WithFields(s.fields()).WithField("workdir", s.root).Info("Cloning manifest repository")

		return git.PlainInit(s.root, false)
	}

	return repo, err
}

// ensureRemote points the origin remote at the configured URL.
func (s *Synchronizer) ensureRemote(repo *git.Repository) error {
	remote, err := repo.Remote(RemoteName)

	switch {
	case errors.Is(err, git.ErrRemoteNotFound):
	case err != nil:
		return err
	default:
		urls := remote.Config().URLs
		if len(urls) == 1 && urls[0] == s.url {
			return nil
		}

		if err := repo.DeleteRemote(RemoteName); err != nil {
			return err
		}
	}

	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: RemoteName,
		URLs: []string{s.url},
	})

	return err
}

// reset points the tracked branch and HEAD at hash, then discards every local change.
func (s *Synchronizer) reset(repo *git.Repository, hash plumbing.Hash) error {
	branchRef := plumbing.NewBranchReferenceName(s.branch)

	if err := repo.Storer.SetReference(plumbing.NewHashReference(branchRef, hash)); err != nil {
		return err
	}

	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branchRef)); err != nil {
		return err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}

	if err := worktree.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		return err
	}

	return worktree.Clean(&git.CleanOptions{Dir: true})
}

// CommitAndPush stages every change in the working copy, commits it and pushes the tracked branch.
//
// Returns:
//   - string: Hash of the pushed commit, or empty if there was nothing to commit.
//   - error: Non-nil (wrapping types.ErrPush) if staging, committing or pushing failed.
func (s *Synchronizer) CommitAndPush(ctx context.Context) (string, error) {
	repo, err := git.PlainOpen(s.root)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrPush, s.gitError("open", err))
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrPush, s.gitError("add", err))
	}

	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrPush, s.gitError("add", err))
	}

	signature := &object.Signature{Name: s.author.Name, Email: s.author.Email, When: s.now()}

	hash, err := worktree.Commit(s.message, &git.CommitOptions{Author: signature, Committer: signature})
	if errors.Is(err, git.ErrEmptyCommit) {
		logrus.WithFields(s.fields()).Info("Working copy is clean, nothing to push")

		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrPush, s.gitError("commit", err))
	}

	auth, err := s.auth.AuthMethod(s.url)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrPush, s.gitError("auth", err))
	}

	branchRef := plumbing.NewBranchReferenceName(s.branch)

	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: RemoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("%s:%s", branchRef, branchRef))},
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("%w: %w", types.ErrPush, s.gitError("push", err))
	}

	logrus.WithFields(s.fields()).WithField("commit", hash.String()).Info("Pushed updated images")

	return hash.String(), nil
}
