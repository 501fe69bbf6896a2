package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/tildaslashalef/ghmind/internal/config"
	"github.com/tildaslashalef/ghmind/internal/loggy"
)

// ErrDetachedHead is returned by Push when HEAD is not on a branch
var ErrDetachedHead = errors.New("HEAD is detached, check out the pull request branch so the commit can be pushed")

// Service provides Git operations
type Service struct {
	logger     *loggy.Logger
	repo       *git.Repository
	root       string
	author     Identity
	remoteName string
	token      string
}

// NewService creates a new Git service. token authenticates pushes over HTTPS.
func NewService(cfg config.GitConfig, token string, logger *loggy.Logger) *Service {
	if logger == nil {
		logger = loggy.NewNoopLogger()
	}
	remote := cfg.RemoteName
	if remote == "" {
		remote = git.DefaultRemoteName
	}
	return &Service{
		logger:     logger,
		author:     Identity{Name: cfg.AuthorName, Email: cfg.AuthorEmail},
		remoteName: remote,
		token:      token,
	}
}

// Open opens the repository at repoPath
func (s *Service) Open(repoPath string) error {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("opening git repo: %w", err)
	}

	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return fmt.Errorf("resolving repo path: %w", err)
	}

	s.repo = repo
	s.root = abs
	return nil
}

// ensureRepo ensures the repository is initialized before performing operations
func (s *Service) ensureRepo() error {
	if s.repo == nil {
		return fmt.Errorf("git repository not initialized")
	}
	return nil
}

// CommitFiles stages paths (relative to the repository root) and commits them
// as the automation identity. It returns an empty hash when nothing changed.
func (s *Service) CommitFiles(ctx context.Context, paths []string, message string) (string, error) {
	if err := s.ensureRepo(); err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.logUnrelatedChanges(paths)

	wt, err := s.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	for _, p := range paths {
		if _, err := wt.Add(filepath.ToSlash(p)); err != nil {
			return "", fmt.Errorf("staging %s: %w", p, err)
		}
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.author.Name,
			Email: s.author.Email,
			When:  time.Now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		s.logger.Info("Nothing to commit", "paths", paths)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}

	s.logger.Info("Created commit", "hash", hash.String(), "files", len(paths))
	return hash.String(), nil
}

// logUnrelatedChanges warns about worktree changes a commit of paths leaves out
func (s *Service) logUnrelatedChanges(paths []string) {
	changed, err := s.ChangedFiles()
	if err != nil {
		s.logger.Debug("Could not read worktree status", "error", err)
		return
	}

	staged := make(map[string]bool, len(paths))
	for _, p := range paths {
		staged[filepath.ToSlash(p)] = true
	}
	var other []string
	for _, c := range changed {
		if !staged[c.Path] {
			other = append(other, c.Path)
		}
	}
	if len(other) > 0 {
		s.logger.Warn("Worktree changes left out of the commit", "files", other)
	}
}

// Push pushes the checked-out branch to the same branch on the configured
// remote. A detached HEAD fails with ErrDetachedHead.
func (s *Service) Push(ctx context.Context) error {
	if err := s.ensureRepo(); err != nil {
		return err
	}

	head, err := s.repo.Head()
	if err != nil {
		return fmt.Errorf("getting HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return ErrDetachedHead
	}
	branch := head.Name()

	opts := &git.PushOptions{
		RemoteName: s.remoteName,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(fmt.Sprintf("%s:%s", branch, branch))},
	}
	if s.token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: s.token}
	}

	err = s.repo.PushContext(ctx, opts)
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		s.logger.Info("Remote already up to date", "remote", s.remoteName, "branch", branch.Short())
		return nil
	}
	if err != nil {
		return fmt.Errorf("pushing %s to %s: %w", branch.Short(), s.remoteName, err)
	}

	logger := s.logger.With("remote", s.remoteName, "branch", branch.Short())
	if c, err := s.HeadCommit(); err == nil {
		logger = logger.With("commit", c.Hash, "message", strings.TrimSpace(c.Message))
	}
	logger.Info("Pushed to remote")
	return nil
}

// RemoteURL returns the first URL of the configured remote
func (s *Service) RemoteURL() (string, error) {
	if err := s.ensureRepo(); err != nil {
		return "", err
	}
	remote, err := s.repo.Remote(s.remoteName)
	if err != nil {
		return "", fmt.Errorf("getting remote %s: %w", s.remoteName, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %s has no URL", s.remoteName)
	}
	return urls[0], nil
}

// ChangedFiles lists worktree paths with uncommitted changes, sorted by path
func (s *Service) ChangedFiles() ([]ChangedFile, error) {
	if err := s.ensureRepo(); err != nil {
		return nil, err
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}

	var files []ChangedFile
	for path, st := range status {
		code := st.Worktree
		if code == git.Unmodified {
			code = st.Staging
		}
		if code == git.Unmodified {
			continue
		}
		files = append(files, ChangedFile{Path: path, ChangeType: getChangeType(code)})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	return files, nil
}

// HeadCommit returns the commit HEAD points at
func (s *Service) HeadCommit() (*Commit, error) {
	if err := s.ensureRepo(); err != nil {
		return nil, err
	}

	headRef, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("getting HEAD: %w", err)
	}
	c, err := s.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("getting HEAD commit: %w", err)
	}

	return &Commit{
		Hash:      c.Hash.String(),
		Author:    c.Author.Name,
		Email:     c.Author.Email,
		Message:   c.Message,
		Timestamp: c.Author.When,
	}, nil
}

// getChangeType converts a git status code to our ChangeType
func getChangeType(code git.StatusCode) ChangeType {
	switch code {
	case git.Added:
		return ChangeTypeAdded
	case git.Deleted:
		return ChangeTypeDeleted
	case git.Renamed:
		return ChangeTypeRenamed
	case git.Untracked:
		return ChangeTypeUntracked
	default:
		return ChangeTypeModified
	}
}
