package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v59/github"

	"github.com/tildaslashalef/ghmind/internal/loggy"
)

// Issue is the subset of an issue the automations read
type Issue struct {
	Number        int
	Title         string
	Body          string
	Author        string
	IsPullRequest bool
}

// Label is a repository label
type Label struct {
	Name        string
	Color       string
	Description string
}

// LabelUpdate is the PATCH body for a label. The label is addressed by its
// current name, NewName renames it.
type LabelUpdate struct {
	NewName     string `json:"new_name,omitempty"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// Service provides the repository-scoped GitHub operations
type Service struct {
	client *Client
	owner  string
	repo   string
	logger *loggy.Logger
}

// NewService creates a new GitHub service for owner/repo
func NewService(client *Client, repository string, logger *loggy.Logger) (*Service, error) {
	owner, repo, err := ParseRepository(repository)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = loggy.NewNoopLogger()
	}
	return &Service{
		client: client,
		owner:  owner,
		repo:   repo,
		logger: logger.With("repository", owner+"/"+repo),
	}, nil
}

// Repository returns owner/name
func (s *Service) Repository() string {
	return s.owner + "/" + s.repo
}

// PullRequestDiff returns the unified diff of a pull request
func (s *Service) PullRequestDiff(ctx context.Context, number int) (string, error) {
	var diff string
	err := s.client.call(ctx, "get pull request diff", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		diff, resp, err = s.client.client.PullRequests.GetRaw(ctx, s.owner, s.repo, number, github.RawOptions{Type: github.Diff})
		return resp, err
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("Fetched pull request diff", "pr", number, "diff_length", len(diff))
	return diff, nil
}

// Issue fetches an issue by number
func (s *Service) Issue(ctx context.Context, number int) (*Issue, error) {
	var gi *github.Issue
	err := s.client.call(ctx, "get issue", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		gi, resp, err = s.client.client.Issues.Get(ctx, s.owner, s.repo, number)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return &Issue{
		Number:        gi.GetNumber(),
		Title:         gi.GetTitle(),
		Body:          gi.GetBody(),
		Author:        gi.GetUser().GetLogin(),
		IsPullRequest: gi.IsPullRequest(),
	}, nil
}

// Labels lists every label of the repository, following pagination
func (s *Service) Labels(ctx context.Context) ([]Label, error) {
	opts := &github.ListOptions{PerPage: 100}
	var labels []Label

	for {
		var page []*github.Label
		var resp *github.Response
		err := s.client.call(ctx, "list labels", func() (*github.Response, error) {
			var err error
			page, resp, err = s.client.client.Issues.ListLabels(ctx, s.owner, s.repo, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, l := range page {
			labels = append(labels, Label{
				Name:        l.GetName(),
				Color:       l.GetColor(),
				Description: l.GetDescription(),
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	s.logger.Debug("Listed labels", "count", len(labels))
	return labels, nil
}

// UpdateLabel renames and restyles the label currently called originalName
func (s *Service) UpdateLabel(ctx context.Context, originalName string, update LabelUpdate) error {
	path := fmt.Sprintf("repos/%s/%s/labels/%s", s.owner, s.repo, url.PathEscape(originalName))

	err := s.client.call(ctx, "update label", func() (*github.Response, error) {
		req, err := s.client.client.NewRequest("PATCH", path, update)
		if err != nil {
			return nil, err
		}
		return s.client.client.Do(ctx, req, nil)
	})
	if err != nil {
		return fmt.Errorf("label %q: %w", originalName, err)
	}

	s.logger.Info("Updated label", "label", originalName, "new_name", update.NewName, "color", update.Color)
	return nil
}

// UpdateIssue replaces an issue's title and body
func (s *Service) UpdateIssue(ctx context.Context, number int, title, body string) error {
	err := s.client.call(ctx, "update issue", func() (*github.Response, error) {
		_, resp, err := s.client.client.Issues.Edit(ctx, s.owner, s.repo, number, &github.IssueRequest{
			Title: github.String(title),
			Body:  github.String(body),
		})
		return resp, err
	})
	if err != nil {
		return err
	}

	s.logger.Info("Updated issue", "issue", number)
	return nil
}

// Comment posts a comment on an issue or pull request
func (s *Service) Comment(ctx context.Context, number int, body string) error {
	err := s.client.call(ctx, "create comment", func() (*github.Response, error) {
		_, resp, err := s.client.client.Issues.CreateComment(ctx, s.owner, s.repo, number, &github.IssueComment{
			Body: github.String(body),
		})
		return resp, err
	})
	if err != nil {
		return err
	}

	s.logger.Info("Posted comment", "number", number, "body_length", len(body))
	return nil
}

// AddLabels adds labels to an issue or pull request, keeping the ones it has
func (s *Service) AddLabels(ctx context.Context, number int, labels []string) error {
	if len(labels) == 0 {
		return nil
	}

	err := s.client.call(ctx, "add labels", func() (*github.Response, error) {
		_, resp, err := s.client.client.Issues.AddLabelsToIssue(ctx, s.owner, s.repo, number, labels)
		return resp, err
	})
	if err != nil {
		return err
	}

	s.logger.Info("Added labels", "number", number, "labels", labels)
	return nil
}

// ParseRepository splits "owner/name"
func ParseRepository(repository string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(repository), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/name", repository)
	}
	return owner, repo, nil
}

// RepositoryFromRemoteURL extracts owner/name from a GitHub remote URL
func RepositoryFromRemoteURL(gitURL string) (string, error) {
	if gitURL == "" {
		return "", fmt.Errorf("empty Git URL")
	}

	// Handle different URL formats
	// https://github.com/owner/repo.git
	// git@github.com:owner/repo.git
	// https://github.com/owner/repo
	gitURL = strings.TrimSuffix(gitURL, ".git")

	var rest string
	if _, after, ok := strings.Cut(gitURL, "github.com/"); ok {
		rest = after
	} else if _, after, ok := strings.Cut(gitURL, "github.com:"); ok {
		rest = after
	} else {
		return "", fmt.Errorf("unsupported Git URL format: %s", gitURL)
	}

	ownerRepo := strings.Split(rest, "/")
	if len(ownerRepo) < 2 || ownerRepo[0] == "" || ownerRepo[1] == "" {
		return "", fmt.Errorf("could not extract owner/repo from URL: %s", gitURL)
	}

	return ownerRepo[0] + "/" + ownerRepo[1], nil
}
