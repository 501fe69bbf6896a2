// Package beautify plans and applies a consistent naming and colour scheme
// for repository labels.
package beautify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tildaslashalef/ghmind/internal/extractor"
	"github.com/tildaslashalef/ghmind/internal/github"
	"github.com/tildaslashalef/ghmind/internal/llm"
	"github.com/tildaslashalef/ghmind/internal/loggy"
	"github.com/tildaslashalef/ghmind/internal/prompt"
)

var hexColor = regexp.MustCompile(`^[0-9a-f]{6}$`)

// Labels is the hosting platform capability the beautifier needs
type Labels interface {
	Labels(ctx context.Context) ([]github.Label, error)
	UpdateLabel(ctx context.Context, originalName string, update github.LabelUpdate) error
}

// Change is one validated entry of the plan
type Change struct {
	Current github.Label
	Target  github.Label
}

// Renamed reports whether the change renames the label
func (c Change) Renamed() bool {
	return c.Current.Name != c.Target.Name
}

// Rejected is a proposal that did not make it into the plan
type Rejected struct {
	Proposal extractor.LabelChange
	Reason   string
}

// Result is the outcome of a run
type Result struct {
	Labels   []github.Label
	Plan     []Change
	Rejected []Rejected
	Updated  int
	DryRun   bool
}

// Service runs the label beautifier
type Service struct {
	labels    Labels
	model     llm.Client
	extractor *extractor.Extractor
	dryRun    bool
	logger    *loggy.Logger
}

// NewService creates a new label beautifier
func NewService(labels Labels, model llm.Client, ex *extractor.Extractor, dryRun bool, logger *loggy.Logger) *Service {
	if logger == nil {
		logger = loggy.NewNoopLogger()
	}
	if ex == nil {
		ex = extractor.New(extractor.Balanced, logger)
	}
	return &Service{labels: labels, model: model, extractor: ex, dryRun: dryRun, logger: logger}
}

// Run lists the labels, asks the model for a plan and applies it
func (s *Service) Run(ctx context.Context) (*Result, error) {
	result := &Result{DryRun: s.dryRun}

	labels, err := s.labels.Labels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}
	result.Labels = labels
	if len(labels) == 0 {
		s.logger.Info("Repository has no labels, nothing to beautify")
		return result, nil
	}

	p, err := prompt.Beautify(labels)
	if err != nil {
		return nil, err
	}

	shape := extractor.Array
	resp, err := s.model.Generate(ctx, llm.GenerateRequest{
		Prompt: p.User,
		System: p.System,
		Shape:  &shape,
		Schema: p.Schema,
	})
	if err != nil {
		return nil, fmt.Errorf("generating label plan: %w", err)
	}

	proposals := extractor.DecodeArray[extractor.LabelChange](s.extractor, resp.Content)
	result.Plan, result.Rejected = BuildPlan(labels, proposals)
	for _, r := range result.Rejected {
		s.logger.Debug("Rejected label proposal", "label", r.Proposal.OriginalName, "reason", r.Reason)
	}
	s.logger.Info("Label plan ready", "proposals", len(proposals), "changes", len(result.Plan))

	if s.dryRun {
		s.logger.Info("Dry run, labels not updated")
		return result, nil
	}

	for _, c := range result.Plan {
		update := github.LabelUpdate{
			NewName:     c.Target.Name,
			Color:       c.Target.Color,
			Description: c.Target.Description,
		}
		if err := s.labels.UpdateLabel(ctx, c.Current.Name, update); err != nil {
			return result, fmt.Errorf("updating label %q: %w", c.Current.Name, err)
		}
		result.Updated++
	}

	return result, nil
}

// BuildPlan validates model proposals against the existing labels.
// Proposals for unknown labels, no-op proposals and proposals that would
// collide with another label's name are rejected. Invalid colours keep the
// current colour, blank names keep the current name and descriptions are
// clamped to MaxDescriptionLength.
func BuildPlan(labels []github.Label, proposals []extractor.LabelChange) ([]Change, []Rejected) {
	byName := make(map[string]github.Label, len(labels))
	for _, l := range labels {
		byName[strings.ToLower(l.Name)] = l
	}

	// Names that stay taken: every label keeps its name unless planned otherwise
	taken := make(map[string]string, len(labels))
	for _, l := range labels {
		taken[strings.ToLower(l.Name)] = l.Name
	}

	var plan []Change
	var rejected []Rejected
	planned := make(map[string]bool)

	for _, p := range proposals {
		key := strings.ToLower(strings.TrimSpace(p.OriginalName))
		current, ok := byName[key]
		if !ok {
			rejected = append(rejected, Rejected{Proposal: p, Reason: "unknown label"})
			continue
		}
		if planned[key] {
			rejected = append(rejected, Rejected{Proposal: p, Reason: "duplicate proposal"})
			continue
		}

		target := github.Label{
			Name:        strings.TrimSpace(p.NewName),
			Color:       NormalizeColor(p.Color, current.Color),
			Description: ClampDescription(p.Description),
		}
		if target.Name == "" {
			target.Name = current.Name
		}
		if target.Description == "" {
			target.Description = current.Description
		}

		if target == current {
			rejected = append(rejected, Rejected{Proposal: p, Reason: "no change"})
			continue
		}

		targetKey := strings.ToLower(target.Name)
		if owner, ok := taken[targetKey]; ok && !strings.EqualFold(owner, current.Name) {
			rejected = append(rejected, Rejected{Proposal: p, Reason: fmt.Sprintf("name %q already used by %q", target.Name, owner)})
			continue
		}

		delete(taken, strings.ToLower(current.Name))
		taken[targetKey] = current.Name
		planned[key] = true
		plan = append(plan, Change{Current: current, Target: target})
	}

	return plan, rejected
}

// MaxDescriptionLength is the longest label description GitHub accepts
const MaxDescriptionLength = 100

// ClampDescription trims a description and cuts it to MaxDescriptionLength runes
func ClampDescription(description string) string {
	d := strings.TrimSpace(description)
	if r := []rune(d); len(r) > MaxDescriptionLength {
		d = strings.TrimSpace(string(r[:MaxDescriptionLength]))
	}
	return d
}

// NormalizeColor lowercases a hex colour and strips a leading #. Anything
// that is not six hex digits yields fallback.
func NormalizeColor(color, fallback string) string {
	c := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(color), "#"))
	if hexColor.MatchString(c) {
		return c
	}
	return fallback
}
