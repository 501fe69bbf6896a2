package drift

import (
	"context"
	"errors"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/ghmind/internal/extractor"
	"github.com/tildaslashalef/ghmind/internal/github"
	"github.com/tildaslashalef/ghmind/internal/llm"
	"github.com/tildaslashalef/ghmind/internal/workspace"
)

type fakePRs struct {
	diff     string
	diffErr  error
	pr       *github.Issue
	issueErr error
	fetched  int
	comments []string
}

func (f *fakePRs) Issue(ctx context.Context, number int) (*github.Issue, error) {
	f.fetched++
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	if f.pr == nil {
		return &github.Issue{Number: number, IsPullRequest: true}, nil
	}
	return f.pr, nil
}

func (f *fakePRs) PullRequestDiff(ctx context.Context, number int) (string, error) {
	return f.diff, f.diffErr
}

func (f *fakePRs) Comment(ctx context.Context, number int, body string) error {
	f.comments = append(f.comments, body)
	return nil
}

type fakeFiles struct {
	files  map[string]string
	writes []string
}

func (f *fakeFiles) Clean(p string) (string, error) {
	p = path.Clean(strings.TrimSpace(p))
	if p == "." || path.IsAbs(p) || p == ".." || strings.HasPrefix(p, "../") {
		return "", workspace.ErrOutsideRoot
	}
	return p, nil
}

func (f *fakeFiles) Exists(path string) bool {
	_, ok := f.files[path]
	return ok
}

func (f *fakeFiles) Read(path string) (string, error) {
	c, ok := f.files[path]
	if !ok {
		return "", errors.New("missing")
	}
	return c, nil
}

func (f *fakeFiles) Overwrite(path, content string) error {
	if _, ok := f.files[path]; !ok {
		return workspace.ErrNotExist
	}
	f.files[path] = content
	f.writes = append(f.writes, path)
	return nil
}

func (f *fakeFiles) DocumentationFiles(limit int) ([]workspace.Document, error) {
	var docs []workspace.Document
	for p, c := range f.files {
		docs = append(docs, workspace.Document{Path: p, Content: c})
	}
	return docs, nil
}

type fakeCommitter struct {
	committed [][]string
	pushes    int
}

func (f *fakeCommitter) CommitFiles(ctx context.Context, paths []string, message string) (string, error) {
	f.committed = append(f.committed, paths)
	return "abc123", nil
}

func (f *fakeCommitter) Push(ctx context.Context) error {
	f.pushes++
	return nil
}

type fakeModel struct {
	content string
	calls   int
	last    llm.GenerateRequest
}

func (f *fakeModel) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	f.calls++
	f.last = req
	return &llm.GenerateResponse{Content: f.content, Model: "fake"}, nil
}

const ghostAnswer = `Here are the updates:
[{"file_path": "README.md", "updated_content": "X"}, {"file_path": "ghost.md", "updated_content": "Y"}]`

func newFixture(diff, answer string, opts Options) (*Service, *fakePRs, *fakeFiles, *fakeCommitter, *fakeModel) {
	prs := &fakePRs{diff: diff}
	files := &fakeFiles{files: map[string]string{"README.md": "old readme"}}
	committer := &fakeCommitter{}
	model := &fakeModel{content: answer}
	svc := NewService(prs, files, committer, model, nil, opts, nil)
	return svc, prs, files, committer, model
}

func TestApplyUpdatesOnlyExistingFiles(t *testing.T) {
	svc, _, files, _, _ := newFixture("", "", Options{})

	applied, skipped := svc.ApplyUpdates([]extractor.FileUpdate{
		{FilePath: "README.md", UpdatedContent: "X"},
		{FilePath: "ghost.md", UpdatedContent: "Y"},
	})

	assert.Equal(t, []string{"README.md"}, applied)
	assert.Equal(t, []Skipped{{Path: "ghost.md", Reason: SkipMissing}}, skipped)
	assert.Equal(t, "X", files.files["README.md"])
	assert.NotContains(t, files.files, "ghost.md")
}

func TestApplyUpdatesSkipsUnchangedAndDuplicates(t *testing.T) {
	svc, _, files, _, _ := newFixture("", "", Options{})

	applied, skipped := svc.ApplyUpdates([]extractor.FileUpdate{
		{FilePath: "README.md", UpdatedContent: "old readme"},
		{FilePath: "", UpdatedContent: "nothing"},
	})
	assert.Empty(t, applied)
	assert.NotNil(t, applied)
	assert.Len(t, skipped, 2)
	assert.Equal(t, SkipUnchanged, skipped[0].Reason)
	assert.Equal(t, SkipInvalid, skipped[1].Reason)
	assert.Empty(t, files.writes)

	applied, skipped = svc.ApplyUpdates([]extractor.FileUpdate{
		{FilePath: "README.md", UpdatedContent: "first"},
		{FilePath: "./README.md", UpdatedContent: "second"},
	})
	assert.Equal(t, []string{"README.md"}, applied)
	assert.Equal(t, []Skipped{{Path: "README.md", Reason: SkipDuplicate}}, skipped)
	assert.Equal(t, "first", files.files["README.md"])
	assert.Equal(t, []string{"README.md"}, files.writes)
}

func TestApplyUpdatesCleansPaths(t *testing.T) {
	svc, _, files, _, _ := newFixture("", "", Options{})

	applied, skipped := svc.ApplyUpdates([]extractor.FileUpdate{
		{FilePath: "./README.md", UpdatedContent: "X"},
		{FilePath: "../README.md", UpdatedContent: "Y"},
	})
	assert.Equal(t, []string{"README.md"}, applied)
	assert.Equal(t, []Skipped{{Path: "../README.md", Reason: SkipInvalid}}, skipped)
	assert.Equal(t, "X", files.files["README.md"])
}

func TestApplyUpdatesSkipsBlankContent(t *testing.T) {
	svc, _, files, _, _ := newFixture("", "", Options{})

	applied, skipped := svc.ApplyUpdates([]extractor.FileUpdate{
		{FilePath: "README.md"},
		{FilePath: "README.md", UpdatedContent: " \n\t"},
	})
	assert.Empty(t, applied)
	assert.Equal(t, []Skipped{
		{Path: "README.md", Reason: SkipEmpty},
		{Path: "README.md", Reason: SkipEmpty},
	}, skipped)
	assert.Equal(t, "old readme", files.files["README.md"])
	assert.Empty(t, files.writes)
}

func TestRunRefusesUpdatesToExcerpts(t *testing.T) {
	long := strings.Repeat("Section with many details.\n", 200)
	svc, prs, files, committer, model := newFixture("diff --git a/x b/x", `[{"file_path": "README.md", "updated_content": "short rewrite"}]`, Options{DocsBudget: 300})
	files.files["README.md"] = long

	result, err := svc.Run(context.Background(), Input{Number: 9, Title: "t", Author: "octocat"})
	require.NoError(t, err)

	assert.Contains(t, model.last.Prompt, "### README.md (excerpt)")
	assert.Empty(t, result.Applied)
	assert.Equal(t, []Skipped{{Path: "README.md", Reason: SkipPartial}}, result.Skipped)
	assert.Equal(t, long, files.files["README.md"])
	assert.Empty(t, committer.committed)
	assert.Equal(t, []string{upToDateComment("octocat")}, prs.comments)
}

func TestRunAppliesCommitsAndComments(t *testing.T) {
	svc, prs, files, committer, model := newFixture("diff --git a/x b/x\n+new flag", ghostAnswer, Options{Push: true})

	result, err := svc.Run(context.Background(), Input{Number: 12, Title: "Add --new flag", Author: "octocat"})
	require.NoError(t, err)
	assert.Equal(t, 0, prs.fetched)

	assert.Equal(t, []string{"README.md"}, result.Applied)
	assert.Len(t, result.Proposed, 2)
	assert.Equal(t, "abc123", result.Commit)
	assert.Equal(t, "X", files.files["README.md"])

	assert.Equal(t, [][]string{{"README.md"}}, committer.committed)
	assert.Equal(t, 1, committer.pushes)

	require.Len(t, prs.comments, 1)
	assert.Contains(t, prs.comments[0], "`README.md`")
	assert.NotContains(t, prs.comments[0], "ghost.md")

	assert.Equal(t, 1, model.calls)
	require.NotNil(t, model.last.Shape)
	assert.Equal(t, extractor.Array, *model.last.Shape)
	assert.Contains(t, model.last.Prompt, "+new flag")
	assert.Contains(t, model.last.Prompt, "old readme")
	assert.Contains(t, model.last.Prompt, "Add --new flag")
	assert.Contains(t, model.last.Prompt, "@octocat")
}

func TestRunFetchesPullRequestDetails(t *testing.T) {
	svc, prs, _, _, model := newFixture("diff --git a/x b/x", "[]", Options{})
	prs.pr = &github.Issue{Number: 8, Title: "Rename option", Author: "hubot", IsPullRequest: true}

	_, err := svc.Run(context.Background(), Input{Number: 8})
	require.NoError(t, err)

	assert.Equal(t, 1, prs.fetched)
	assert.Contains(t, model.last.Prompt, "Rename option")
	assert.Equal(t, []string{upToDateComment("hubot")}, prs.comments)
	assert.Contains(t, prs.comments[0], "@hubot")
}

func TestRunPullRequestFetchErrorIsSoft(t *testing.T) {
	svc, prs, _, _, model := newFixture("diff --git a/x b/x", "[]", Options{})
	prs.issueErr = errors.New("github get issue: 502")

	_, err := svc.Run(context.Background(), Input{Number: 8})
	require.NoError(t, err)
	assert.Equal(t, 1, model.calls)
}

func TestRunWithoutPush(t *testing.T) {
	svc, _, _, committer, _ := newFixture("diff --git a/x b/x", ghostAnswer, Options{Push: false})

	_, err := svc.Run(context.Background(), Input{Number: 1})
	require.NoError(t, err)
	assert.Len(t, committer.committed, 1)
	assert.Equal(t, 0, committer.pushes)
}

func TestRunEmptyDiffSkipsModel(t *testing.T) {
	svc, prs, _, committer, model := newFixture("  \n", ghostAnswer, Options{})

	result, err := svc.Run(context.Background(), Input{Number: 3})
	require.NoError(t, err)

	assert.Equal(t, 0, model.calls)
	assert.Empty(t, committer.committed)
	assert.Equal(t, []string{noDiffComment}, prs.comments)
	assert.Equal(t, noDiffComment, result.Comment)
}

func TestRunNoDrift(t *testing.T) {
	svc, prs, files, committer, _ := newFixture("diff --git a/x b/x", "The docs look fine. []", Options{})

	result, err := svc.Run(context.Background(), Input{Number: 4})
	require.NoError(t, err)

	assert.Empty(t, result.Applied)
	assert.Empty(t, files.writes)
	assert.Empty(t, committer.committed)
	assert.Equal(t, []string{upToDateComment("")}, prs.comments)
}

func TestRunUnparseableAnswerIsSoft(t *testing.T) {
	svc, prs, _, committer, _ := newFixture("diff --git a/x b/x", "I could not decide.", Options{})

	result, err := svc.Run(context.Background(), Input{Number: 4})
	require.NoError(t, err)

	assert.Empty(t, result.Proposed)
	assert.Empty(t, committer.committed)
	assert.Equal(t, []string{upToDateComment("")}, prs.comments)
}

func TestRunDryRun(t *testing.T) {
	svc, prs, files, committer, _ := newFixture("diff --git a/x b/x", ghostAnswer, Options{DryRun: true, Push: true})

	result, err := svc.Run(context.Background(), Input{Number: 5})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, []string{"README.md"}, result.Applied)
	assert.Equal(t, "old readme", files.files["README.md"])
	assert.Empty(t, files.writes)
	assert.Empty(t, committer.committed)
	assert.Equal(t, 0, committer.pushes)
	assert.Empty(t, prs.comments)
}

func TestRunDiffErrorIsHard(t *testing.T) {
	svc, prs, _, _, model := newFixture("", "", Options{})
	prs.diffErr = errors.New("github get pull request diff: 401 Bad credentials")

	_, err := svc.Run(context.Background(), Input{Number: 6})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching diff")
	assert.Equal(t, 0, model.calls)
}

func TestRunTruncatesDiff(t *testing.T) {
	long := "diff --git a/a b/a\n" + strings.Repeat("+more content on this line\n", 50)
	svc, _, _, _, model := newFixture(long, "[]", Options{ContextBudget: 100, DryRun: true})

	_, err := svc.Run(context.Background(), Input{Number: 7})
	require.NoError(t, err)
	assert.Contains(t, model.last.Prompt, "[truncated:")
}

func TestUpToDateComment(t *testing.T) {
	assert.Contains(t, upToDateComment("octocat"), "Great job @octocat! 👏")
	assert.NotContains(t, upToDateComment(""), "@")
}
