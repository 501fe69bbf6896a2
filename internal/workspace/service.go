package workspace

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-enry/go-enry/v2"

	"github.com/tildaslashalef/ghmind/internal/loggy"
)

// docLanguages are prose formats worth comparing against code changes
var docLanguages = map[string]bool{
	"Markdown":         true,
	"Text":             true,
	"reStructuredText": true,
	"AsciiDoc":         true,
	"Org":              true,
}

// Service provides file access confined to the workspace root
type Service struct {
	root    string
	logger  *loggy.Logger
	maxSize int64
}

// NewService creates a workspace rooted at dir
func NewService(dir string, logger *loggy.Logger) (*Service, error) {
	if logger == nil {
		logger = loggy.NewNoopLogger()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("opening workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}

	return &Service{root: abs, logger: logger, maxSize: 1 << 20}, nil
}

// Root returns the absolute workspace directory
func (s *Service) Root() string {
	return s.root
}

// clean validates a workspace-relative path and returns it in slash form
func clean(name string) (string, error) {
	name = filepath.ToSlash(strings.TrimSpace(name))
	if name == "" || path.IsAbs(name) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%q: %w", name, ErrOutsideRoot)
	}
	cleaned := path.Clean(strings.TrimPrefix(name, "./"))
	if !fs.ValidPath(cleaned) || cleaned == "." {
		return "", fmt.Errorf("%q: %w", name, ErrOutsideRoot)
	}
	return cleaned, nil
}

// Clean validates a workspace-relative path and returns its canonical slash
// form, so "./docs//a.md" and "docs/a.md" name the same file
func (s *Service) Clean(name string) (string, error) {
	return clean(name)
}

func (s *Service) openRoot() (*os.Root, error) {
	root, err := os.OpenRoot(s.root)
	if err != nil {
		return nil, fmt.Errorf("opening workspace root: %w", err)
	}
	return root, nil
}

// Exists reports whether name is an existing regular file inside the root.
// Invalid paths simply do not exist.
func (s *Service) Exists(name string) bool {
	rel, err := clean(name)
	if err != nil {
		return false
	}
	root, err := s.openRoot()
	if err != nil {
		return false
	}
	defer root.Close()

	info, err := root.Stat(filepath.FromSlash(rel))
	return err == nil && info.Mode().IsRegular()
}

// Read returns the content of a workspace file
func (s *Service) Read(name string) (string, error) {
	rel, err := clean(name)
	if err != nil {
		return "", err
	}
	root, err := s.openRoot()
	if err != nil {
		return "", err
	}
	defer root.Close()

	f, err := root.Open(filepath.FromSlash(rel))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}
	return string(data), nil
}

// Overwrite replaces the full content of an existing file and keeps its
// mode. It never creates files.
func (s *Service) Overwrite(name, content string) error {
	rel, err := clean(name)
	if err != nil {
		return err
	}
	root, err := s.openRoot()
	if err != nil {
		return err
	}
	defer root.Close()

	native := filepath.FromSlash(rel)
	info, err := root.Stat(native)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", rel, ErrNotExist)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", rel)
	}

	f, err := root.OpenFile(native, os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("opening %s: %w", rel, err)
	}
	if _, err := io.WriteString(f, content); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", rel, err)
	}

	s.logger.Debug("Overwrote workspace file", "path", rel, "bytes", len(content))
	return nil
}

// DocumentationFiles collects up to limit documentation files, root level
// first. Vendored trees, dot directories and binary files are skipped.
// A limit of zero or less means no limit.
func (s *Service) DocumentationFiles(limit int) ([]Document, error) {
	root, err := s.openRoot()
	if err != nil {
		return nil, err
	}
	defer root.Close()
	fsys := root.FS()

	var docs []Document
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Debug("Skipping unreadable path", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p == "." {
			return nil
		}

		if d.IsDir() {
			if enry.IsDotFile(p) || enry.IsVendor(p+"/") {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || enry.IsDotFile(p) || enry.IsVendor(p) {
			return nil
		}

		// README, CHANGELOG and friends carry no extension; code living under
		// docs/ or examples/ does and is left out.
		candidates := enry.GetLanguagesByExtension(p, nil, nil)
		if !isDocLanguage(candidates) && !(len(candidates) == 0 && enry.IsDocumentation(p)) {
			return nil
		}
		if enry.IsImage(p) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > s.maxSize {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			s.logger.Debug("Skipping unreadable file", "path", p, "error", err)
			return nil
		}
		if enry.IsBinary(data) {
			return nil
		}
		lang := enry.GetLanguage(path.Base(p), data)

		docs = append(docs, Document{Path: p, Language: lang, Content: string(data)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking workspace: %w", err)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		di, dj := strings.Count(docs[i].Path, "/"), strings.Count(docs[j].Path, "/")
		if di != dj {
			return di < dj
		}
		return docs[i].Path < docs[j].Path
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	s.logger.Debug("Collected documentation files", "count", len(docs))
	return docs, nil
}

func isDocLanguage(candidates []string) bool {
	for _, c := range candidates {
		if docLanguages[c] {
			return true
		}
	}
	return false
}
