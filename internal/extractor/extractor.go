package extractor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tildaslashalef/ghmind/internal/loggy"
)

// Shape is the kind of JSON value a caller expects
type Shape int

const (
	// Array is a JSON array, delimited by [ and ]
	Array Shape = iota
	// Object is a JSON object, delimited by { and }
	Object
)

// Delimiters returns the opening and closing byte of the shape
func (s Shape) Delimiters() (byte, byte) {
	if s == Object {
		return '{', '}'
	}
	return '[', ']'
}

func (s Shape) String() string {
	if s == Object {
		return "object"
	}
	return "array"
}

// Strategy selects how candidate JSON regions are located
type Strategy string

const (
	// Naive spans the first opening delimiter to the last closing one
	Naive Strategy = "naive"
	// Balanced scans for depth- and quote-aware regions and prefers the last valid one
	Balanced Strategy = "balanced"
)

// ParseStrategy converts a configuration string to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case Naive:
		return Naive, nil
	case Balanced, "":
		return Balanced, nil
	default:
		return "", fmt.Errorf("unknown extractor strategy: %s", s)
	}
}

var fencedBlockRegex = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\r?\n?(.*?)```")

// Extractor locates and decodes JSON values in model output
type Extractor struct {
	strategy Strategy
	logger   *loggy.Logger
}

// New creates an Extractor. A nil logger discards output.
func New(strategy Strategy, logger *loggy.Logger) *Extractor {
	if strategy == "" {
		strategy = Balanced
	}
	if logger == nil {
		logger = loggy.NewNoopLogger()
	}
	return &Extractor{strategy: strategy, logger: logger}
}

// Strategy returns the configured strategy
func (e *Extractor) Strategy() Strategy {
	return e.strategy
}

// Candidates returns the substrings of text that may hold the answer, best first
func (e *Extractor) Candidates(text string, shape Shape) []string {
	open, close := shape.Delimiters()

	if e.strategy == Naive {
		if c, ok := naiveSpan(text, open, close); ok {
			return []string{c}
		}
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	// Fenced blocks are the most explicit signal; later blocks win over earlier ones.
	blocks := fencedBlockRegex.FindAllStringSubmatch(text, -1)
	for i := len(blocks) - 1; i >= 0; i-- {
		body := strings.TrimSpace(blocks[i][1])
		if len(body) > 1 && body[0] == open && body[len(body)-1] == close && json.Valid([]byte(body)) {
			add(body)
		}
	}

	regions := balancedRegions(text, open, close)
	for i := len(regions) - 1; i >= 0; i-- {
		if json.Valid([]byte(regions[i])) {
			add(regions[i])
		}
	}

	if c, ok := naiveSpan(text, open, close); ok {
		add(c)
	}

	return out
}

// Locate returns the best candidate region for shape
func (e *Extractor) Locate(text string, shape Shape) (string, bool) {
	candidates := e.Candidates(text, shape)
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[0], true
}

// Decode returns the first candidate that parses as JSON of the requested shape
func (e *Extractor) Decode(text string, shape Shape) (any, bool) {
	for _, c := range e.Candidates(text, shape) {
		var v any
		if shape == Object {
			var m map[string]any
			if err := json.Unmarshal([]byte(c), &m); err != nil {
				continue
			}
			v = m
		} else {
			var a []any
			if err := json.Unmarshal([]byte(c), &a); err != nil {
				continue
			}
			v = a
		}
		return v, true
	}
	return nil, false
}

// DecodeArray decodes the JSON array embedded in text. Any failure yields an
// empty, non-nil slice.
func DecodeArray[T any](e *Extractor, text string) []T {
	candidates := e.Candidates(text, Array)
	if len(candidates) == 0 {
		e.logger.Warn("No JSON array found in model response", "response_length", len(text))
		return []T{}
	}

	out, ok := decodeBest[[]T](e, candidates, Array)
	if !ok {
		e.logger.Warn("Model response did not contain a parseable JSON array",
			"candidates", len(candidates),
			"strategy", string(e.strategy))
		return []T{}
	}
	if out == nil {
		out = []T{}
	}
	return out
}

// DecodeObject decodes the JSON object embedded in text, returning fallback
// unchanged on any failure.
func DecodeObject[T any](e *Extractor, text string, fallback T) T {
	candidates := e.Candidates(text, Object)
	if len(candidates) == 0 {
		e.logger.Warn("No JSON object found in model response", "response_length", len(text))
		return fallback
	}

	out, ok := decodeBest[T](e, candidates, Object)
	if !ok {
		e.logger.Warn("Model response did not contain a parseable JSON object",
			"candidates", len(candidates),
			"strategy", string(e.strategy))
		return fallback
	}
	return out
}

// decodeBest walks candidates twice. The first pass only accepts candidates
// whose every key belongs to T, so an example such as {"debug": true} in
// surrounding prose cannot displace the answer. The second pass accepts any
// candidate that decodes.
func decodeBest[T any](e *Extractor, candidates []string, shape Shape) (T, bool) {
	for _, c := range candidates {
		var out T
		dec := json.NewDecoder(strings.NewReader(c))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&out); err == nil {
			return out, true
		}
	}

	for _, c := range candidates {
		var out T
		if err := json.Unmarshal([]byte(c), &out); err != nil {
			e.logger.Debug("Candidate rejected", "shape", shape.String(), "error", err, "length", len(c))
			continue
		}
		return out, true
	}

	var zero T
	return zero, false
}

// naiveSpan is the first-opening to last-closing substring, inclusive
func naiveSpan(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end < 0 || start >= end {
		return "", false
	}
	return text[start : end+1], true
}

// balancedRegions returns every outermost region of text that opens with open
// and closes at matching depth. Delimiters inside JSON strings are ignored.
// A start that never closes is skipped and scanning resumes right after it.
func balancedRegions(text string, open, close byte) []string {
	var regions []string

	for i := 0; i < len(text); i++ {
		if text[i] != open {
			continue
		}
		end := matchClose(text, i, open, close)
		if end < 0 {
			continue
		}
		regions = append(regions, text[i:end+1])
		i = end
	}

	return regions
}

func matchClose(text string, start int, open, close byte) int {
	depth := 0
	inString := false

	for j := start; j < len(text); j++ {
		c := text[j]
		if inString {
			switch c {
			case '\\':
				j++
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return j
			}
		}
	}

	return -1
}
