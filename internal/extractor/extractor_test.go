package extractor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/ghmind/internal/loggy"
)

func strategies() map[string]*Extractor {
	logger := loggy.NewNoopLogger()
	return map[string]*Extractor{
		"naive":    New(Naive, logger),
		"balanced": New(Balanced, logger),
	}
}

func TestDecodeArray(t *testing.T) {
	for name, e := range strategies() {
		t.Run(name, func(t *testing.T) {
			t.Run("array surrounded by prose", func(t *testing.T) {
				input := "Sure! Here are the labels:\n[\"bug\", \"documentation\"]\nLet me know if you need more."
				assert.Equal(t, []string{"bug", "documentation"}, DecodeArray[string](e, input))
			})

			t.Run("array inside code fence", func(t *testing.T) {
				input := "```json\n[{\"file_path\": \"README.md\", \"updated_content\": \"X\"}]\n```"
				got := DecodeArray[FileUpdate](e, input)
				require.Len(t, got, 1)
				assert.Equal(t, FileUpdate{FilePath: "README.md", UpdatedContent: "X"}, got[0])
			})

			t.Run("no delimiters", func(t *testing.T) {
				got := DecodeArray[string](e, "I could not find anything relevant.")
				assert.NotNil(t, got)
				assert.Empty(t, got)
			})

			t.Run("closing before opening", func(t *testing.T) {
				got := DecodeArray[string](e, "oops ] nothing here [")
				assert.NotNil(t, got)
				assert.Empty(t, got)
			})

			t.Run("invalid json", func(t *testing.T) {
				got := DecodeArray[string](e, "[bug, documentation]")
				assert.NotNil(t, got)
				assert.Empty(t, got)
			})

			t.Run("empty array", func(t *testing.T) {
				got := DecodeArray[string](e, "No drift detected: []")
				assert.NotNil(t, got)
				assert.Empty(t, got)
			})

			t.Run("empty input", func(t *testing.T) {
				assert.Empty(t, DecodeArray[string](e, ""))
			})
		})
	}
}

func TestDecodeObject(t *testing.T) {
	original := IssueDraft{Title: "crash", Body: "it crashes"}

	for name, e := range strategies() {
		t.Run(name, func(t *testing.T) {
			t.Run("object surrounded by prose", func(t *testing.T) {
				input := "Here is the improved issue:\n{\"title\": \"App crashes on start\", \"body\": \"Steps: {1} open app\"}\nThanks."
				got := DecodeObject(e, input, original)
				assert.Equal(t, IssueDraft{Title: "App crashes on start", Body: "Steps: {1} open app"}, got)
			})

			t.Run("no braces returns fallback", func(t *testing.T) {
				assert.Equal(t, original, DecodeObject(e, "I cannot improve this issue.", original))
			})

			t.Run("inverted braces return fallback", func(t *testing.T) {
				assert.Equal(t, original, DecodeObject(e, "} broken {", original))
			})

			t.Run("malformed object returns fallback", func(t *testing.T) {
				assert.Equal(t, original, DecodeObject(e, "{title: nope}", original))
			})
		})
	}
}

func TestMultipleRegions(t *testing.T) {
	input := "The format looks like [\"example\"]. My answer:\n[\"bug\", \"security\"]"

	t.Run("naive merges regions and falls back", func(t *testing.T) {
		e := New(Naive, nil)
		got := DecodeArray[string](e, input)
		assert.Empty(t, got)
	})

	t.Run("balanced prefers the last valid region", func(t *testing.T) {
		e := New(Balanced, nil)
		assert.Equal(t, []string{"bug", "security"}, DecodeArray[string](e, input))
	})

	t.Run("balanced skips regions of the wrong element type", func(t *testing.T) {
		e := New(Balanced, nil)
		got := DecodeArray[string](e, "Answer: [\"bug\"] (see note [1])")
		assert.Equal(t, []string{"bug"}, got)
	})

	t.Run("brackets inside strings do not end a region", func(t *testing.T) {
		e := New(Balanced, nil)
		got := DecodeArray[FileUpdate](e, `[{"file_path": "docs/api.md", "updated_content": "Use arr[0] and \"]\" carefully"}] done`)
		require.Len(t, got, 1)
		assert.Equal(t, "Use arr[0] and \"]\" carefully", got[0].UpdatedContent)
	})

	t.Run("object with the expected keys beats a trailing example", func(t *testing.T) {
		e := New(Balanced, nil)
		input := "{\"title\": \"Crash on start\", \"body\": \"Steps\"}\nYou could also enable logging, e.g. {\"debug\": true}."
		got := DecodeObject(e, input, IssueDraft{Title: "orig"})
		assert.Equal(t, IssueDraft{Title: "Crash on start", Body: "Steps"}, got)
	})

	t.Run("extra keys are accepted when nothing matches exactly", func(t *testing.T) {
		e := New(Balanced, nil)
		got := DecodeObject(e, `{"title": "T", "body": "B", "notes": "n"}`, IssueDraft{})
		assert.Equal(t, IssueDraft{Title: "T", Body: "B"}, got)
	})

	t.Run("array of records skips a trailing scalar example", func(t *testing.T) {
		e := New(Balanced, nil)
		got := DecodeArray[FileUpdate](e, `[{"file_path": "README.md", "updated_content": "X"}] see [1]`)
		require.Len(t, got, 1)
		assert.Equal(t, "README.md", got[0].FilePath)
	})

	t.Run("unclosed prose bracket is skipped", func(t *testing.T) {
		e := New(Balanced, nil)
		got := DecodeArray[string](e, "[draft notes follow ... [\"enhancement\"]")
		assert.Equal(t, []string{"enhancement"}, got)
	})
}

func TestLocate(t *testing.T) {
	e := New(Balanced, nil)

	region, ok := e.Locate("prefix {\"a\": [1, 2]} suffix", Object)
	assert.True(t, ok)
	assert.Equal(t, `{"a": [1, 2]}`, region)

	_, ok = e.Locate("nothing", Array)
	assert.False(t, ok)

	naive := New(Naive, nil)
	region, ok = naive.Locate("a [1] b [2] c", Array)
	assert.True(t, ok)
	assert.Equal(t, "[1] b [2]", region)
}

func TestDecodeIsIdempotent(t *testing.T) {
	inputs := []struct {
		text  string
		shape Shape
	}{
		{"labels: [\"bug\", \"ci\"]", Array},
		{"```json\n[{\"file_path\": \"a.md\", \"updated_content\": \"# A\\n\"}]\n```", Array},
		{"result {\"title\": \"T\", \"body\": \"B [x]\"} end", Object},
		{"[[1, 2], {\"k\": [\"v\"]}]", Array},
	}

	for name, e := range strategies() {
		for _, in := range inputs {
			first, ok := e.Decode(in.text, in.shape)
			require.True(t, ok, "%s: %q", name, in.text)

			encoded, err := json.Marshal(first)
			require.NoError(t, err)

			second, ok := e.Decode(string(encoded), in.shape)
			require.True(t, ok)
			assert.Equal(t, first, second, "%s: %q", name, in.text)
		}
	}
}

func TestDecodeWrongShape(t *testing.T) {
	e := New(Balanced, nil)
	_, ok := e.Decode("{\"a\": 1}", Array)
	assert.False(t, ok)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("NAIVE")
	require.NoError(t, err)
	assert.Equal(t, Naive, s)

	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, Balanced, s)

	_, err = ParseStrategy("grammar")
	assert.Error(t, err)
}

func TestShapeDelimiters(t *testing.T) {
	open, close := Array.Delimiters()
	assert.Equal(t, byte('['), open)
	assert.Equal(t, byte(']'), close)

	open, close = Object.Delimiters()
	assert.Equal(t, byte('{'), open)
	assert.Equal(t, byte('}'), close)
}
