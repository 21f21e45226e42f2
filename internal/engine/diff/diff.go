package diff

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultWindow is the default lookahead of the window strategy.
const DefaultWindow = 5

// Kind classifies a diff line.
type Kind uint8

const (
	// Same indicates a line present in both versions.
	Same Kind = iota

	// Added indicates a line only in the new version.
	Added

	// Removed indicates a line only in the old version.
	Removed
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case Same:
		return "same"
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Line is one line of diff output.
type Line struct {
	Kind Kind
	Text string
}

// Strategy selects the line matching algorithm.
type Strategy uint8

const (
	// StrategyWindow is the bounded-lookahead matcher.
	StrategyWindow Strategy = iota

	// StrategyLCS is a minimal line diff.
	StrategyLCS
)

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyWindow:
		return "window"
	case StrategyLCS:
		return "lcs"
	default:
		return "unknown"
	}
}

// ParseStrategy parses a strategy name. Unknown names report false.
func ParseStrategy(name string) (Strategy, bool) {
	switch strings.ToLower(name) {
	case "", "window":
		return StrategyWindow, true
	case "lcs", "myers":
		return StrategyLCS, true
	default:
		return StrategyWindow, false
	}
}

// Options configures diff computation.
type Options struct {
	// Strategy selects the matching algorithm. Default is StrategyWindow.
	Strategy Strategy

	// Window is the lookahead of StrategyWindow. Default is 5.
	Window int
}

// DefaultOptions returns default diff options.
func DefaultOptions() Options {
	return Options{
		Strategy: StrategyWindow,
		Window:   DefaultWindow,
	}
}

// Option adjusts Options for a single call.
type Option func(*Options)

// WithWindow sets the lookahead window. Values below 1 are ignored.
func WithWindow(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Window = n
		}
	}
}

// WithStrategy sets the matching strategy.
func WithStrategy(s Strategy) Option {
	return func(o *Options) {
		o.Strategy = s
	}
}

// WithOptions replaces all options at once.
func WithOptions(opts Options) Option {
	return func(o *Options) {
		*o = opts
		if o.Window <= 0 {
			o.Window = DefaultWindow
		}
	}
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// HTML normalizes two HTML blobs and diffs the resulting lines.
func HTML(oldHTML, newHTML string, opts ...Option) []Line {
	return Lines(Normalize(oldHTML), Normalize(newHTML), opts...)
}

// Lines diffs two line sequences.
func Lines(oldLines, newLines []string, opts ...Option) []Line {
	o := buildOptions(opts)
	if o.Strategy == StrategyLCS {
		return lcsDiff(oldLines, newLines)
	}
	return windowDiff(oldLines, newLines, o.Window)
}

// windowDiff walks both sequences with one cursor each, resynchronizing
// through a lookahead of window lines on either side.
func windowDiff(oldLines, newLines []string, window int) []Line {
	n, m := len(oldLines), len(newLines)
	result := make([]Line, 0, max(n, m))

	i, j := 0, 0
	for i < n || j < m {
		if i >= n {
			result = append(result, Line{Kind: Added, Text: newLines[j]})
			j++
			continue
		}
		if j >= m {
			result = append(result, Line{Kind: Removed, Text: oldLines[i]})
			i++
			continue
		}

		if oldLines[i] == newLines[j] {
			result = append(result, Line{Kind: Same, Text: oldLines[i]})
			i++
			j++
			continue
		}

		foundOld := indexWithin(oldLines, i, window, newLines[j])
		foundNew := indexWithin(newLines, j, window, oldLines[i])

		switch {
		case foundOld >= 0 && (foundNew < 0 || foundOld-i <= foundNew-j):
			for ; i < foundOld; i++ {
				result = append(result, Line{Kind: Removed, Text: oldLines[i]})
			}
		case foundNew >= 0:
			for ; j < foundNew; j++ {
				result = append(result, Line{Kind: Added, Text: newLines[j]})
			}
		default:
			result = append(result,
				Line{Kind: Removed, Text: oldLines[i]},
				Line{Kind: Added, Text: newLines[j]},
			)
			i++
			j++
		}
	}

	return result
}

// indexWithin returns the index of target in lines[start:start+window],
// or -1 if it is not there.
func indexWithin(lines []string, start, window int, target string) int {
	end := min(start+window, len(lines))
	for k := start; k < end; k++ {
		if lines[k] == target {
			return k
		}
	}
	return -1
}

// lcsDiff computes a minimal line diff with diffmatchpatch.
// Each distinct line is encoded as one rune so the character diff works on
// whole lines; output is rebuilt by position, so only rune counts matter.
func lcsDiff(oldLines, newLines []string) []Line {
	index := make(map[string]rune)
	encode := func(lines []string) []rune {
		runes := make([]rune, len(lines))
		for k, line := range lines {
			r, ok := index[line]
			if !ok {
				r = rune(len(index) + 1)
				index[line] = r
			}
			runes[k] = r
		}
		return runes
	}
	rOld := encode(oldLines)
	rNew := encode(newLines)

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(rOld, rNew, false)

	result := make([]Line, 0, max(len(oldLines), len(newLines)))
	i, j := 0, 0
	for _, d := range diffs {
		count := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			for k := 0; k < count; k++ {
				result = append(result, Line{Kind: Same, Text: oldLines[i]})
				i++
				j++
			}
		case diffmatchpatch.DiffDelete:
			for k := 0; k < count; k++ {
				result = append(result, Line{Kind: Removed, Text: oldLines[i]})
				i++
			}
		case diffmatchpatch.DiffInsert:
			for k := 0; k < count; k++ {
				result = append(result, Line{Kind: Added, Text: newLines[j]})
				j++
			}
		}
	}

	return result
}
