// Package diff computes line-level diffs between two versions of a slide.
//
// Diffing is a two-stage pipeline. [Normalize] turns an HTML blob into an
// ordered sequence of logical lines (one tag or text run per line, indented
// by nesting depth), and [Lines] compares two line sequences:
//
//	lines := diff.HTML(oldHTML, newHTML)
//	for _, l := range lines {
//	    fmt.Println(l.Kind, l.Text)
//	}
//
// # Strategies
//
// The default strategy is a greedy bounded-lookahead matcher. When two lines
// differ it looks up to Window lines ahead on each side for a resync point,
// treating skipped lines as removals or additions, and falls back to a
// one-for-one replacement when neither window matches. It runs in O(n·W) and
// does not guarantee a minimal diff; slide content is small and the result
// is only used for change highlighting.
//
// [StrategyLCS] produces a minimal line diff instead, using the Myers
// implementation from diffmatchpatch. Both strategies satisfy:
//
//	Same + Removed == len(old)
//	Same + Added   == len(new)
//
// # Malformed Input
//
// If the tokenizer fails or finds no tags, Normalize falls back to raw text
// lines, so a diff is always produced.
package diff
