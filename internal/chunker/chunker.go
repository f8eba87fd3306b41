package chunker

import (
	"strings"
)

// Default chunking parameters. The word and character ceilings track the
// provider's per-request synthesis limits; the overlap gives the TTS model
// renewed prosodic context at chunk boundaries.
const (
	DefaultMaxWordsPerChunk = 100
	DefaultMaxCharsPerChunk = 800
	DefaultOverlapWords     = 5
)

// TextChunk is one provider-safe slice of a script. Ordering among chunks
// is the playback order and must be preserved end-to-end.
type TextChunk struct {
	Text      string `json:"text"`
	StartWord int    `json:"startWord"` // index of first word in the source script
	EndWord   int    `json:"endWord"`   // index of last word (inclusive)
	WordCount int    `json:"wordCount"`
	CharCount int    `json:"charCount"`
}

// Options controls how a script is split
type Options struct {
	MaxWordsPerChunk     int
	MaxCharsPerChunk     int
	PreferSentenceBreaks bool
	OverlapWords         int
}

// DefaultOptions returns the default chunking options
func DefaultOptions() Options {
	return Options{
		MaxWordsPerChunk:     DefaultMaxWordsPerChunk,
		MaxCharsPerChunk:     DefaultMaxCharsPerChunk,
		PreferSentenceBreaks: true,
		OverlapWords:         DefaultOverlapWords,
	}
}

// Chunk splits text into provider-safe chunks. It never fails: degenerate
// input collapses to a single chunk carrying the text verbatim.
//
// The walk tests each candidate word against both limits before appending;
// a chunk that would overflow is closed first, unless it holds at most one
// word, in which case the word is force-appended so a single oversized
// token cannot stall the walk. When PreferSentenceBreaks is set a chunk
// also closes right after a word carrying sentence-ending punctuation.
// Each new chunk starts OverlapWords words before the cursor (clamped at
// zero), so consecutive chunks repeat a short trailing run of words.
func Chunk(text string, opts Options) []TextChunk {
	words := strings.Fields(text)
	if len(text) == 0 || len(words) == 0 {
		return []TextChunk{{Text: text, CharCount: len(text)}}
	}

	var chunks []TextChunk
	start := 0
	emittedThrough := 0
	cur := make([]string, 0, opts.MaxWordsPerChunk)
	curChars := 0

	closeChunk := func(end int) {
		joined := strings.Join(cur, " ")
		chunks = append(chunks, TextChunk{
			Text:      joined,
			StartWord: start,
			EndWord:   end - 1,
			WordCount: len(cur),
			CharCount: len(joined),
		})
		emittedThrough = end

		// Seed the next chunk with the trailing overlap
		next := end - opts.OverlapWords
		if next < 0 {
			next = 0
		}
		start = next
		cur = append(cur[:0], words[next:end]...)
		curChars = len(strings.Join(cur, " "))
	}

	for i, w := range words {
		candChars := curChars + len(w)
		if len(cur) > 0 {
			candChars++ // joining space
		}
		overflow := len(cur)+1 > opts.MaxWordsPerChunk || candChars > opts.MaxCharsPerChunk
		if overflow && len(cur) > 1 {
			closeChunk(i)
			candChars = curChars + len(w)
			if len(cur) > 0 {
				candChars++
			}
		}

		cur = append(cur, w)
		curChars = candChars

		// Lenient match: punctuation anywhere in the word counts, so
		// quoted or parenthesized sentence ends still break.
		if opts.PreferSentenceBreaks && strings.ContainsAny(w, ".!?") {
			closeChunk(i + 1)
		}
	}

	if emittedThrough < len(words) {
		closeChunk(len(words))
	}

	return chunks
}

// ValidationReport summarizes how a chunking run covered its source text
type ValidationReport struct {
	OriginalWordCount int     `json:"originalWordCount"`
	TotalChunkWords   int     `json:"totalChunkWords"`
	TotalOverlapWords int     `json:"totalOverlapWords"`
	ChunkCount        int     `json:"chunkCount"`
	Coverage          float64 `json:"coverage"`
	IsValid           bool    `json:"isValid"`
}

// Validate checks that chunks cover the original script. IsValid allows a
// tolerance of one word per chunk, because a boundary word may be counted
// on both sides of a join.
func Validate(chunks []TextChunk, original string) ValidationReport {
	report := ValidationReport{
		OriginalWordCount: len(strings.Fields(original)),
		ChunkCount:        len(chunks),
	}

	for i, c := range chunks {
		report.TotalChunkWords += c.WordCount
		if i > 0 {
			shared := chunks[i-1].EndWord + 1 - c.StartWord
			if shared > 0 {
				report.TotalOverlapWords += shared
			}
		}
	}

	unique := report.TotalChunkWords - report.TotalOverlapWords
	if report.OriginalWordCount > 0 {
		report.Coverage = float64(unique) / float64(report.OriginalWordCount)
	}

	diff := unique - report.OriginalWordCount
	if diff < 0 {
		diff = -diff
	}
	report.IsValid = diff <= report.ChunkCount

	return report
}
