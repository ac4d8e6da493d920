package augmenter

import (
	"unicode"

	"github.com/ruckquest/augmenter/models"
)

// SplitWindows partitions doc into an ordered sequence of word-aligned
// windows of at most size words each. The partition is exact: windows never
// split a word, there are no gaps and no overlaps, and the final window may
// be shorter than size. A document shorter than size words yields exactly
// one window covering the whole document.
func SplitWindows(doc string, size int) []models.Window {
	if size <= 0 {
		size = DefaultWindowWords
	}

	starts := wordStarts(doc)
	if len(starts) == 0 {
		return []models.Window{{
			StartWord: 0,
			EndWord:   0,
			StartChar: 0,
			EndChar:   len(doc),
			Text:      doc,
		}}
	}

	var windows []models.Window
	for i := 0; i < len(starts); i += size {
		// Each boundary sits on a word start, so trailing whitespace belongs
		// to the preceding window and the leading whitespace of the document
		// to the first.
		startChar := 0
		if i > 0 {
			startChar = starts[i]
		}

		endWord := i + size
		if endWord > len(starts) {
			endWord = len(starts)
		}

		endChar := len(doc)
		if endWord < len(starts) {
			endChar = starts[endWord]
		}

		windows = append(windows, models.Window{
			StartWord: i,
			EndWord:   endWord,
			StartChar: startChar,
			EndChar:   endChar,
			Text:      doc[startChar:endChar],
		})
	}

	return windows
}

// wordStarts returns the byte offset of every word start in s, where a word
// is a maximal run of non-whitespace.
func wordStarts(s string) []int {
	var starts []int
	inWord := false
	for i, r := range s {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			starts = append(starts, i)
			inWord = true
		}
	}
	return starts
}
