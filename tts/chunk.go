package tts

import (
	"regexp"
	"unicode/utf8"
)

var (
	lineBreaks = regexp.MustCompile(`\n+`)
	spaces     = regexp.MustCompile(` +`)
)

// ChunkText splits text into pieces of at most max bytes so it fits a
// provider's request limit. It breaks between lines where it can and
// between words inside lines that are too long on their own.
func ChunkText(text string, max int) []string {
	if max <= 0 || len(text) <= max {
		return []string{text}
	}

	var chunks []string
	for _, line := range lineBreaks.Split(text, -1) {
		if line == "" {
			continue
		}
		if len(line) > max {
			chunks = append(chunks, chunkWords(line, max)...)
			continue
		}
		if n := len(chunks); n > 0 && len(chunks[n-1])+1+len(line) <= max {
			chunks[n-1] += "\n" + line
			continue
		}
		chunks = append(chunks, line)
	}
	return chunks
}

func chunkWords(line string, max int) []string {
	var chunks []string
	for _, word := range spaces.Split(line, -1) {
		if word == "" {
			continue
		}
		for len(word) > max {
			cut := runeBoundary(word, max)
			chunks = append(chunks, word[:cut])
			word = word[cut:]
		}
		if n := len(chunks); n > 0 && len(chunks[n-1])+1+len(word) <= max {
			chunks[n-1] += " " + word
			continue
		}
		chunks = append(chunks, word)
	}
	return chunks
}

// runeBoundary returns the largest index <= max that does not split a rune.
func runeBoundary(s string, max int) int {
	for i := max; i > 0; i-- {
		if utf8.RuneStart(s[i]) {
			return i
		}
	}
	return max
}

