package report

import "strings"

// DefaultChunkLimit is the largest message many chat platforms accept.
const DefaultChunkLimit = 4096

// Chunks splits text into pieces no longer than limit runes. Splits prefer
// paragraph boundaries, then line boundaries, and only cut mid-line when a
// single line exceeds the limit on its own.
func Chunks(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}
	if len([]rune(text)) <= limit {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
		current.Reset()
		currentLen = 0
	}

	for _, para := range strings.Split(text, "\n\n") {
		paraRunes := []rune(para)
		sep := 0
		if currentLen > 0 {
			sep = 2
		}

		if currentLen+sep+len(paraRunes) <= limit {
			if sep > 0 {
				current.WriteString("\n\n")
				currentLen += 2
			}
			current.WriteString(para)
			currentLen += len(paraRunes)
			continue
		}

		flush()

		if len(paraRunes) <= limit {
			current.WriteString(para)
			currentLen = len(paraRunes)
			continue
		}

		// Paragraph alone exceeds the limit; fall back to line splits.
		for _, line := range strings.Split(para, "\n") {
			lineRunes := []rune(line)
			sep = 0
			if currentLen > 0 {
				sep = 1
			}

			if currentLen+sep+len(lineRunes) <= limit {
				if sep > 0 {
					current.WriteString("\n")
					currentLen++
				}
				current.WriteString(line)
				currentLen += len(lineRunes)
				continue
			}

			flush()

			// Hard-cut lines longer than the limit.
			for len(lineRunes) > limit {
				chunks = append(chunks, string(lineRunes[:limit]))
				lineRunes = lineRunes[limit:]
			}
			current.WriteString(string(lineRunes))
			currentLen = len(lineRunes)
		}
	}

	flush()
	return chunks
}
