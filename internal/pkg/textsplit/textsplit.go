// Package textsplit implements fixed-width sliding-window chunking.
package textsplit

// Split cuts text into windows of size runes, each overlapping the
// previous by overlap runes. Boundaries are rune-based so multi-byte
// text never splits mid-character. Empty input yields no chunks; an
// overlap >= size is clamped to size/2.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Count returns how many chunks Split would produce without building
// them.
func Count(textLen, size, overlap int) int {
	if size <= 0 || textLen <= 0 {
		return 0
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	if textLen <= size {
		return 1
	}
	step := size - overlap
	return (textLen-size+step-1)/step + 1
}
