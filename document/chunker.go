package document

// SplitText cuts full text into fixed-size pieces of at most size
// runes, in order, with no overlap and no gaps. Boundaries are purely
// positional and may fall inside a word; re-concatenating the chunks
// recovers the source text exactly. Overlap is deliberately 0: the
// retrieval side restores surrounding context by chunk position, so
// exact slicing keeps the index free of duplicated text.
func SplitText(text string, size int) []string {
	if size <= 0 || text == "" {
		return nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/size+1)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
