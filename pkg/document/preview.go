package document

import "unicode/utf8"

// PreviewLength is how many characters of a parse are shown by default.
const PreviewLength = 1200

// Preview returns the first n characters of text and the number of
// characters left out. Characters are runes, so multi-byte text is never
// split.
func Preview(text string, n int) (string, int) {
	count := 0
	for i := range text {
		if count == n {
			return text[:i], utf8.RuneCountInString(text[i:])
		}
		count++
	}
	return text, 0
}
