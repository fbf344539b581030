package prompt

import "unicode/utf8"

// estimateTokens provides a rough token count. Rune count divided by 2 is a
// conservative estimate for both English (~4 chars/token) and CJK
// (~1.5 chars/token) text.
func estimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 2
}
