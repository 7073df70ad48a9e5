package optout

import "strings"

// Keywords that signal an opt-out intent. Matching is a case-insensitive
// substring match, so "stopping" also triggers it. The confirmation
// message tells the user how to opt back in after a false positive.
var keywords = []string{"stop", "unsubscribe", "opt-out", "optout"}

// Detect reports whether the message text contains an opt-out keyword.
func Detect(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ConfirmationText is sent back to a user after their opt-out is recorded.
const ConfirmationText = "You have been unsubscribed. Reply START to opt back in."
