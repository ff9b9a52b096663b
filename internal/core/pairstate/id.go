package pairstate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// PreviewLength is the number of characters kept for prompt/response previews
	PreviewLength = 100

	idSeparator = "_"
	// noUserSentinel stands in for a missing user message. Escaped ids never
	// contain a '%' that is not followed by "25" or "5F", so it cannot collide.
	noUserSentinel = "%none"
)

var idEscaper = strings.NewReplacer("%", "%25", "_", "%5F")

// PairID derives the stable identity of a question/answer pair from message ids.
// userMessageID may be empty when the reply has no preceding prompt.
func PairID(conversationID, userMessageID, assistantMessageID string) string {
	user := noUserSentinel
	if userMessageID != "" {
		user = idEscaper.Replace(userMessageID)
	}
	return idEscaper.Replace(conversationID) + idSeparator + user + idSeparator + idEscaper.Replace(assistantMessageID)
}

// ContentHash fingerprints the previews of a pair. Not used for identity.
func ContentHash(prompt, response string) string {
	h := sha256.New()
	h.Write([]byte(Truncate(prompt, PreviewLength)))
	h.Write([]byte{0})
	h.Write([]byte(Truncate(response, PreviewLength)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Truncate returns the first max characters of s
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
