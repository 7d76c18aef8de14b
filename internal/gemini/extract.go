package gemini

import (
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:\\w+)?\\s*(.*?)\\s*```")

// ExtractCode pulls the code out of a model response. Models frequently wrap
// output in a fenced block despite instructions not to; when a fence is
// present the first block wins, otherwise the trimmed response is returned
// as-is.
func ExtractCode(response string) string {
	if m := fencedBlockRe.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(response)
}
