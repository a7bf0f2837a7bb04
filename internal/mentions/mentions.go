// Package mentions extracts @handle tokens from document content.
package mentions

import "regexp"

var handlePattern = regexp.MustCompile(`@(\w+)`)

// Extract returns the handles mentioned in text, in order of appearance,
// without the leading @. Duplicates and self-mentions are preserved;
// resolution against user records happens at the service layer.
func Extract(text string) []string {
	matches := handlePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	handles := make([]string, 0, len(matches))
	for _, m := range matches {
		handles = append(handles, m[1])
	}
	return handles
}
