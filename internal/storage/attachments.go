package storage

import (
	"regexp"
	"strings"
)

var attachmentRef = regexp.MustCompile(`(?i)ri:attachment\s+ri:filename="([^"]+)"`)

// AttachmentNames lists the distinct attachment file names a document
// references, in first-seen order.
func AttachmentNames(csf string) []string {
	matches := attachmentRef.FindAllStringSubmatch(csf, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
