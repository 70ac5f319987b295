package classify

import (
	"regexp"
	"strings"
)

var (
	// orcaAnswerRe captures what follows the last answer marker, up to the
	// end of the line or sentence.
	orcaAnswerRe = regexp.MustCompile(`(?i)(?:### Final answer:|Output:)([^\n.]*)`)
	// leadingMarkerRe strips a leading "Category:" or "Output:" label.
	leadingMarkerRe = regexp.MustCompile(`(?i)^\s*(?:Category:|Output:)\s*`)
)

// isOrca reports whether model belongs to the orca family, whose answers
// reason first and put the result after a marker.
func isOrca(model string) bool {
	name := strings.ToLower(model)
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.HasPrefix(name, "orca")
}

// extractCategory turns a raw model reply into a category string.
func extractCategory(model, reply string) string {
	if isOrca(model) {
		return extractAfterLastMarker(reply)
	}
	return extractFirstLine(reply)
}

func extractAfterLastMarker(reply string) string {
	matches := orcaAnswerRe.FindAllStringSubmatch(reply, -1)
	if len(matches) == 0 {
		return cleanCategory(reply)
	}
	return cleanCategory(matches[len(matches)-1][1])
}

func extractFirstLine(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return cleanCategory(leadingMarkerRe.ReplaceAllString(line, ""))
	}
	return ""
}

func cleanCategory(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`+"`")
	return strings.TrimSpace(s)
}
