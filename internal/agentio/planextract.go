package agentio

import (
	"regexp"
	"strings"
)

// planMarkerPrefix and planMarkerSuffix delimit an explicit plan block when
// an agent emits one; this is the first and strongest extraction heuristic.
const (
	planMarkerPrefix = "<<<PLAN>>>"
	planMarkerSuffix = "<<<END_PLAN>>>"

	truncatedPlanLength = 500
)

var (
	bulletLineRe   = regexp.MustCompile(`(?m)^\s*[-*•]\s+.+$`)
	numberedLineRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+.+$`)
)

// ExtractPlan applies the heuristic precedence Marked -> BulletList ->
// NumberedList -> Truncated against the full accumulated output of a plan
// session, returning the extracted plan text and which heuristic matched.
func ExtractPlan(output string) (plan string, heuristic string) {
	if marked, ok := extractMarked(output); ok {
		return marked, "marked"
	}
	if bullets, ok := extractLines(output, bulletLineRe); ok {
		return bullets, "bullet-list"
	}
	if numbered, ok := extractLines(output, numberedLineRe); ok {
		return numbered, "numbered-list"
	}
	return truncate(output, truncatedPlanLength), "truncated"
}

func extractMarked(output string) (string, bool) {
	start := strings.Index(output, planMarkerPrefix)
	if start == -1 {
		return "", false
	}
	start += len(planMarkerPrefix)
	end := strings.Index(output[start:], planMarkerSuffix)
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(output[start : start+end]), true
}

func extractLines(output string, re *regexp.Regexp) (string, bool) {
	matches := re.FindAllString(output, -1)
	if len(matches) == 0 {
		return "", false
	}
	return strings.Join(matches, "\n"), true
}

func truncate(output string, n int) string {
	if len(output) <= n {
		return output
	}
	return output[:n]
}
