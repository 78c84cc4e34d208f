// Package policy interprets compliance reports produced by the policy oracle.
//
// A report is either "OK" or a list of clauses joined by " | ", each clause being
// "<phrase>: <finding>" or a bare finding. Clauses that mention OK, report a search
// failure, or carry an error marker are not violations.
package policy

import (
	"strings"

	"github.com/dukex/docflow/pkg/models"
)

const (
	// Compliant is the report returned for content with no findings.
	Compliant = "OK"

	clauseSeparator  = " | "
	searchFailed     = "규정 검색 실패"
	errorMarker      = "오류"
	checkErrorPrefix = "규정 검사 오류: "
)

// CheckError is the report recorded when the oracle itself fails. It never counts as a violation.
func CheckError(err error) string {
	return checkErrorPrefix + err.Error()
}

// ParseViolations extracts the actual findings from a report.
func ParseViolations(report string) []models.Violation {
	if report == "" || report == Compliant {
		return nil
	}

	var violations []models.Violation

	for _, item := range strings.Split(report, clauseSeparator) {
		item = strings.TrimSpace(item)
		if item == "" || strings.Contains(item, Compliant) || item == searchFailed || strings.Contains(item, errorMarker) {
			continue
		}

		phrase, detail, found := strings.Cut(item, ":")
		if !found {
			violations = append(violations, models.Violation{Detail: item})

			continue
		}

		phrase = strings.TrimSpace(phrase)
		detail = strings.TrimSpace(detail)

		if detail != "" && detail != Compliant {
			violations = append(violations, models.Violation{Phrase: phrase, Detail: detail})
		}
	}

	return violations
}

// Describe renders findings as "'phrase' - detail" lines.
func Describe(violations []models.Violation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.String())
	}

	return out
}

// IsActualViolation reports whether the report blocks document generation.
func IsActualViolation(report string) bool {
	trimmed := strings.TrimSpace(report)
	if trimmed == "" || trimmed == Compliant {
		return false
	}

	if strings.HasSuffix(trimmed, `"OK"`) || strings.HasSuffix(trimmed, `'OK'`) {
		return false
	}

	lines := strings.Split(trimmed, "\n")
	if strings.TrimSpace(lines[len(lines)-1]) == `"OK"` {
		return false
	}

	return len(ParseViolations(report)) > 0
}
