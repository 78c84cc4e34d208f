package render

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dukex/docflow/pkg/models"
)

const placeholderSuffix = "항목내용"

// paymentPlaceholder receives the 지급내역 field.
const paymentPlaceholder = "제품설명회지급내역항목내용"

// multiItem maps a numbered placeholder stem to the data key whose comma separated values fill it.
type multiItem struct {
	stem    string
	dataKey string
}

var applicationMultiItems = []multiItem{
	{"직원팀명", "직원팀명"},
	{"팀명성명", "직원성명"},
	{"의료기관명", "의료기관명"},
	{"보건의료전문가성명", "보건의료전문가성명"},
}

var attendeeMultiItems = []multiItem{
	{"참석직원팀명", "직원팀명"},
	{"참석직원성명", "직원성명"},
	{"참석의료기관명", "의료기관명"},
	{"참석보건의료전문가성명", "보건의료전문가성명"},
}

// additional placeholders filled from the data even when the extraction left them out.
var additionalPlaceholders = []struct {
	placeholder string
	dataKey     string
}{
	{"PM참석항목내용", "PM참석"},
	{"구분항목내용", "구분"},
	{"일시항목내용", "일시"},
	{"장소항목내용", "장소"},
	{"제품명항목내용", "제품명"},
	{"제품설명회시행목적항목내용", "제품설명회시행목적"},
	{"제품설명회주요내용항목내용", "제품설명회주요내용"},
	{"참석인원항목내용", "참석인원"},
	{"방문일항목내용", "방문날짜"},
}

// protected placeholders are matched as whole tokens so shorter placeholders never match inside them.
var protected = []string{"1인금액항목내용"}

func multiItemsFor(docType models.DocumentType) []multiItem {
	if docType == models.ProductBriefingApplication {
		return applicationMultiItems
	}

	return attendeeMultiItems
}

// maxIndex returns the highest N such that "<stem>항목내용N" appears in text, or 0.
func maxIndex(text, stem string) int {
	pattern := regexp.MustCompile(regexp.QuoteMeta(stem+placeholderSuffix) + `(\d+)`)

	highest := 0

	for _, match := range pattern.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(match[1]); err == nil && n > highest {
			highest = n
		}
	}

	return highest
}

// Replacements computes the placeholder values for one document. text is the full
// template text, scanned to size the numbered multi-item placeholders.
func Replacements(docType models.DocumentType, fields map[string]string, text string) map[string]string {
	items := multiItemsFor(docType)

	multiDataKeys := make(map[string]bool, len(items))
	for _, item := range items {
		multiDataKeys[item.dataKey] = true
	}

	replacements := map[string]string{}

	for key, value := range fields {
		if key == "" || multiDataKeys[key] {
			continue
		}

		if key == "지급내역" {
			replacements[paymentPlaceholder] = value

			continue
		}

		replacements[key+placeholderSuffix] = value
	}

	for _, item := range items {
		values := splitItems(fields[item.dataKey])

		for i := 1; i <= maxIndex(text, item.stem); i++ {
			value := ""
			if i-1 < len(values) {
				value = values[i-1]
			}

			replacements[item.stem+placeholderSuffix+strconv.Itoa(i)] = value
		}
	}

	for _, extra := range additionalPlaceholders {
		if _, ok := replacements[extra.placeholder]; !ok {
			replacements[extra.placeholder] = fields[extra.dataKey]
		}
	}

	return replacements
}

func splitItems(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts
}

// Substituter replaces every placeholder of one replacement set in a single left-to-right pass.
type Substituter struct {
	pattern      *regexp.Regexp
	replacements map[string]string
}

// NewSubstituter builds a matcher that prefers the longest placeholder at each position.
func NewSubstituter(replacements map[string]string) *Substituter {
	tokens := make([]string, 0, len(replacements)+len(protected))

	for placeholder := range replacements {
		if placeholder != "" {
			tokens = append(tokens, placeholder)
		}
	}

	for _, p := range protected {
		if _, ok := replacements[p]; !ok {
			tokens = append(tokens, p)
		}
	}

	if len(tokens) == 0 {
		return &Substituter{replacements: replacements}
	}

	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}

		return tokens[i] < tokens[j]
	})

	quoted := make([]string, len(tokens))
	for i, token := range tokens {
		quoted[i] = regexp.QuoteMeta(token)
	}

	return &Substituter{
		pattern:      regexp.MustCompile(strings.Join(quoted, "|")),
		replacements: replacements,
	}
}

// Replace substitutes placeholders in text. Protected tokens without a value are left as they are.
func (s *Substituter) Replace(text string) string {
	if s.pattern == nil {
		return text
	}

	return s.pattern.ReplaceAllStringFunc(text, func(match string) string {
		if value, ok := s.replacements[match]; ok {
			return value
		}

		return match
	})
}
