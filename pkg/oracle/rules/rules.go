// Package rules provides deterministic keyword oracles for running the workflow without a model.
package rules

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/oracle"
)

// Unclassified is the label returned when no document type matches.
const Unclassified = "분류 불가"

type typeRule struct {
	docType models.DocumentType
	pattern *regexp.Regexp
}

// Order matters: the briefing rules are more specific than the visit rule.
var typeRules = []typeRule{
	{models.ProductBriefingApplication, regexp.MustCompile(`제품\s*설명회.*(?:신청|계획|예정)`)},
	{models.ProductBriefingReport, regexp.MustCompile(`제품\s*설명회.*(?:결과|보고|완료)`)},
	{models.SalesVisitReport, regexp.MustCompile(`(?:영업\s*)?방문.*(?:보고|결과)|영업\s*방문`)},
}

var documentHint = regexp.MustCompile(`보고서|신청서|설명회|영업\s*방문|문서`)

var (
	negativeReply = regexp.MustCompile(`(?i)^\s*no\b|아니|틀렸|틀려|잘못|다릅|다르|아닙`)
	positiveReply = regexp.MustCompile(`(?i)^\s*(?:yes|y|ok)\b|^\s*네|^\s*예|맞습|맞아|맞네|정확|올바|그렇습|동의|좋아요`)
)

type policyRule struct {
	pattern *regexp.Regexp
	finding string
}

var policyRules = []policyRule{
	{regexp.MustCompile(`현금`), "현금 및 현금성 지원은 금지됩니다"},
	{regexp.MustCompile(`상품권`), "상품권 제공은 금지됩니다"},
	{regexp.MustCompile(`골프|여행|관광`), "오락성 접대 및 여행 지원은 금지됩니다"},
	{regexp.MustCompile(`자사\s*판촉물\s*전달`), "판촉물은 제품설명회 현장에서 1만원 이하만 허용됩니다"},
	{regexp.MustCompile(`리베이트|사례금`), "부당한 경제적 이익 제공에 해당합니다"},
}

var fieldLine = regexp.MustCompile(`^\s*[-*•]?\s*([^:：]+?)\s*[:：]\s*(.*?)\s*$`)

// Oracles implements every oracle interface with fixed rules.
type Oracles struct{}

func New() *Oracles {
	return &Oracles{}
}

func (o *Oracles) Set() oracle.Set {
	return oracle.Set{
		Separator:  o,
		Classifier: o,
		Intent:     o,
		Extractor:  o,
		Policy:     o,
	}
}

// Separate treats the first line or sentence as the document request when it names a
// document, and everything after it as content.
func (o *Oracles) Separate(_ context.Context, text string) (oracle.Separation, error) {
	text = strings.TrimSpace(text)

	cut := len(text)
	if i := strings.IndexAny(text, ".\n"); i >= 0 {
		cut = i
	}

	head := strings.TrimSpace(text[:cut])
	rest := ""

	if cut < len(text) {
		rest = strings.TrimSpace(text[cut+1:])
	}

	if !documentHint.MatchString(head) {
		return oracle.Separation{Content: text}, nil
	}

	return oracle.Separation{DocumentType: head, Content: rest}, nil
}

func (o *Oracles) Classify(_ context.Context, text string) (oracle.Classification, error) {
	for _, rule := range typeRules {
		if rule.pattern.MatchString(text) {
			return oracle.Classification{Label: string(rule.docType), Confidence: 0.8}, nil
		}
	}

	return oracle.Classification{Label: Unclassified}, nil
}

func (o *Oracles) ClassifyIntent(_ context.Context, reply string) (string, error) {
	switch {
	case negativeReply.MatchString(reply):
		return "부정", nil
	case positiveReply.MatchString(reply):
		return "긍정", nil
	default:
		return "판단 불가", nil
	}
}

// Extract reads "field: value" lines for the requested fields. A request with no
// recognisable line yields a reply without JSON, which callers treat as a failed extraction.
func (o *Oracles) Extract(_ context.Context, req oracle.ExtractionRequest) (string, error) {
	wanted := make(map[string]string, len(req.Fields))
	for _, field := range req.Fields {
		wanted[normalizeKey(field)] = field
	}

	found := map[string]string{}

	for _, line := range strings.Split(req.Content, "\n") {
		match := fieldLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		if field, ok := wanted[normalizeKey(match[1])]; ok {
			found[field] = match[2]
		}
	}

	if len(found) == 0 {
		return "입력에서 항목을 찾을 수 없습니다.", nil
	}

	data, err := json.Marshal(found)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func (o *Oracles) CheckPolicy(_ context.Context, text string) (string, error) {
	var clauses []string

	for _, rule := range policyRules {
		if phrase := rule.pattern.FindString(text); phrase != "" {
			clauses = append(clauses, phrase+": "+rule.finding)
		}
	}

	if len(clauses) == 0 {
		return "OK", nil
	}

	return strings.Join(clauses, " | "), nil
}

// ClassifyAgent abstains so the router relies on its keyword scoring.
func (o *Oracles) ClassifyAgent(_ context.Context, _ string, _ []oracle.AgentDescriptor) (oracle.AgentClassification, error) {
	return oracle.AgentClassification{Reasoning: "rule oracle does not classify agents"}, nil
}

func normalizeKey(key string) string {
	return strings.Join(strings.Fields(key), "")
}
