package router

import (
	"regexp"
	"strings"

	"github.com/dukex/docflow/pkg/oracle"
)

const (
	keywordWeight = 1
	patternWeight = 2
	fullScore     = 5.0

	fallbackConfidence = 0.3
)

// Route methods, also used as metric labels.
const (
	MethodCombined = "combined"
	MethodLLM      = "llm"
	MethodKeyword  = "keyword"
	MethodFallback = "fallback"
)

type agentPatterns struct {
	agent    string
	keywords []string
	patterns []*regexp.Regexp
}

var keywordTable = []agentPatterns{
	{
		agent: DocsAgent,
		keywords: []string{
			"문서", "보고서", "신청서", "작성", "만들어", "준비",
			"영업방문", "제품설명회", "결과보고서", "시행신청서",
			"템플릿", "양식", "서류",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?:문서|보고서|신청서).*(?:작성|만들|준비)`),
			regexp.MustCompile(`영업방문.*보고서`),
			regexp.MustCompile(`제품설명회.*(?:신청서|보고서)`),
			regexp.MustCompile(`(?:작성해|만들어|준비해).*(?:줘|주세요)`),
		},
	},
	{
		agent: EmployeeAgent,
		keywords: []string{
			"직원", "실적", "성과", "분석", "평가", "목표", "달성",
			"매출", "판매", "영업실적", "kpi", "트렌드", "추세",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`직원.*(?:실적|성과|분석)`),
			regexp.MustCompile(`실적.*(?:분석|평가|조회)`),
			regexp.MustCompile(`(?:목표|달성).*(?:률|율)`),
			regexp.MustCompile(`(?:매출|판매).*분석`),
		},
	},
}

// KeywordResult is the outcome of scoring a query against the keyword table.
type KeywordResult struct {
	Agent      string         `json:"agent,omitempty"`
	Confidence float64        `json:"confidence"`
	Matches    []string       `json:"matched_keywords,omitempty"`
	Scores     map[string]int `json:"scores"`
}

// Score returns the best agent's raw score.
func (k KeywordResult) Score() int {
	return k.Scores[k.Agent]
}

// ClassifyKeywords scores query against every agent's keywords and patterns.
// Ties go to the agent listed first.
func ClassifyKeywords(query string) KeywordResult {
	query = strings.ToLower(query)
	result := KeywordResult{Scores: make(map[string]int, len(keywordTable))}

	best := 0

	for _, entry := range keywordTable {
		score := 0

		var matches []string

		for _, keyword := range entry.keywords {
			if strings.Contains(query, keyword) {
				score += keywordWeight
				matches = append(matches, keyword)
			}
		}

		for _, pattern := range entry.patterns {
			if pattern.MatchString(query) {
				score += patternWeight
				matches = append(matches, "pattern: "+pattern.String())
			}
		}

		result.Scores[entry.agent] = score

		if score > best {
			best = score
			result.Agent = entry.agent
			result.Matches = matches
		}
	}

	if best > 0 {
		result.Confidence = min(float64(best)/fullScore, 1.0)
	}

	return result
}

// Decision is the router's final agent choice.
type Decision struct {
	Agent      string                     `json:"agent"`
	Confidence float64                    `json:"confidence"`
	Method     string                     `json:"method"`
	Keyword    KeywordResult              `json:"keyword_analysis"`
	LLM        oracle.AgentClassification `json:"llm_analysis"`
}

func (d Decision) IsFallback() bool {
	return d.Method == MethodFallback
}

// Combine merges the keyword and LLM classifications. Agreement wins with the mean
// confidence, boosted when both are confident; otherwise a confident LLM wins, then a
// confident keyword match, and finally the document agent as a low-confidence fallback.
func Combine(keyword KeywordResult, llm oracle.AgentClassification) Decision {
	decision := Decision{Keyword: keyword, LLM: llm}

	switch {
	case keyword.Agent != "" && keyword.Agent == llm.Agent:
		confidence := (keyword.Confidence + llm.Confidence) / 2
		if keyword.Confidence > 0.5 && llm.Confidence > 0.5 {
			confidence = min(confidence*1.2, 1.0)
		}

		decision.Agent, decision.Confidence, decision.Method = keyword.Agent, confidence, MethodCombined
	case llm.Agent != "" && llm.Confidence > 0.7:
		decision.Agent, decision.Confidence, decision.Method = llm.Agent, llm.Confidence, MethodLLM
	case keyword.Agent != "" && keyword.Confidence > 0.6:
		decision.Agent, decision.Confidence, decision.Method = keyword.Agent, keyword.Confidence*0.8, MethodKeyword
	default:
		decision.Agent, decision.Confidence, decision.Method = DocsAgent, fallbackConfidence, MethodFallback
	}

	return decision
}
