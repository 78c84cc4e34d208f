// Package router classifies top-level requests, dispatches them to an agent and relays
// interrupted document conversations back to the workflow that is waiting on them.
package router

import (
	"strings"
)

const (
	DocsAgent     = "docs_agent"
	EmployeeAgent = "employee_agent"
	ClientAgent   = "client_agent"
	SearchAgent   = "search_agent"
)

// Metadata describes one agent to users and to the agent classifier.
type Metadata struct {
	Name         string   `json:"id"`
	DisplayName  string   `json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Examples     []string `json:"examples"`
	Available    bool     `json:"available"`
}

// DefaultAgents lists the known agents in presentation order.
func DefaultAgents() []Metadata {
	return []Metadata{
		{
			Name:        DocsAgent,
			DisplayName: "📄 문서 작성 도우미",
			Description: "문서 자동 생성 및 규정 검토를 담당합니다. 문서생성시 규정위반 여부도 검토합니다.",
			Capabilities: []string{
				"영업방문 결과보고서 작성",
				"제품설명회 시행 신청서 작성",
				"제품설명회 시행 결과보고서 작성",
			},
			Examples: []string{
				"영업방문 보고서 작성해줘",
				"제품설명회 신청서 만들어줘",
				"문서 작성 도와줘",
			},
		},
		{
			Name:        EmployeeAgent,
			DisplayName: "👥 직원 정보 조회",
			Description: "사내 직원에 대한 정보 제공을 담당합니다",
			Capabilities: []string{
				"개인 실적 조회 및 분석",
				"인사 이력, 직책, 소속 부서 확인",
				"성과 평가 및 목표 달성률 분석",
				"실적 트렌드 분석",
			},
			Examples: []string{
				"최수아 실적 분석해줘",
				"서부팀 성과 보여줘",
				"최수아 이번달 달성률이 얼마지?",
			},
		},
		{
			Name:        ClientAgent,
			DisplayName: "🏢 거래처 분석",
			Description: "고객 및 거래처에 대한 정보를 제공합니다. 테이블데이터에서 요청한 정보를 분석합니다.",
			Capabilities: []string{
				"병원명,월별 실적 활동 정보 조회",
				"매출 추이 분석",
				"기준점을 제시하면 다른 수치와 비교,분석",
				"고객 등급 분류",
				"병원 전체매출과 우리 매출 비교",
			},
			Examples: []string{
				"미라클신경과 실적분석해줘",
				"미라클신경과와 우리가족의원 비교",
				"최근 3개월 실적 트렌드 분석",
			},
		},
		{
			Name:        SearchAgent,
			DisplayName: "🔍 정보 검색",
			Description: "내부 데이터베이스에서 정보 검색을 수행합니다",
			Capabilities: []string{
				"문서 검색",
				"사내 규정 및 정책 조회",
				"업무 매뉴얼 검색",
				"제품 정보 조회",
				"교육 자료 검색",
			},
			Examples: []string{
				"영업 규정 찾아줘",
				"제품 설명서 검색",
				"교육 자료 조회",
			},
		},
	}
}

// DisplayName returns the user-facing name of agent, or agent itself when unknown.
func DisplayName(agent string) string {
	for _, m := range DefaultAgents() {
		if m.Name == agent {
			return m.DisplayName
		}
	}

	return agent
}

// HelpMessage is shown when a request matches no agent.
func HelpMessage(agents []Metadata) string {
	var b strings.Builder

	b.WriteString("죄송합니다. 요청하신 작업을 정확히 이해하지 못했습니다.\n\n")
	b.WriteString("다음과 같은 작업을 도와드릴 수 있습니다:\n\n")

	for _, agent := range agents {
		if !agent.Available {
			continue
		}

		b.WriteString("**" + agent.DisplayName + "**\n")
		b.WriteString(agent.Description + "\n")

		if len(agent.Examples) > 0 {
			b.WriteString("예시:\n")

			for _, example := range agent.Examples {
				b.WriteString("  - " + example + "\n")
			}
		}

		b.WriteString("\n")
	}

	b.WriteString("원하시는 작업을 구체적으로 말씀해주세요.")

	return b.String()
}

func notImplementedMessage(agent string) string {
	return agent + "는 아직 구현되지 않았습니다."
}

func unsupportedInterruptMessage(agent string) string {
	return agent + "는 인터럽트를 지원하지 않습니다."
}
