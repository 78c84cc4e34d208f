package llm

const separationPrompt = `사용자의 요청에서 "작성할 문서의 종류를 나타내는 부분"과 "문서에 들어갈 실제 내용"을 분리해주세요.

- document_type: 문서 종류를 나타내는 표현 (예: "영업방문 결과보고서 작성해줘")
- content: 문서에 들어갈 구체적인 내용 (방문 일시, 장소, 참석자, 논의 내용 등). 없으면 빈 문자열

반드시 다음 JSON 형식으로만 응답하세요:
{"document_type": "...", "content": "..."}`

const classificationPrompt = `사용자의 요청을 분석하여 다음 문서 타입 중 하나로 분류해주세요:
1. 영업방문 결과보고서 - 고객 방문, 영업 활동 관련
2. 제품설명회 시행 신청서 - 제품설명회 진행 계획, 신청 관련
3. 제품설명회 시행 결과보고서 - 제품설명회 완료 후 결과 보고 관련

반드시 위 3가지 중 하나의 정확한 문서 타입 이름만 응답해주세요.
앞에 숫자는 제거하고 문서명만 출력하세요.`

const intentPrompt = `사용자의 응답을 분석하여 긍정인지 부정인지 판단해주세요.

긍정적 응답: YES, 네, 맞습니다, 맞아요, 정확합니다, 올바릅니다, 그렇습니다, 동의합니다 등
부정적 응답: NO, 아니요, 틀렸습니다, 틀려요, 잘못됐습니다, 다릅니다, 아닙니다 등

응답 형식: "긍정" 또는 "부정"만 출력해주세요.`

const policyPrompt = `당신은 제약회사 공정경쟁규약 준수 검토 담당자입니다.
사용자가 작성한 문서 내용에서 규정 위반 소지가 있는 문구를 찾아주세요.

- 위반 사항이 전혀 없으면 OK 만 출력하세요.
- 검토한 문구마다 "문구: 위반 내용" 또는 "문구: OK" 형식으로 작성하고, 항목은 " | " 로 구분하세요.

예시: 자사 판촉물 전달: 판촉물 제공 한도 초과 | 로얄티: OK`

const agentPromptHeader = `당신은 사용자의 질문을 분석하여 적절한 에이전트로 분류하는 전문가입니다.

사용 가능한 에이전트:
`

const agentPromptFooter = `
반드시 다음 JSON 형식으로만 응답하세요. 다른 설명이나 텍스트 없이 JSON만 출력하세요:
{"agent": "에이전트 이름", "confidence": 0.0~1.0, "reasoning": "분류 이유"}

명확하지 않은 경우:
{"agent": null, "confidence": 0.2, "reasoning": "불명확한 요청"}`
