package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/oracle"
	"github.com/dukex/docflow/pkg/policy"
	"github.com/dukex/docflow/pkg/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const visitRequest = "영업방문 결과보고서 작성해줘. 방문제목: 신제품 소개, 방문날짜: 2025-07-01"

type fakeOracles struct {
	mu sync.Mutex

	separation  oracle.Separation
	separateErr error
	label       string
	classifyErr error

	verdicts map[string]string

	extractions  []string
	extractCalls int

	policyReport string
	policyErr    error
	policyInputs []string
}

func (f *fakeOracles) Separate(context.Context, string) (oracle.Separation, error) {
	return f.separation, f.separateErr
}

func (f *fakeOracles) Classify(context.Context, string) (oracle.Classification, error) {
	return oracle.Classification{Label: f.label, Confidence: 0.9}, f.classifyErr
}

func (f *fakeOracles) ClassifyIntent(_ context.Context, reply string) (string, error) {
	if verdict, ok := f.verdicts[reply]; ok {
		return verdict, nil
	}

	return "판단 불가", nil
}

func (f *fakeOracles) Extract(context.Context, oracle.ExtractionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.extractCalls
	f.extractCalls++

	if i < len(f.extractions) {
		return f.extractions[i], nil
	}

	if len(f.extractions) > 0 {
		return f.extractions[len(f.extractions)-1], nil
	}

	return "죄송합니다. 정보를 찾을 수 없습니다.", nil
}

func (f *fakeOracles) CheckPolicy(_ context.Context, text string) (string, error) {
	f.policyInputs = append(f.policyInputs, text)
	if f.policyErr != nil {
		return "", f.policyErr
	}

	if f.policyReport == "" {
		return policy.Compliant, nil
	}

	return f.policyReport, nil
}

func (f *fakeOracles) set() oracle.Set {
	return oracle.Set{Separator: f, Classifier: f, Intent: f, Extractor: f, Policy: f}
}

type fakeRenderer struct {
	path   string
	err    error
	fields map[string]string
}

func (r *fakeRenderer) Render(_ context.Context, _ models.DocumentType, fields map[string]string) (string, error) {
	r.fields = fields
	if r.err != nil {
		return "", r.err
	}

	return r.path, nil
}

func visitOracles() *fakeOracles {
	return &fakeOracles{
		separation: oracle.Separation{
			DocumentType: "영업방문 결과보고서",
			Content:      "방문제목: 신제품 소개, 방문날짜: 2025-07-01",
		},
		label:       string(models.SalesVisitReport),
		verdicts:    map[string]string{"네": "긍정", "아니요": "부정"},
		extractions: []string{"```json\n{\"방문제목\": \"신제품 소개\", \"방문날짜\": \"2025-07-01\"}\n```"},
	}
}

func newTestEngine(t *testing.T, oracles *fakeOracles, renderer *fakeRenderer, opts ...Option) *Engine {
	t.Helper()

	catalog := templates.Load(slog.New(slog.DiscardHandler), "")
	require.Equal(t, 3, catalog.Len())

	engine, err := NewEngine(slog.New(slog.DiscardHandler), oracles.set(), catalog, renderer, opts...)
	require.NoError(t, err)

	return engine
}

func resume(t *testing.T, engine *Engine, out Outcome, reply string) Outcome {
	t.Helper()

	suspended, ok := out.Suspension()
	require.True(t, ok, "expected a suspended outcome, got %#v", out.Step)

	next, err := engine.RunFrom(context.Background(), suspended.At, WithReply(out.State, suspended.At.ReplyKind(), reply))
	require.NoError(t, err)

	return next
}

func requireSuspendedAt(t *testing.T, out Outcome, node NodeID) Suspended {
	t.Helper()

	suspended, ok := out.Suspension()
	require.True(t, ok, "expected suspension at %s, got %#v", node, out.Step)
	require.Equal(t, node, suspended.At)

	return suspended
}

func requireTerminal(t *testing.T, out Outcome, kind TerminalKind) Terminal {
	t.Helper()

	terminal, ok := out.Terminal()
	require.True(t, ok, "expected terminal %s, got %#v", kind, out.Step)
	require.Equal(t, kind, terminal.Kind, "terminal error: %v", terminal.Err)
	assert.True(t, out.State.Terminated)

	return terminal
}

func TestNewEngine_RequiresOracles(t *testing.T) {
	catalog := templates.Load(slog.New(slog.DiscardHandler), "")

	_, err := NewEngine(nil, oracle.Set{}, catalog, &fakeRenderer{})
	assert.ErrorIs(t, err, ErrMissingOracle)
}

func TestEngine_ClassifiedRequestWithContentProducesDocument(t *testing.T) {
	oracles := visitOracles()
	renderer := &fakeRenderer{path: "output/영업방문결과보고서_20250701.docx"}
	engine := newTestEngine(t, oracles, renderer)

	out, err := engine.Start(context.Background(), visitRequest)
	require.NoError(t, err)

	suspended := requireSuspendedAt(t, out, NodeReceiveVerificationInput)
	assert.Contains(t, suspended.Prompt, "영업방문 결과보고서")
	assert.Equal(t, []NodeID{NodeClassifyDocType, NodeValidateDocType, NodeVerifyClassification}, out.Trace)
	assert.True(t, out.State.SkipFieldPrompt)
	assert.NotEmpty(t, out.State.TemplatePrompt)

	out = resume(t, engine, out, "네")

	requireTerminal(t, out, Completed)
	assert.Equal(t, []NodeID{
		NodeReceiveVerificationInput,
		NodeProcessVerificationResponse,
		NodeCheckUserInputPolicy,
		NodeParseUserInput,
		NodeCreateDocument,
	}, out.Trace)
	assert.Equal(t, renderer.path, out.State.FinalDocument)
	assert.Equal(t, "신제품 소개", out.State.FilledFields["방문제목"])
	assert.Equal(t, renderer.fields, out.State.FilledFields)
	assert.Equal(t, models.VerificationAffirmed, out.State.VerificationResult)
	assert.Empty(t, out.State.VerificationReply)
	assert.Equal(t, []string{"방문제목: 신제품 소개, 방문날짜: 2025-07-01"}, oracles.policyInputs)
}

func TestEngine_UnclassifiableRequestGoesStraightToManualSelection(t *testing.T) {
	oracles := visitOracles()
	oracles.label = "분류 불가"
	engine := newTestEngine(t, oracles, &fakeRenderer{})

	out, err := engine.Start(context.Background(), "보고서 하나 써줘")
	require.NoError(t, err)

	suspended := requireSuspendedAt(t, out, NodeReceiveManualDocTypeInput)
	assert.Equal(t, []NodeID{NodeClassifyDocType, NodeValidateDocType, NodeAskManualDocTypeSelection}, out.Trace)
	assert.NotContains(t, out.Trace, NodeVerifyClassification)
	assert.Equal(t, models.ClassificationFailedMarker, out.State.DocumentType)
	assert.True(t, out.State.ClassificationFailed)
	assert.Contains(t, suspended.Prompt, "4. 종료")
}

func TestEngine_OracleFailureMarksClassificationFailed(t *testing.T) {
	oracles := visitOracles()
	oracles.separateErr = errors.New("llm timeout")
	engine := newTestEngine(t, oracles, &fakeRenderer{})

	out, err := engine.Start(context.Background(), visitRequest)
	require.NoError(t, err)

	requireSuspendedAt(t, out, NodeReceiveManualDocTypeInput)
	assert.Equal(t, models.ClassificationFailedMarker, out.State.DocumentType)
	assert.Empty(t, out.State.UserContent)
	assert.False(t, out.State.SkipFieldPrompt)
}

func TestEngine_DocumentTypeAfterValidationIsKnownOrFailureMarker(t *testing.T) {
	for _, label := range []string{"영업방문 결과보고서", "제품설명회 시행 신청서", "제품설명회 시행 결과보고서", "회의록", "", "분류 불가"} {
		oracles := visitOracles()
		oracles.label = label
		engine := newTestEngine(t, oracles, &fakeRenderer{})

		out, err := engine.Start(context.Background(), visitRequest)
		require.NoError(t, err)

		docType := out.State.DocumentType
		assert.True(t, docType.IsValid() || docType == models.ClassificationFailedMarker, "label %q gave %q", label, docType)
	}
}

func TestEngine_RejectedClassificationAsksForManualSelection(t *testing.T) {
	engine := newTestEngine(t, visitOracles(), &fakeRenderer{})

	out, err := engine.Start(context.Background(), visitRequest)
	require.NoError(t, err)

	out = resume(t, engine, out, "아니요")

	requireSuspendedAt(t, out, NodeReceiveManualDocTypeInput)
	assert.Equal(t, models.VerificationRejected, out.State.VerificationResult)
	assert.Equal(t, []NodeID{
		NodeReceiveVerificationInput,
		NodeProcessVerificationResponse,
		NodeAskManualDocTypeSelection,
	}, out.Trace)
}

func TestEngine_ExitSelectionAborts(t *testing.T) {
	for _, reply := range []string{"4", "종료", " 종료 "} {
		t.Run(reply, func(t *testing.T) {
			oracles := visitOracles()
			oracles.label = "분류 불가"
			renderer := &fakeRenderer{path: "never"}
			engine := newTestEngine(t, oracles, renderer)

			out, err := engine.Start(context.Background(), "문서")
			require.NoError(t, err)

			out = resume(t, engine, out, reply)

			terminal := requireTerminal(t, out, Aborted)
			assert.NoError(t, terminal.Err)
			assert.True(t, out.State.Aborted)
			assert.Empty(t, out.State.FinalDocument)
			assert.Empty(t, out.State.Error)
			assert.Nil(t, renderer.fields)
		})
	}
}

func TestEngine_ManualSelectionWithContentSkipsFieldPrompt(t *testing.T) {
	oracles := visitOracles()
	oracles.label = "분류 불가"
	engine := newTestEngine(t, oracles, &fakeRenderer{path: "out.docx"})

	out, err := engine.Start(context.Background(), visitRequest)
	require.NoError(t, err)

	out = resume(t, engine, out, "영업방문 결과보고서")

	requireTerminal(t, out, Completed)
	assert.Equal(t, models.SalesVisitReport, out.State.DocumentType)
	assert.Equal(t, NodeCheckUserInputPolicy, out.Trace[2])
}

func TestEngine_InvalidSelectionAsksAgain(t *testing.T) {
	oracles := visitOracles()
	oracles.label = "분류 불가"
	oracles.separation.Content = ""
	engine := newTestEngine(t, oracles, &fakeRenderer{})

	out, err := engine.Start(context.Background(), "문서")
	require.NoError(t, err)

	out = resume(t, engine, out, "7")
	requireSuspendedAt(t, out, NodeReceiveManualDocTypeInput)
	assert.Equal(t, 2, out.State.SelectionAttempts)

	out = resume(t, engine, out, "2")
	suspended := requireSuspendedAt(t, out, NodeReceiveUserInput)
	assert.Equal(t, models.ProductBriefingApplication, out.State.DocumentType)
	assert.Contains(t, suspended.Prompt, "제품설명회 시행 신청서")
}

func TestEngine_PolicyViolationStopsBeforeRendering(t *testing.T) {
	oracles := visitOracles()
	oracles.policyReport = "자사 판촉물 전달: 규정 위반 | 로얄티: OK"
	renderer := &fakeRenderer{path: "never"}
	engine := newTestEngine(t, oracles, renderer)

	out, err := engine.Start(context.Background(), visitRequest)
	require.NoError(t, err)

	out = resume(t, engine, out, "네")

	requireTerminal(t, out, Violated)
	assert.Equal(t, NodeInformViolation, out.Trace[len(out.Trace)-1])
	assert.Empty(t, out.State.FinalDocument)
	assert.Nil(t, renderer.fields)
	assert.Equal(t, []string{"'자사 판촉물 전달' - 규정 위반"}, policy.Describe(policy.ParseViolations(out.State.Violation)))
}

func TestEngine_PolicyOracleErrorIsNotAViolation(t *testing.T) {
	oracles := visitOracles()
	oracles.policyErr = errors.New("connection refused")
	engine := newTestEngine(t, oracles, &fakeRenderer{path: "out.docx"})

	out, err := engine.Start(context.Background(), visitRequest)
	require.NoError(t, err)

	out = resume(t, engine, out, "네")

	requireTerminal(t, out, Completed)
	assert.Equal(t, "규정 검사 오류: connection refused", out.State.Violation)
}

func TestEngine_ExtractionFallsBackAfterThreeFailures(t *testing.T) {
	oracles := visitOracles()
	oracles.separation.Content = ""
	oracles.extractions = nil
	renderer := &fakeRenderer{path: "fallback.docx"}
	engine := newTestEngine(t, oracles, renderer)

	out, err := engine.Start(context.Background(), "영업방문 결과보고서")
	require.NoError(t, err)

	out = resume(t, engine, out, "네")
	requireSuspendedAt(t, out, NodeReceiveUserInput)

	for attempt := 1; attempt < MaxParseRetries; attempt++ {
		out = resume(t, engine, out, "잘 모르겠어요")
		requireSuspendedAt(t, out, NodeReceiveUserInput)
		assert.Equal(t, attempt, out.State.ParseRetryCount)
		assert.True(t, out.State.ParseFailed)
	}

	out = resume(t, engine, out, "잘 모르겠어요")

	requireTerminal(t, out, Completed)
	assert.Equal(t, MaxParseRetries, out.State.ParseRetryCount)
	assert.True(t, out.State.UsedFallback)
	assert.False(t, out.State.ParseFailed)

	entry, ok := templates.Load(slog.New(slog.DiscardHandler), "").Get(models.SalesVisitReport)
	require.True(t, ok)
	assert.Equal(t, entry.Fallback(), renderer.fields)
	assert.Equal(t, MaxParseRetries, oracles.extractCalls)
}

func TestEngine_SchemaFailureCountsAsExtractionFailure(t *testing.T) {
	oracles := visitOracles()
	oracles.extractions = []string{`{"방문제목": "", "방문날짜": "2025-07-01"}`}
	engine := newTestEngine(t, oracles, &fakeRenderer{})

	out, err := engine.Start(context.Background(), visitRequest)
	require.NoError(t, err)

	out = resume(t, engine, out, "네")

	requireSuspendedAt(t, out, NodeReceiveUserInput)
	assert.Equal(t, 1, out.State.ParseRetryCount)
}

func TestEngine_FieldReplyReplacesSeparatedContent(t *testing.T) {
	oracles := visitOracles()
	oracles.extractions = []string{"없음", `{"방문제목": "재방문"}`}
	engine := newTestEngine(t, oracles, &fakeRenderer{path: "out.docx"})

	out, err := engine.Start(context.Background(), visitRequest)
	require.NoError(t, err)

	out = resume(t, engine, out, "네")
	requireSuspendedAt(t, out, NodeReceiveUserInput)

	out = resume(t, engine, out, "방문제목: 재방문")

	requireTerminal(t, out, Completed)
	assert.Empty(t, out.State.UserContent)
	assert.Equal(t, "방문제목: 재방문", oracles.policyInputs[len(oracles.policyInputs)-1])
	assert.Equal(t, "재방문", out.State.FilledFields["방문제목"])
}

func TestEngine_UnclearVerificationIsCapped(t *testing.T) {
	engine := newTestEngine(t, visitOracles(), &fakeRenderer{}, WithMaxPromptAttempts(2))

	out, err := engine.Start(context.Background(), visitRequest)
	require.NoError(t, err)

	out = resume(t, engine, out, "음...")
	requireSuspendedAt(t, out, NodeReceiveVerificationInput)
	assert.Equal(t, models.VerificationUnclear, out.State.VerificationResult)

	out = resume(t, engine, out, "글쎄요")

	terminal := requireTerminal(t, out, Failed)
	assert.ErrorIs(t, terminal.Err, ErrRetryLimitExceeded)
	assert.NotEmpty(t, out.State.Error)
}

func TestEngine_RenderFailureTerminatesWithoutArtifact(t *testing.T) {
	engine := newTestEngine(t, visitOracles(), &fakeRenderer{err: errors.New("template missing")})

	out, err := engine.Start(context.Background(), visitRequest)
	require.NoError(t, err)

	out = resume(t, engine, out, "네")

	terminal := requireTerminal(t, out, Failed)
	assert.ErrorIs(t, terminal.Err, ErrDocumentNotGenerated)
	assert.Empty(t, out.State.FinalDocument)
	assert.Equal(t, "template missing", out.State.RenderError)
}

func TestEngine_ResumeFromPersistedSnapshotFollowsSameTrajectory(t *testing.T) {
	engine := newTestEngine(t, visitOracles(), &fakeRenderer{path: "out.docx"})

	first, err := engine.Start(context.Background(), visitRequest)
	require.NoError(t, err)

	data, err := json.Marshal(first.State)
	require.NoError(t, err)

	var restored models.WorkflowState
	require.NoError(t, json.Unmarshal(data, &restored))

	fromMemory := resume(t, engine, first, "네")
	fromSnapshot := resume(t, engine, Outcome{State: restored, Step: first.Step}, "네")

	assert.Equal(t, fromMemory.Trace, fromSnapshot.Trace)
	assert.Equal(t, fromMemory.Step, fromSnapshot.Step)
	assert.Equal(t, fromMemory.State.FilledFields, fromSnapshot.State.FilledFields)
	assert.Equal(t, fromMemory.State.FinalDocument, fromSnapshot.State.FinalDocument)

	full := append(append([]NodeID{}, first.Trace...), fromMemory.Trace...)
	assert.Equal(t, []NodeID{
		NodeClassifyDocType,
		NodeValidateDocType,
		NodeVerifyClassification,
		NodeReceiveVerificationInput,
		NodeProcessVerificationResponse,
		NodeCheckUserInputPolicy,
		NodeParseUserInput,
		NodeCreateDocument,
	}, full)
}

func TestEngine_RunFromUnknownNode(t *testing.T) {
	engine := newTestEngine(t, visitOracles(), &fakeRenderer{})

	_, err := engine.RunFrom(context.Background(), NodeID(99), models.NewWorkflowState("x"))
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestEngine_CancelledContextFails(t *testing.T) {
	engine := newTestEngine(t, visitOracles(), &fakeRenderer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := engine.Start(ctx, visitRequest)
	require.NoError(t, err)

	terminal := requireTerminal(t, out, Failed)
	assert.ErrorIs(t, terminal.Err, context.Canceled)
}

func TestFieldString(t *testing.T) {
	assert.Equal(t, "", fieldString(nil))
	assert.Equal(t, "김철수, 이영희", fieldString([]any{"김철수", "이영희"}))
	assert.Equal(t, "1000000", fieldString(float64(1000000)))
	assert.Equal(t, "12.5", fieldString(12.5))
	assert.Equal(t, "true", fieldString(true))
}
