package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/oracle"
	"github.com/dukex/docflow/pkg/policy"
	"github.com/dukex/docflow/pkg/templates"
)

func (e *Engine) classifyDocType(ctx context.Context, s models.WorkflowState) (models.WorkflowState, Step) {
	request := s.LatestMessage()

	separation, err := e.oracles.Separator.Separate(ctx, request)
	if err != nil {
		return e.classificationFailed(ctx, s, err), Continue{Next: NodeValidateDocType}
	}

	hint := separation.DocumentType
	if strings.TrimSpace(hint) == "" {
		hint = request
	}

	classification, err := e.oracles.Classifier.Classify(ctx, hint)
	if err != nil {
		return e.classificationFailed(ctx, s, err), Continue{Next: NodeValidateDocType}
	}

	s.DocumentType = models.DocumentType(strings.TrimSpace(classification.Label))
	s.UserContent = separation.Content
	s.SkipFieldPrompt = strings.TrimSpace(separation.Content) != ""

	e.logger.DebugContext(ctx, "Document type classified",
		"doc_type", s.DocumentType,
		"confidence", classification.Confidence,
		"skip_ask_fields", s.SkipFieldPrompt,
	)

	return s, Continue{Next: NodeValidateDocType}
}

func (e *Engine) classificationFailed(ctx context.Context, s models.WorkflowState, err error) models.WorkflowState {
	e.logger.WarnContext(ctx, "Document classification failed", "error", err)

	s.DocumentType = models.ClassificationFailedMarker
	s.UserContent = ""
	s.SkipFieldPrompt = false

	return s
}

func (e *Engine) validateDocType(ctx context.Context, s models.WorkflowState) (models.WorkflowState, Step) {
	if s.DocumentType.IsValid() {
		if entry, ok := e.catalog.Get(s.DocumentType); ok {
			s.TemplatePrompt = entry.InputPrompt
		}

		s.ClassificationFailed = false
	} else {
		e.logger.InfoContext(ctx, "Unsupported document type, asking for manual selection", "doc_type", s.DocumentType)

		s.DocumentType = models.ClassificationFailedMarker
		s.ClassificationFailed = true
		s.SkipVerification = true
	}

	if s.ClassificationFailed || s.SkipVerification {
		return s, Continue{Next: NodeAskManualDocTypeSelection}
	}

	return s, Continue{Next: NodeVerifyClassification}
}

func (e *Engine) verifyClassification(_ context.Context, s models.WorkflowState) (models.WorkflowState, Step) {
	if e.promptLimitReached(s.VerificationAttempts) {
		return s, Terminal{Kind: Failed, Err: fmt.Errorf("%w: classification verification", ErrRetryLimitExceeded)}
	}

	s.VerificationAttempts++

	return s, Suspended{At: NodeReceiveVerificationInput, Prompt: verificationPrompt(s.DocumentType)}
}

func (e *Engine) receiveVerificationInput(_ context.Context, s models.WorkflowState) (models.WorkflowState, Step) {
	s.VerificationReply = ""

	return s, Continue{Next: NodeProcessVerificationResponse}
}

func (e *Engine) processVerificationResponse(ctx context.Context, s models.WorkflowState) (models.WorkflowState, Step) {
	verdict, err := e.oracles.Intent.ClassifyIntent(ctx, s.LatestMessage())

	switch {
	case err != nil:
		e.logger.WarnContext(ctx, "Verification reply could not be judged", "error", err)
		s.VerificationResult = models.VerificationError
	case strings.Contains(verdict, string(models.VerificationAffirmed)):
		s.VerificationResult = models.VerificationAffirmed
	case strings.Contains(verdict, string(models.VerificationRejected)):
		s.VerificationResult = models.VerificationRejected
	default:
		s.VerificationResult = models.VerificationUnclear
	}

	switch s.VerificationResult {
	case models.VerificationAffirmed:
		if s.SkipFieldPrompt {
			return s, Continue{Next: NodeCheckUserInputPolicy}
		}

		return s, Continue{Next: NodeAskRequiredFields}
	case models.VerificationRejected:
		return s, Continue{Next: NodeAskManualDocTypeSelection}
	default:
		return s, Continue{Next: NodeVerifyClassification}
	}
}

func (e *Engine) askManualDocTypeSelection(_ context.Context, s models.WorkflowState) (models.WorkflowState, Step) {
	if e.promptLimitReached(s.SelectionAttempts) {
		return s, Terminal{Kind: Failed, Err: fmt.Errorf("%w: manual document type selection", ErrRetryLimitExceeded)}
	}

	s.SelectionAttempts++

	return s, Suspended{At: NodeReceiveManualDocTypeInput, Prompt: SelectionMenu()}
}

func (e *Engine) receiveManualDocTypeInput(_ context.Context, s models.WorkflowState) (models.WorkflowState, Step) {
	s.VerificationReply = ""

	return s, Continue{Next: NodeProcessManualDocTypeSelection}
}

func (e *Engine) processManualDocTypeSelection(ctx context.Context, s models.WorkflowState) (models.WorkflowState, Step) {
	selection := s.LatestMessage()

	if IsExitSelection(selection) {
		e.logger.InfoContext(ctx, "User chose to exit")

		s.FinalDocument = ""

		return s, Terminal{Kind: Aborted}
	}

	docType, ok := SelectDocumentType(selection)
	if !ok {
		e.logger.InfoContext(ctx, "Invalid document type selection", "selection", selection)

		return s, Continue{Next: NodeAskManualDocTypeSelection}
	}

	s.DocumentType = docType
	s.ClassificationFailed = false

	if entry, ok := e.catalog.Get(docType); ok {
		s.TemplatePrompt = entry.InputPrompt
	}

	if s.SkipFieldPrompt {
		return s, Continue{Next: NodeCheckUserInputPolicy}
	}

	return s, Continue{Next: NodeAskRequiredFields}
}

func (e *Engine) askRequiredFields(_ context.Context, s models.WorkflowState) (models.WorkflowState, Step) {
	prompt := s.TemplatePrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultFieldPrompt
	}

	return s, Suspended{At: NodeReceiveUserInput, Prompt: prompt}
}

// receiveUserInput consumes the reply. The separated content from the first request no
// longer applies once the user has typed the fields themselves.
func (e *Engine) receiveUserInput(_ context.Context, s models.WorkflowState) (models.WorkflowState, Step) {
	s.UserReply = ""
	s.UserContent = ""

	return s, Continue{Next: NodeCheckUserInputPolicy}
}

func (e *Engine) checkUserInputPolicy(ctx context.Context, s models.WorkflowState) (models.WorkflowState, Step) {
	report, err := e.oracles.Policy.CheckPolicy(ctx, s.ActiveContent())
	if err != nil {
		e.logger.WarnContext(ctx, "Policy check failed", "error", err)
		report = policy.CheckError(err)
	}

	s.Violation = report

	if policy.IsActualViolation(report) {
		return s, Continue{Next: NodeInformViolation}
	}

	return s, Continue{Next: NodeParseUserInput}
}

func (e *Engine) parseUserInput(ctx context.Context, s models.WorkflowState) (models.WorkflowState, Step) {
	entry, ok := e.catalog.Get(s.DocumentType)
	if !ok {
		return s, Terminal{Kind: Failed, Err: fmt.Errorf("%w: %s", ErrTemplateNotFound, s.DocumentType)}
	}

	if strings.TrimSpace(entry.SystemPrompt) == "" {
		return s, Terminal{Kind: Failed, Err: fmt.Errorf("%w: %s", ErrMissingSystemPrompt, s.DocumentType)}
	}

	fields, err := e.extractFields(ctx, entry, s.ActiveContent())
	if err != nil {
		s.ParseRetryCount++

		if s.ParseRetryCount >= MaxParseRetries {
			e.logger.WarnContext(ctx, "Field extraction retries exhausted, using fallback values",
				"attempts", s.ParseRetryCount, "error", err)

			s.FilledFields = entry.Fallback()
			s.UsedFallback = true
			s.ParseFailed = false

			return s, Continue{Next: NodeCreateDocument}
		}

		e.logger.InfoContext(ctx, "Field extraction failed, asking again", "attempt", s.ParseRetryCount, "error", err)
		s.ParseFailed = true

		return s, Continue{Next: NodeAskRequiredFields}
	}

	s.FilledFields = fields
	s.ParseFailed = false

	return s, Continue{Next: NodeCreateDocument}
}

func (e *Engine) extractFields(ctx context.Context, entry templates.Entry, content string) (map[string]string, error) {
	raw, err := e.oracles.Extractor.Extract(ctx, oracle.ExtractionRequest{
		DocumentType: entry.DocumentType.String(),
		SystemPrompt: entry.SystemPrompt,
		Fields:       entry.Fields,
		Content:      content,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction oracle: %w", err)
	}

	object, err := oracle.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(object), &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode extracted fields: %w", err)
	}

	fields := make(map[string]string, len(decoded))
	for key, value := range decoded {
		fields[key] = fieldString(value)
	}

	if err := entry.Validate(fields); err != nil {
		return nil, err
	}

	return fields, nil
}

// fieldString flattens one extracted JSON value. Lists become comma separated so the
// renderer can spread them over numbered placeholders.
func fieldString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fieldString(item))
		}

		return strings.Join(items, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func (e *Engine) informViolation(ctx context.Context, s models.WorkflowState) (models.WorkflowState, Step) {
	violations := policy.ParseViolations(s.Violation)

	e.logger.WarnContext(ctx, "Policy violation, document will not be generated",
		"doc_type", s.DocumentType,
		"violations", policy.Describe(violations),
	)

	s.FinalDocument = ""

	return s, Terminal{Kind: Violated}
}

func (e *Engine) createDocument(ctx context.Context, s models.WorkflowState) (models.WorkflowState, Step) {
	path, err := e.renderer.Render(ctx, s.DocumentType, s.FilledFields)
	if err != nil {
		s.FinalDocument = ""
		s.RenderError = err.Error()

		return s, Terminal{Kind: Failed, Err: fmt.Errorf("%w: %w", ErrDocumentNotGenerated, err)}
	}

	s.FinalDocument = path

	return s, Terminal{Kind: Completed}
}

func (e *Engine) promptLimitReached(attempts int) bool {
	return e.maxPromptAttempts > 0 && attempts >= e.maxPromptAttempts
}
