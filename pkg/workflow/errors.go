package workflow

import "errors"

var (
	ErrUnknownNode          = errors.New("unknown workflow node")
	ErrRetryLimitExceeded   = errors.New("prompt attempt limit exceeded")
	ErrTransitionLimit      = errors.New("workflow exceeded transition limit")
	ErrTemplateNotFound     = errors.New("no template for document type")
	ErrMissingSystemPrompt  = errors.New("template has no extraction system prompt")
	ErrDocumentNotGenerated = errors.New("document was not generated")
)
