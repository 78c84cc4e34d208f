// Package render fills document templates with extracted field values.
//
// Templates are looked up as "<type>(템플릿형).<ext>" in the template directory. Office
// documents (.docx) are rewritten part by part; .txt and .xml templates are treated as
// plain text. Placeholders take the form "<field>항목내용" and "<field>항목내용<N>".
package render

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dukex/docflow/pkg/models"
)

var (
	ErrUnsupportedType  = errors.New("unsupported document type")
	ErrTemplateNotFound = errors.New("template file not found")
)

var templateExtensions = []string{".docx", ".txt", ".xml"}

// Renderer writes filled documents into an output directory.
type Renderer struct {
	templateDir string
	outputDir   string
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Renderer)

// WithClock overrides the clock used to date output file names.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

func NewRenderer(logger *slog.Logger, templateDir, outputDir string, opts ...Option) *Renderer {
	r := &Renderer{
		templateDir: templateDir,
		outputDir:   outputDir,
		logger:      logger.With("module", "renderer"),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// TemplateBaseName is the template file name without extension.
func TemplateBaseName(docType models.DocumentType) string {
	return string(docType) + "(템플릿형)"
}

// OutputName is the generated file name for docType on day.
func OutputName(docType models.DocumentType, day time.Time, ext string) string {
	return fmt.Sprintf("%s_%s%s", docType.Compact(), day.Format("20060102"), ext)
}

func (r *Renderer) findTemplate(docType models.DocumentType) (string, string, error) {
	for _, ext := range templateExtensions {
		candidate := filepath.Join(r.templateDir, TemplateBaseName(docType)+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, ext, nil
		}
	}

	return "", "", fmt.Errorf("%w: %s in %s", ErrTemplateNotFound, TemplateBaseName(docType), r.templateDir)
}

// Render fills the template for docType and returns the written file's path.
func (r *Renderer) Render(ctx context.Context, docType models.DocumentType, fields map[string]string) (string, error) {
	if !docType.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, docType)
	}

	templatePath, ext, err := r.findTemplate(docType)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(templatePath) // #nosec G304 -- path built from a known document type
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}

	var out []byte

	switch ext {
	case ".docx":
		out, err = renderDocxBytes(data, docType, fields)
	default:
		text := string(data)
		out = []byte(NewSubstituter(Replacements(docType, fields, text)).Replace(text))
	}

	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.outputDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(r.outputDir, OutputName(docType, r.now(), ext))
	if err := os.WriteFile(outputPath, out, 0600); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	r.logger.InfoContext(ctx, "Document rendered", "doc_type", docType, "template", templatePath, "path", outputPath)

	return outputPath, nil
}

func renderDocxBytes(data []byte, docType models.DocumentType, fields map[string]string) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx template: %w", err)
	}

	text, err := docxText(reader)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := renderDocx(reader, &buf, NewSubstituter(Replacements(docType, fields, text))); err != nil {
		return nil, fmt.Errorf("failed to render docx: %w", err)
	}

	return buf.Bytes(), nil
}
