// Package templates loads the per-document-type prompts and fallback values used by the workflow.
package templates

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/dukex/docflow/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultCatalog []byte

// Entry is the immutable configuration of one document type.
type Entry struct {
	DocumentType   models.DocumentType
	Fields         []string
	InputPrompt    string
	SystemPrompt   string
	FallbackFields map[string]string
	Schema         map[string]any
}

type entryFile struct {
	Fields         []string          `yaml:"fields"`
	InputPrompt    string            `yaml:"input_prompt"`
	SystemPrompt   string            `yaml:"choan_system_prompt"`
	FallbackFields map[string]string `yaml:"choan_fallback_fields"`
	Schema         map[string]any    `yaml:"schema"`
}

type catalogFile struct {
	Templates map[string]entryFile `yaml:"templates"`
}

// Catalog is a read-only lookup from document type to Entry.
type Catalog struct {
	entries map[models.DocumentType]Entry
}

// Load reads the catalog at path, or the embedded default when path is empty.
// A missing or malformed file yields an empty catalog and a warning.
func Load(logger *slog.Logger, path string) *Catalog {
	data := defaultCatalog

	if path != "" {
		raw, err := os.ReadFile(path) // #nosec G304 -- operator supplied configuration path
		if err != nil {
			logger.Warn("Template catalog not found, continuing with empty catalog", "path", path, "error", err)

			return &Catalog{entries: map[models.DocumentType]Entry{}}
		}

		data = raw
	}

	catalog, err := Parse(data)
	if err != nil {
		logger.Warn("Template catalog could not be parsed, continuing with empty catalog", "path", path, "error", err)

		return &Catalog{entries: map[models.DocumentType]Entry{}}
	}

	logger.Info("Template catalog loaded", "path", path, "document_types", len(catalog.entries))

	return catalog
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse template catalog: %w", err)
	}

	entries := make(map[models.DocumentType]Entry, len(file.Templates))

	for name, raw := range file.Templates {
		docType := models.DocumentType(name)

		fields := raw.Fields
		if len(fields) == 0 {
			for key := range raw.FallbackFields {
				fields = append(fields, key)
			}

			sort.Strings(fields)
		}

		entries[docType] = Entry{
			DocumentType:   docType,
			Fields:         fields,
			InputPrompt:    raw.InputPrompt,
			SystemPrompt:   raw.SystemPrompt,
			FallbackFields: raw.FallbackFields,
			Schema:         raw.Schema,
		}
	}

	return &Catalog{entries: entries}, nil
}

// Get returns the entry for docType.
func (c *Catalog) Get(docType models.DocumentType) (Entry, bool) {
	entry, ok := c.entries[docType]

	return entry, ok
}

// DocumentTypes lists the configured types in sorted order.
func (c *Catalog) DocumentTypes() []models.DocumentType {
	types := make([]models.DocumentType, 0, len(c.entries))
	for t := range c.entries {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// Fallback returns a copy of the type's fallback field values.
func (e Entry) Fallback() map[string]string {
	out := make(map[string]string, len(e.FallbackFields))
	for k, v := range e.FallbackFields {
		out[k] = v
	}

	return out
}
