package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"path"
	"regexp"
	"strings"
)

var (
	paragraphPattern = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	textRunPattern   = regexp.MustCompile(`(?s)(<w:t(?:\s[^>]*)?>)(.*?)(</w:t>)`)
)

// isTextPart reports whether a package part can hold placeholders.
func isTextPart(name string) bool {
	if path.Dir(name) != "word" || path.Ext(name) != ".xml" {
		return false
	}

	base := path.Base(name)

	return base == "document.xml" || strings.HasPrefix(base, "header") || strings.HasPrefix(base, "footer")
}

// paragraphText joins the visible text of every run in a paragraph.
func paragraphText(paragraph string) string {
	var b strings.Builder

	for _, match := range textRunPattern.FindAllStringSubmatch(paragraph, -1) {
		b.WriteString(html.UnescapeString(match[2]))
	}

	return b.String()
}

// rewriteParagraph substitutes placeholders across run boundaries. When the text
// changes, the whole paragraph text moves into the first run and the other runs are emptied,
// which keeps the first run's formatting.
func rewriteParagraph(paragraph string, sub *Substituter) string {
	original := paragraphText(paragraph)

	replaced := sub.Replace(original)
	if replaced == original {
		return paragraph
	}

	first := true

	return textRunPattern.ReplaceAllStringFunc(paragraph, func(run string) string {
		parts := textRunPattern.FindStringSubmatch(run)
		if !first {
			return parts[1] + parts[3]
		}

		first = false

		var escaped bytes.Buffer
		_ = xml.EscapeText(&escaped, []byte(replaced))

		open := parts[1]
		if !strings.Contains(open, "xml:space") {
			open = `<w:t xml:space="preserve">`
		}

		return open + escaped.String() + parts[3]
	})
}

func docxText(reader *zip.Reader) (string, error) {
	var b strings.Builder

	for _, file := range reader.File {
		if !isTextPart(file.Name) {
			continue
		}

		content, err := readPart(file)
		if err != nil {
			return "", err
		}

		for _, paragraph := range paragraphPattern.FindAllString(content, -1) {
			b.WriteString(paragraphText(paragraph))
			b.WriteByte('\n')
		}
	}

	return b.String(), nil
}

func readPart(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file.Name, err)
	}

	return string(data), nil
}

// renderDocx copies the package to w, substituting placeholders in document, header and footer parts.
func renderDocx(reader *zip.Reader, w io.Writer, sub *Substituter) error {
	writer := zip.NewWriter(w)

	for _, file := range reader.File {
		header := file.FileHeader

		dst, err := writer.CreateHeader(&header)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", file.Name, err)
		}

		if !isTextPart(file.Name) {
			rc, err := file.Open()
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file.Name, err)
			}

			_, err = io.Copy(dst, rc) // #nosec G110 -- template packages are operator supplied
			_ = rc.Close()

			if err != nil {
				return fmt.Errorf("failed to copy %s: %w", file.Name, err)
			}

			continue
		}

		content, err := readPart(file)
		if err != nil {
			return err
		}

		content = paragraphPattern.ReplaceAllStringFunc(content, func(paragraph string) string {
			return rewriteParagraph(paragraph, sub)
		})

		if _, err := io.WriteString(dst, content); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Name, err)
		}
	}

	return writer.Close()
}
