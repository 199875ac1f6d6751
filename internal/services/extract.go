package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"flash-quiz/internal/models"
)

var (
	// ErrUnsupportedFormat is returned for file types the extractor does not handle.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrCorruptFile is returned when a supported file cannot be parsed.
	ErrCorruptFile = errors.New("corrupt file")
)

const (
	MimePlainText = "text/plain"
	MimeMarkdown  = "text/markdown"
	MimePDF       = "application/pdf"
	MimeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeDOC       = "application/msword"
)

type fileKind int

const (
	kindUnknown fileKind = iota
	kindText
	kindPDF
	kindWord
)

// TextExtractor turns uploaded file bytes into plain text.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract picks a parser from the declared MIME type or file extension and
// returns the document text.
func (e *TextExtractor) Extract(ctx context.Context, filename, declaredType string, data []byte) (string, error) {
	kind := classify(filename, declaredType)
	if kind == kindUnknown {
		return "", fmt.Errorf("%w: name=%s type=%s", ErrUnsupportedFormat, filename, declaredType)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrCorruptFile, filename)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch kind {
	case kindText:
		text, err = extractPlainText(data)
	case kindPDF:
		text, err = extractPDF(data)
	case kindWord:
		text, err = extractDOCX(data)
	}
	if err != nil {
		log.Err(err).Str("file", filename).Str("type", declaredType).Msg("extract-text-failed")
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ExtractDocument reads src fully and extracts it into a DocumentContent.
func (e *TextExtractor) ExtractDocument(ctx context.Context, filename, declaredType string, src io.Reader) (models.DocumentContent, error) {
	doc := models.DocumentContent{Filename: filename, FileType: declaredType}
	data, err := io.ReadAll(src)
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", filename, err)
	}
	doc.Text, err = e.Extract(ctx, filename, declaredType, data)
	return doc, err
}

func classify(filename, declaredType string) fileKind {
	mt := strings.ToLower(strings.TrimSpace(declaredType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case mt == MimePlainText || mt == MimeMarkdown:
		return kindText
	case mt == MimePDF:
		return kindPDF
	case strings.Contains(mt, "wordprocessingml") || strings.Contains(mt, "msword"):
		return kindWord
	}

	switch ext {
	case ".txt", ".md", ".markdown":
		return kindText
	case ".pdf":
		return kindPDF
	case ".docx", ".doc":
		return kindWord
	}
	return kindUnknown
}

func extractPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", ErrCorruptFile)
	}
	return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
}

func extractPDF(data []byte) (text string, err error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", fmt.Errorf("%w: missing %%PDF header", ErrCorruptFile)
	}
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: pdf parser: %v", ErrCorruptFile, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf reader: %v", ErrCorruptFile, err)
	}

	var builder strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrCorruptFile, i, err)
		}
		builder.WriteString(strings.Join(strings.Fields(pageText), " "))
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// extractDOCX reads word/document.xml and emits one line per paragraph.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a docx container: %v", ErrCorruptFile, err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			part = f
			break
		}
	}
	if part == nil {
		return "", fmt.Errorf("%w: word/document.xml not found", ErrCorruptFile)
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open document part: %v", ErrCorruptFile, err)
	}
	defer rc.Close()

	var (
		builder   strings.Builder
		paragraph strings.Builder
		inText    bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: document xml: %v", ErrCorruptFile, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				paragraph.WriteString("\t")
			case "br":
				paragraph.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if line := strings.TrimSpace(paragraph.String()); line != "" {
					builder.WriteString(line)
					builder.WriteString("\n")
				}
				paragraph.Reset()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}
	if line := strings.TrimSpace(paragraph.String()); line != "" {
		builder.WriteString(line)
	}
	return builder.String(), nil
}
