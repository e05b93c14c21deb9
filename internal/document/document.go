// Package document extracts plain text from uploaded documents so they can
// be analyzed like a transcript.
package document

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// ErrNoText indicates the document contained no extractable text (for
// example a scanned PDF without a text layer).
var ErrNoText = errors.New("no text extracted from document")

// ErrContentTooLarge indicates an archive whose entries decompress beyond
// the extractor's budget.
var ErrContentTooLarge = errors.New("document content too large")

// DefaultMaxContentBytes bounds the decompressed size of archive formats.
const DefaultMaxContentBytes = 64 << 20

// Document is the extracted text and how it was obtained.
type Document struct {
	Text   string
	Pages  int
	Method string
	Kind   string
}

// Extractor converts document bytes to text. The zero value is usable.
type Extractor struct {
	// DisablePdftotext skips the poppler tool even when it is installed.
	DisablePdftotext bool
	// MaxContentBytes caps the total decompressed bytes read from an
	// archive. Zero means DefaultMaxContentBytes.
	MaxContentBytes int64
}

// Extract dispatches on the filename extension.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (Document, error) {
	var (
		doc Document
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		doc, err = e.parsePDF(ctx, data)
	case ".epub":
		doc, err = parseEPUB(data, e.contentBudget())
	case ".html", ".htm", ".xhtml":
		doc, err = parseHTML(data)
	case ".srt", ".vtt":
		doc = Document{Text: stripCaptionTiming(string(data)), Method: "caption_parser", Kind: "captions"}
	default:
		doc = Document{Text: string(data), Method: "plain_text_parser", Kind: "text"}
	}
	if err != nil {
		return Document{}, err
	}
	doc.Text = normalizeText(doc.Text)
	if doc.Text == "" {
		return Document{}, ErrNoText
	}
	return doc, nil
}

func (e *Extractor) contentBudget() int64 {
	if e.MaxContentBytes > 0 {
		return e.MaxContentBytes
	}
	return DefaultMaxContentBytes
}

func (e *Extractor) parsePDF(ctx context.Context, data []byte) (Document, error) {
	// pdftotext copes better with complex layouts; the Go library is the fallback.
	if !e.DisablePdftotext {
		if text, err := parsePDFWithPdftotext(ctx, data); err == nil && strings.TrimSpace(text) != "" {
			return Document{Text: text, Method: "pdftotext", Kind: "pdf"}, nil
		}
	}
	return parsePDFWithGoLib(data)
}

// parsePDFWithPdftotext uses the system pdftotext tool (poppler-utils).
func parsePDFWithPdftotext(ctx context.Context, data []byte) (string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", fmt.Errorf("pdftotext not found: %w", err)
	}
	tmp, err := os.CreateTemp("", "upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp pdf: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp pdf: %w", err)
	}
	output, err := exec.CommandContext(ctx, "pdftotext", "-layout", "-enc", "UTF-8", tmp.Name(), "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return string(output), nil
}

func parsePDFWithGoLib(data []byte) (Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("open pdf: %w", err)
	}
	totalPages := reader.NumPage()
	var sb strings.Builder
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip problematic pages instead of failing entirely
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return Document{Text: sb.String(), Pages: totalPages, Method: "ledongthuc_pdf", Kind: "pdf"}, nil
}

func parseEPUB(data []byte, budget int64) (Document, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("open epub: %w", err)
	}
	var sb strings.Builder
	sections := 0
	for _, file := range reader.File {
		name := strings.ToLower(file.Name)
		if !(strings.HasSuffix(name, ".xhtml") || strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".htm")) {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return Document{}, fmt.Errorf("read epub file: %w", err)
		}
		raw, err := io.ReadAll(io.LimitReader(rc, budget+1))
		rc.Close()
		if err != nil {
			return Document{}, fmt.Errorf("read epub content: %w", err)
		}
		if int64(len(raw)) > budget {
			return Document{}, fmt.Errorf("%w: %s", ErrContentTooLarge, file.Name)
		}
		budget -= int64(len(raw))
		doc, err := html.Parse(bytes.NewReader(raw))
		if err != nil {
			return Document{}, fmt.Errorf("parse epub html: %w", err)
		}
		sb.WriteString(extractText(doc))
		sb.WriteString("\n")
		sections++
	}
	return Document{Text: sb.String(), Pages: sections, Method: "epub_html_parser", Kind: "epub"}, nil
}

func parseHTML(data []byte) (Document, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("parse html: %w", err)
	}
	return Document{Text: extractText(doc), Method: "html_parser", Kind: "html"}, nil
}

func extractText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			buf.WriteString(node.Data)
			buf.WriteString(" ")
		case html.ElementNode:
			if node.Data == "script" || node.Data == "style" {
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode && (node.Data == "p" || node.Data == "br" || node.Data == "div" || node.Data == "li" || node.Data == "h1" || node.Data == "h2" || node.Data == "h3") {
			buf.WriteString("\n")
		}
	}
	walk(n)
	return buf.String()
}

// stripCaptionTiming drops WEBVTT headers, cue numbers and "-->" timing lines.
func stripCaptionTiming(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "", strings.HasPrefix(trimmed, "WEBVTT"), strings.Contains(trimmed, "-->"):
			continue
		case isDigits(trimmed):
			continue
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// normalizeText removes control and zero-width characters, collapses runs of
// spaces and keeps at most one blank line between paragraphs.
func normalizeText(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var sb strings.Builder
	for _, r := range text {
		switch {
		case r == '\n':
			sb.WriteRune(r)
		case r == '\t', r == ' ':
			sb.WriteRune(' ')
		case r == '\uFEFF', r == '\u200B', r == '\u2060', r == '\u00AD', r < 0x20, r == 0x7F:
			continue
		default:
			sb.WriteRune(r)
		}
	}
	lines := strings.Split(sb.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
