package studymcq

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/samber/lo"
)

// Extractor turns an uploaded document into plain text.
type Extractor interface {
	Extract(data []byte, filename string) (string, error)
}

// PlainTextExtractor reads UTF-8 text files.
type PlainTextExtractor struct{}

var plainTextExtensions = map[string]bool{".txt": true, ".md": true}

// Extract returns the file content, or ErrUnsupportedFormat for anything but text.
func (PlainTextExtractor) Extract(data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !plainTextExtensions[ext] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrUnsupportedFormat, filename)
	}
	return string(data), nil
}

// DocumentExtractor reads PDF and DOCX uploads and hands text files to PlainTextExtractor.
type DocumentExtractor struct {
	PlainTextExtractor
}

// Extract returns the document's text, or ErrUnsupportedFormat for unknown extensions.
func (e DocumentExtractor) Extract(data []byte, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err := pdfText(data)
		if err != nil {
			return "", fmt.Errorf("failed to read PDF %s: %w", filename, err)
		}
		return text, nil
	case ".docx":
		text, err := docxText(data)
		if err != nil {
			return "", fmt.Errorf("failed to read DOCX %s: %w", filename, err)
		}
		return text, nil
	default:
		return e.PlainTextExtractor.Extract(data, filename)
	}
}

func pdfText(data []byte) (text string, err error) {
	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(content))
	}
	return strings.Join(lo.Compact(pages), "\n"), nil
}

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()
	return wordXMLText(doc.Editable().GetContent())
}

// wordXMLText flattens word/document.xml: paragraphs become lines, tabs and
// breaks are kept, everything but run text is dropped.
func wordXMLText(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	var (
		sb     strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
