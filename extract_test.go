package studymcq

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a one-page PDF per text with a WinAnsi Helvetica font.
func buildPDF(t *testing.T, pages ...string) []byte {
	t.Helper()
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"", // page tree, filled below
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	var kids []string
	for _, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
		contentRef := len(objs)
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			contentRef))
		kids = append(kids, fmt.Sprintf("%d 0 R", len(objs)))
	}
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// buildDOCX zips a minimal Word document around the given body XML.
func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDocumentExtractorPDF(t *testing.T) {
	var ex DocumentExtractor

	text, err := ex.Extract(buildPDF(t, "Mitochondria make ATP", "Ribosomes build proteins"), "Biology.PDF")
	require.NoError(t, err)
	assert.Contains(t, text, "Mitochondria make ATP")
	assert.Contains(t, text, "Ribosomes build proteins")
}

func TestDocumentExtractorDOCX(t *testing.T) {
	var ex DocumentExtractor

	body := `<w:p><w:r><w:t>Photosynthesis</w:t></w:r><w:r><w:t xml:space="preserve"> uses light &amp; water.</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Step</w:t><w:tab/><w:t>one</w:t></w:r></w:p>`
	text, err := ex.Extract(buildDOCX(t, body), "notes.docx")
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis uses light & water.\nStep\tone", text)
}

func TestDocumentExtractorErrors(t *testing.T) {
	var ex DocumentExtractor

	tests := []struct {
		name        string
		data        []byte
		filename    string
		unsupported bool
	}{
		{"corrupt pdf", []byte("%PDF-1.4\nnot really a pdf"), "paper.pdf", false},
		{"corrupt docx", []byte("PK not a zip"), "paper.docx", false},
		{"legacy doc", []byte{0xd0, 0xcf, 0x11, 0xe0}, "paper.doc", true},
		{"image", []byte{0x89, 'P', 'N', 'G'}, "scan.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ex.Extract(tt.data, tt.filename)
			require.Error(t, err)
			assert.Equal(t, tt.unsupported, errors.Is(err, ErrUnsupportedFormat))
		})
	}

	text, err := ex.Extract([]byte("plain notes"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "plain notes", text)
}

