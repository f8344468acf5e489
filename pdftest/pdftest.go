// Package pdftest writes small, valid single-font PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Build returns a PDF with one page per argument. Each page shows its text
// with a WinAnsi Helvetica font, one text line per input line. An empty
// string produces a page without text.
func Build(pages ...string) []byte {
	var buf bytes.Buffer
	offsets := []int{0}

	object := func(body string) int {
		offsets = append(offsets, buf.Len())
		num := len(offsets) - 1
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
		return num
	}

	buf.WriteString("%PDF-1.4\n")

	// Object numbers are fixed: catalog 1, page tree 2, font 3, then
	// (content, page) pairs.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}

	object("<< /Type /Catalog /Pages 2 0 R >>")
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	object("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for _, text := range pages {
		stream := contentStream(text)
		contentNum := object(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
		object(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			contentNum,
		))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets[1:] {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets), xref)

	return buf.Bytes()
}

func contentStream(text string) string {
	if text == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("BT\n/F1 12 Tf\n14 TL\n72 720 Td\n")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			sb.WriteString("T*\n")
		}
		sb.WriteString("(")
		sb.WriteString(escape(line))
		sb.WriteString(") Tj\n")
	}
	sb.WriteString("ET")
	return sb.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
