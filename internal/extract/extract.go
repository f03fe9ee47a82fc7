// Package extract turns uploaded resume documents into plain text.
package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	MimePDF         = "application/pdf"
	MimeXPDF        = "application/x-pdf"
	MimeOctetStream = "application/octet-stream"
	MimeZip         = "application/zip"
	MimeDOCX        = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	pageSeparator = "\n\n"
)

var (
	// ErrDocumentParse marks documents that could not be parsed at all.
	ErrDocumentParse = errors.New("document could not be parsed")
	// ErrUnsupportedType marks media types no extractor handles.
	ErrUnsupportedType = errors.New("unsupported document type")
)

// NormalizeMediaType lowercases a Content-Type and drops its parameters.
func NormalizeMediaType(mediaType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mediaType, ";")[0]))
}

// Text extracts plain text from data. An empty string with a nil error means
// the document parsed but carried no extractable text.
func Text(ctx context.Context, data []byte, mediaType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch kind := detect(NormalizeMediaType(mediaType), fileName, data); kind {
	case MimePDF:
		return PDFText(data)
	case MimeDOCX:
		return DOCXText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
}

// detect resolves the declared media type to a concrete format. Generic
// types are resolved by content and file extension.
func detect(mediaType, fileName string, data []byte) string {
	switch mediaType {
	case MimePDF, MimeXPDF:
		return MimePDF
	case MimeDOCX:
		return MimeDOCX
	case MimeOctetStream, MimeZip, "":
	default:
		return mediaType
	}
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return MimePDF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")) && hasWordDocument(data):
		return MimeDOCX
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	}
	if mediaType == MimeOctetStream || mediaType == "" {
		// Unrecognized octet-stream uploads go to the PDF parser.
		return MimePDF
	}
	return mediaType
}

// pages is the minimal view of a paginated document needed to join its text.
type pages interface {
	NumPage() int
	PageText(i int) (string, error)
}

// joinPages concatenates non-blank page texts in order with a blank line
// between them.
func joinPages(doc pages) (string, error) {
	parts := make([]string, 0, doc.NumPage())
	for i := 1; i <= doc.NumPage(); i++ {
		text, err := doc.PageText(i)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.TrimSpace(strings.Join(parts, pageSeparator)), nil
}

type pdfPages struct {
	r *pdf.Reader
}

func (p pdfPages) NumPage() int { return p.r.NumPage() }

func (p pdfPages) PageText(i int) (string, error) {
	page := p.r.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		// A single unreadable page is treated as blank, like an image-only page.
		return "", nil
	}
	return text, nil
}

// PDFText extracts text page by page from a PDF document.
func PDFText(data []byte) (text string, err error) {
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("%w: pdf: %v", ErrDocumentParse, rec)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %v", ErrDocumentParse, err)
	}
	return joinPages(pdfPages{r: reader})
}

// DOCXText extracts text from a Word document, treated as a single page.
func DOCXText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrDocumentParse, err)
	}
	defer doc.Close()

	text, err := stripWordML(doc.Editable().GetContent())
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrDocumentParse, err)
	}
	return strings.TrimSpace(text), nil
}

// stripWordML keeps character data and turns paragraph, break and tab
// elements into whitespace.
func stripWordML(raw string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteByte('\t')
			}
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && buf.Len() > 0 {
				buf.WriteByte('\n')
			}
		}
	}
	return buf.String(), nil
}

func hasWordDocument(data []byte) bool {
	return bytes.Contains(data, []byte("word/document.xml"))
}
