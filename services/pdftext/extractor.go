// Package pdftext extracts the plain text of uploaded documents so it can be fed to the chat model.
package pdftext

import (
	"bytes"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core/course"
)

// ErrUnsupported is returned for documents that are neither PDF nor plain text.
var ErrUnsupported = errors.New("unsupported document type")

type Extractor struct{}

var _ course.TextExtractor = (*Extractor)(nil) // interface compliance check

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (Extractor) ExtractText(filename string, content []byte) (string, error) {
	switch ext := strings.ToLower(path.Ext(filename)); {
	case ext == ".pdf" || bytes.HasPrefix(content, []byte("%PDF-")):
		return extractPDF(content)
	case ext == ".txt" || ext == ".md":
		if !utf8.Valid(content) {
			return "", errors.Wrap(ErrUnsupported, "text is not valid UTF-8")
		}
		return string(content), nil
	}
	return "", ErrUnsupported
}

func extractPDF(content []byte) (text string, err error) {
	// the pdf reader panics on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("reading pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", errors.Wrap(err, "opening pdf")
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", errors.Wrap(err, "extracting pdf text")
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", errors.Wrap(err, "reading pdf text")
	}
	return string(b), nil
}
