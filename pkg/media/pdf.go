package media

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDFText parses the document locally and concatenates the text of
// every page with page markers. Scanned/image-only documents produce no text
// and fail with the pdf_no_text kind.
func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", newError(KindPDFNoText, fmt.Errorf("load pdf: %w", err))
	}

	var b strings.Builder
	for n := 1; n <= reader.NumPage(); n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		fmt.Fprintf(&b, "--- Página %d ---\n%s\n", n, strings.TrimSpace(text))
	}

	extracted := strings.TrimSpace(b.String())
	if extracted == "" {
		return "", newError(KindPDFNoText, fmt.Errorf("no extractable text (scanned or image-only document)"))
	}
	return extracted, nil
}
