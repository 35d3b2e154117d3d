package profile

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DescriptionFromPDF extracts the plain text of a PDF character document
// and condenses it into a profile description. The result is whitespace
// normalized and truncated to the description length limit.
func DescriptionFromPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}

	text := strings.Join(strings.Fields(buf.String()), " ")
	if text == "" {
		return "", fmt.Errorf("pdf contains no extractable text")
	}

	runes := []rune(text)
	if len(runes) > maxDescriptionLen {
		text = string(runes[:maxDescriptionLen])
		// Cut at the last full word when one exists.
		if i := strings.LastIndex(text, " "); i > maxDescriptionLen/2 {
			text = text[:i]
		}
	}
	return text, nil
}
