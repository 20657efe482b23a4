package command

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/aretw0/glance/pkg/core"
)

// ErrNoText is returned when the engine ran but found nothing.
var ErrNoText = errors.New("no text found")

// Recognizer runs an OCR engine (e.g. `tesseract {path} stdout`) and returns
// its stdout as the recognized text.
type Recognizer struct {
	Runner Runner
}

func (r Recognizer) Recognize(ctx context.Context, path string) (string, error) {
	out, err := r.Runner.Run(ctx, path)
	if err != nil {
		return "", err
	}

	text := normalizeText(out)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// normalizeText converts engine output to NFC, unifies line endings and
// drops trailing whitespace and blank lines at both ends.
func normalizeText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\f", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

var _ core.Recognizer = Recognizer{}
