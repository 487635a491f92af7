// Package classifier maps copied text to a content type, preview and hash.
//
// Everything here is pure and deterministic: the same input always yields
// the same result, and no input can make classification fail. Text that
// matches nothing falls through to domain.TypeText.
package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/MrSnakeDoc/clipflow/internal/domain"
)

const (
	// DefaultPreviewLen is the preview length used by Analyze.
	DefaultPreviewLen = 100

	ellipsis = "..."

	// A multi-line snippet is code when its indicator count exceeds 3/10
	// of its line count.
	codeLineRatioNum = 3
	codeLineRatioDen = 10
)

// Analysis is the classification result for a piece of text.
type Analysis struct {
	ContentType domain.ContentType
	ColorHex    string
	Preview     string
	ContentHash string
}

// Analyze classifies text and derives the fields stored alongside it.
func Analyze(text string) Analysis {
	ct := DetectType(text)

	var colorHex string
	if ct == domain.TypeColor {
		colorHex = ExtractColorHex(text)
	}

	return Analysis{
		ContentType: ct,
		ColorHex:    colorHex,
		Preview:     GeneratePreview(text, DefaultPreviewLen),
		ContentHash: ComputeHash(text),
	}
}

// DetectType returns the content type of text.
func DetectType(text string) domain.ContentType {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.TypeText
	}

	for _, m := range matchers {
		if m.match(text) {
			return m.contentType
		}
	}
	return domain.TypeText
}

// LooksLikeCode applies the multi-line structural heuristic.
//
// Each line scores one point per indicator it shows: ending with ';', '{'
// or '}', being indented by four spaces or a tab, starting with a comment
// marker. Text is code when the total exceeds 30% of the line count.
func LooksLikeCode(text string) bool {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return false
	}

	indicators := 0
	for _, line := range lines {
		indicators += codeIndicators(line)
	}

	return indicators*codeLineRatioDen > len(lines)*codeLineRatioNum
}

func codeIndicators(line string) int {
	trimmed := strings.TrimSpace(line)
	n := 0

	if strings.HasSuffix(trimmed, ";") || strings.HasSuffix(trimmed, "{") || strings.HasSuffix(trimmed, "}") {
		n++
	}
	if (strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t")) && trimmed != "" {
		n++
	}
	for _, marker := range []string{"//", "/*", "*", "#"} {
		if strings.HasPrefix(trimmed, marker) {
			n++
			break
		}
	}
	return n
}

// ExtractColorHex returns the uppercased hex colour in text, or "" when
// text is not a hex colour.
func ExtractColorHex(text string) string {
	m := hexColorRe.FindString(strings.TrimSpace(text))
	return strings.ToUpper(m)
}

// GeneratePreview flattens content to a single line of at most maxLen
// characters, followed by "..." when truncated.
func GeneratePreview(content string, maxLen int) string {
	if content == "" {
		return ""
	}

	normalized := strings.NewReplacer(
		"\r\n", " ",
		"\n", " ",
		"\r", " ",
		"\t", " ",
	).Replace(content)

	for strings.Contains(normalized, "  ") {
		normalized = strings.ReplaceAll(normalized, "  ", " ")
	}
	normalized = strings.TrimSpace(normalized)

	if maxLen < 0 || utf8.RuneCountInString(normalized) <= maxLen {
		return normalized
	}

	runes := []rune(normalized)
	return strings.TrimRight(string(runes[:maxLen]), " \t\r\n") + ellipsis
}

// ComputeHash returns the hex-encoded SHA-256 digest of content's UTF-8 bytes.
func ComputeHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
