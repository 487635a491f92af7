package classifier

import (
	"regexp"
	"strings"

	"github.com/MrSnakeDoc/clipflow/internal/domain"
)

var (
	// #RGB, #RGBA, #RRGGBB, #RRGGBBAA
	hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$|^#(?:[0-9a-fA-F]{4}){1,2}$`)

	rgbColorRe = regexp.MustCompile(`(?i)^rgba?\s*\(\s*\d{1,3}\s*,\s*\d{1,3}\s*,\s*\d{1,3}\s*(?:,\s*[\d.]+\s*)?\)$`)

	urlRe = regexp.MustCompile(`(?i)^https?://[\w\-]+(\.[\w\-]+)+[/#?]?.*$`)

	emailRe = regexp.MustCompile(`(?i)^[\w.\-]+@[\w.\-]+\.\w{2,}$`)

	// Keywords and punctuation that open a line of source code.
	codeConstructRe = regexp.MustCompile(`(?m)^(?:\{|\[|function\s|public\s+(?:class|interface|enum|struct|record)|private\s+(?:class|interface)|protected\s+|internal\s+|def\s+\w+\s*\(|import\s+|from\s+\w+\s+import|const\s+\w+\s*=|let\s+\w+\s*=|var\s+\w+\s*=|export\s+(?:default\s+)?(?:function|class|const|let)|interface\s+\w+|namespace\s+|using\s+\w+|#include\s*<|<!DOCTYPE|<\?xml|<\?php|package\s+\w+|@interface\s+|class\s+\w+\s*(?:\(|:)|struct\s+\w+|enum\s+\w+|fn\s+\w+|impl\s+|trait\s+|module\s+)`)

	// Operators and tokens that rarely show up in prose.
	codeIndicatorRe = regexp.MustCompile(`(?:=>|->|\$\{|\{\{|</\w+>|/>|===|!==|&&|\|\||::\w+|@\w+\()`)

	creditCardRe = regexp.MustCompile(`^\d{4}[\s\-]?\d{4}[\s\-]?\d{4}[\s\-]?\d{4}$`)

	ssnRe = regexp.MustCompile(`^\d{3}[\s\-]?\d{2}[\s\-]?\d{4}$`)
)

// matcher is one row of the detection table.
type matcher struct {
	name        string
	contentType domain.ContentType
	match       func(text string) bool
}

// matchers is evaluated top to bottom; the first hit decides the type.
// Input is already trimmed and non-empty.
var matchers = []matcher{
	{
		name:        "hex-color",
		contentType: domain.TypeColor,
		match:       hexColorRe.MatchString,
	},
	{
		name:        "rgb-color",
		contentType: domain.TypeColor,
		match:       rgbColorRe.MatchString,
	},
	{
		name:        "url",
		contentType: domain.TypeURL,
		match:       singleLine(urlRe.MatchString),
	},
	{
		name:        "email",
		contentType: domain.TypeEmail,
		match:       singleLine(emailRe.MatchString),
	},
	{
		name:        "code-tokens",
		contentType: domain.TypeCode,
		match: func(text string) bool {
			return codeConstructRe.MatchString(text) || codeIndicatorRe.MatchString(text)
		},
	},
	{
		name:        "code-structure",
		contentType: domain.TypeCode,
		match:       LooksLikeCode,
	},
}

func singleLine(fn func(string) bool) func(string) bool {
	return func(text string) bool {
		return !strings.Contains(text, "\n") && fn(text)
	}
}
