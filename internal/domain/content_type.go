package domain

import "fmt"

// ContentType is the detected kind of a clipboard entry.
// Values are persisted by name.
type ContentType string

const (
	TypeText  ContentType = "Text"
	TypeCode  ContentType = "Code"
	TypeColor ContentType = "Color"
	TypeImage ContentType = "Image"
	TypeURL   ContentType = "Url"
	TypeEmail ContentType = "Email"
)

var contentTypes = map[ContentType]struct{}{
	TypeText:  {},
	TypeCode:  {},
	TypeColor: {},
	TypeImage: {},
	TypeURL:   {},
	TypeEmail: {},
}

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	_, ok := contentTypes[t]
	return ok
}

func (t ContentType) String() string { return string(t) }

// ParseContentType converts a stored name back into a ContentType.
func ParseContentType(s string) (ContentType, error) {
	t := ContentType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown content type %q", s)
	}
	return t, nil
}
