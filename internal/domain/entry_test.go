package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   *Entry
		wantErr bool
	}{
		{
			name:  "plain text",
			entry: &Entry{Content: "hello", ContentType: TypeText, Preview: "hello"},
		},
		{
			name:  "image with path",
			entry: &Entry{Content: "/tmp/a.png", ContentType: TypeImage, ImagePath: "/tmp/a.png"},
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantErr: true,
		},
		{
			name:    "empty content",
			entry:   &Entry{ContentType: TypeText},
			wantErr: true,
		},
		{
			name:    "unknown type",
			entry:   &Entry{Content: "x", ContentType: "Blob"},
			wantErr: true,
		},
		{
			name:    "image without path",
			entry:   &Entry{Content: "/tmp/a.png", ContentType: TypeImage},
			wantErr: true,
		},
		{
			name:    "text with image path",
			entry:   &Entry{Content: "x", ContentType: TypeText, ImagePath: "/tmp/a.png"},
			wantErr: true,
		},
		{
			name:    "preview too long",
			entry:   &Entry{Content: "x", ContentType: TypeText, Preview: strings.Repeat("a", MaxPreviewLen+1)},
			wantErr: true,
		},
		{
			name:    "color hex too long",
			entry:   &Entry{Content: "x", ContentType: TypeColor, ColorHex: "#FFFFFFFFF"},
			wantErr: true,
		},
		{
			name:    "hash too long",
			entry:   &Entry{Content: "x", ContentType: TypeText, ContentHash: strings.Repeat("a", MaxHashLen+1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEntry) {
					t.Errorf("Validate() = %v, want ErrInvalidEntry", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestParseContentType(t *testing.T) {
	for _, name := range []string{"Text", "Code", "Color", "Image", "Url", "Email"} {
		ct, err := ParseContentType(name)
		if err != nil {
			t.Fatalf("ParseContentType(%q) error: %v", name, err)
		}
		if ct.String() != name {
			t.Errorf("ParseContentType(%q) = %q", name, ct)
		}
		if len(name) > MaxContentTypeLen {
			t.Errorf("content type %q exceeds stored length", name)
		}
	}

	if _, err := ParseContentType("url"); err == nil {
		t.Error("ParseContentType should be case-sensitive")
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.HistoryLimit != 50 {
		t.Errorf("HistoryLimit = %d, want 50", s.HistoryLimit)
	}
	if s.Hotkey.Modifiers != ModCtrl|ModShift || s.Hotkey.Key != 0x56 {
		t.Errorf("Hotkey = %+v, want Ctrl+Shift+V", s.Hotkey)
	}
	if s.Theme != "Dark" {
		t.Errorf("Theme = %q, want Dark", s.Theme)
	}
}

func TestAppSettingsClone(t *testing.T) {
	x, y := 10.0, 20.0
	s := DefaultSettings()
	s.WidgetPositionX = &x
	s.WidgetPositionY = &y

	c := s.Clone()
	*c.WidgetPositionX = 99

	if *s.WidgetPositionX != 10 {
		t.Errorf("Clone shares WidgetPositionX with the original")
	}
	if c.WidgetPositionY == s.WidgetPositionY {
		t.Errorf("Clone shares WidgetPositionY pointer")
	}
	if DefaultSettings().Clone().WidgetPositionX != nil {
		t.Errorf("Clone of nil position should stay nil")
	}
}
