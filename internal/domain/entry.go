package domain

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	// MaxPreviewLen is the stored preview limit (in runes).
	MaxPreviewLen = 200
	// MaxColorHexLen fits the #RRGGBBAA form.
	MaxColorHexLen = 9
	// MaxHashLen fits a hex-encoded SHA-256 digest.
	MaxHashLen = 64
	// MaxContentTypeLen bounds the stored enum name.
	MaxContentTypeLen = 20
)

// ErrInvalidEntry is returned when an entry breaks a single-row invariant.
var ErrInvalidEntry = errors.New("invalid clipboard entry")

// Entry represents one recorded clipboard capture.
//
// Entries are deduplicated by ContentHash: a repeated copy refreshes
// CopiedAt on the existing row instead of inserting a new one.
type Entry struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is assigned by the storage backend on insert.
	ID int64 `json:"id"`

	// ContentHash identifies the content for deduplication.
	// Hex-encoded SHA-256, empty when unknown.
	ContentHash string `json:"content_hash,omitempty"`

	// ─────────────────────────────
	// Payload
	// ─────────────────────────────

	// Content is the copied text, or the archived file path for images.
	Content string `json:"content"`

	// ContentType is the detected kind of content.
	ContentType ContentType `json:"content_type"`

	// Preview is a single-line summary for list rendering.
	Preview string `json:"preview,omitempty"`

	// ColorHex is set for hex colour entries (e.g. "#FF5733").
	ColorHex string `json:"color_hex,omitempty"`

	// ImagePath is set if and only if ContentType is Image.
	ImagePath string `json:"image_path,omitempty"`

	// ─────────────────────────────
	// Recency & retention
	// ─────────────────────────────

	// CopiedAt is refreshed on every bump or re-copy (UTC).
	CopiedAt time.Time `json:"copied_at"`

	// IsPinned exempts the entry from eviction and bulk clear.
	IsPinned bool `json:"is_pinned"`
}

// IsImage reports whether the entry references an archived image file.
func (e *Entry) IsImage() bool {
	return e.ContentType == TypeImage
}

// Clone returns a copy that can be handed out without sharing state.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// Validate checks the invariants a single row must satisfy before insert.
func (e *Entry) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil entry", ErrInvalidEntry)
	}
	if e.Content == "" {
		return fmt.Errorf("%w: content is empty", ErrInvalidEntry)
	}
	if !e.ContentType.Valid() {
		return fmt.Errorf("%w: unknown content type %q", ErrInvalidEntry, e.ContentType)
	}
	if e.IsImage() != (e.ImagePath != "") {
		return fmt.Errorf("%w: image path must be set exactly for image entries", ErrInvalidEntry)
	}
	if utf8.RuneCountInString(e.Preview) > MaxPreviewLen {
		return fmt.Errorf("%w: preview exceeds %d characters", ErrInvalidEntry, MaxPreviewLen)
	}
	if len(e.ColorHex) > MaxColorHexLen {
		return fmt.Errorf("%w: color hex exceeds %d characters", ErrInvalidEntry, MaxColorHexLen)
	}
	if len(e.ContentHash) > MaxHashLen {
		return fmt.Errorf("%w: content hash exceeds %d characters", ErrInvalidEntry, MaxHashLen)
	}
	return nil
}
