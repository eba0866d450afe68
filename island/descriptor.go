package island

import (
	"encoding/json"
	"slices"

	"github.com/surgify/islandkit/errors"
)

// Maximum sizes accepted from marker attributes. Markers come from rendered
// documents, so limits guard against malformed or hostile payloads.
const (
	MaxIDLength    = 256
	MaxTypeLength  = 128
	MaxPropsSize   = 64 * 1024
	MaxGroupTags   = 16
	MaxTagLength   = 64
)

// Descriptor describes one mountable UI fragment. Descriptors are immutable
// once created: any "update" to a mounted island is a new property payload
// delivered to the existing instance, never a new descriptor.
type Descriptor struct {
	// ID is unique within the document and stable for the fragment's lifetime
	ID string `json:"id"`
	// Type identifies which view component to load (e.g. "analytics")
	Type string `json:"type"`
	// GroupTags classify the island for one-to-many routing
	GroupTags []string `json:"groupTags,omitempty"`
	// InitialProperties is the opaque configuration passed at mount time
	InitialProperties json.RawMessage `json:"initialProperties,omitempty"`
}

// HasTag reports whether the descriptor carries the given group tag.
func (d Descriptor) HasTag(tag string) bool {
	return slices.Contains(d.GroupTags, tag)
}

// Validate checks the descriptor against the marker contract limits.
func (d Descriptor) Validate() error {
	if d.ID == "" {
		return errors.WrapInvalid(errors.ErrInvalidMarker, "Descriptor", "Validate", "empty id")
	}
	if len(d.ID) > MaxIDLength {
		return errors.WrapInvalid(errors.ErrInvalidMarker, "Descriptor", "Validate", "id too long")
	}
	if err := validateName(d.ID); err != nil {
		return errors.Wrap(err, "Descriptor", "Validate", "id charset")
	}
	if d.Type == "" {
		return errors.WrapInvalid(errors.ErrInvalidMarker, "Descriptor", "Validate", "empty type")
	}
	if len(d.Type) > MaxTypeLength {
		return errors.WrapInvalid(errors.ErrInvalidMarker, "Descriptor", "Validate", "type too long")
	}
	if err := validateName(d.Type); err != nil {
		return errors.Wrap(err, "Descriptor", "Validate", "type charset")
	}
	if len(d.GroupTags) > MaxGroupTags {
		return errors.WrapInvalid(errors.ErrInvalidMarker, "Descriptor", "Validate", "too many group tags")
	}
	for _, tag := range d.GroupTags {
		if tag == "" || len(tag) > MaxTagLength {
			return errors.WrapInvalid(errors.ErrInvalidMarker, "Descriptor", "Validate", "group tag length")
		}
		if err := validateName(tag); err != nil {
			return errors.Wrap(err, "Descriptor", "Validate", "group tag charset")
		}
	}
	if len(d.InitialProperties) > MaxPropsSize {
		return errors.WrapInvalid(errors.ErrInvalidProps, "Descriptor", "Validate", "properties too large")
	}
	if len(d.InitialProperties) > 0 && !json.Valid(d.InitialProperties) {
		return errors.WrapInvalid(errors.ErrInvalidProps, "Descriptor", "Validate", "properties not valid JSON")
	}
	return nil
}

// validateName restricts identifiers to alphanumeric, dash, underscore and dot
func validateName(name string) error {
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return errors.WrapInvalid(errors.ErrInvalidMarker, "Descriptor", "validateName",
				"invalid identifier characters")
		}
	}
	return nil
}
