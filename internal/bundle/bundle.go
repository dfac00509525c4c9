// Package bundle renders walkthroughs into portable export files and parses
// them back for import.
package bundle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/codec"
)

// Version is the bundle format version written by the renderers.
const Version = 1

// Bundle is the complete, renderable representation of one walkthrough,
// including its audio.
type Bundle struct {
	Version     int              `json:"version"`
	ID          string           `json:"id,omitempty"`
	CreatedAt   time.Time        `json:"createdAt,omitzero"`
	Walkthrough codec.WireRecord `json:"walkthrough"`
}

// New wraps a wire record in a bundle of the current version.
func New(id string, createdAt time.Time, w codec.WireRecord) *Bundle {
	return &Bundle{Version: Version, ID: id, CreatedAt: createdAt, Walkthrough: w}
}

// validate checks the embedded walkthrough against the wire record schema.
func (b *Bundle) validate() error {
	if b.Version != Version {
		return fmt.Errorf("unsupported bundle version %d", b.Version)
	}
	raw, err := json.Marshal(b.Walkthrough)
	if err != nil {
		return err
	}
	return codec.ValidateJSON(raw)
}
