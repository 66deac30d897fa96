// internal/templates/record.go
//
// Template record and metadata descriptor.
//
// Context
// -------
// A template is a directory under the template root laid out as
//
//	<dir>/metadata.json
//	<dir>/index.html
//	<dir>/styles/styles.css
//	<dir>/js/script.js
//	<dir>/resources/…
//	<dir>/previews/{mobile,desktop}.png
//
// The directory is the source of truth.  The persisted Record is a
// projection of metadata.json plus the absolute directory path and the
// freshly rendered preview pair, rebuilt by the Synchronizer every tick.
//
// Notes
// -----
//   - Name is the natural key.  Two directories must not declare the same
//     name; the Synchronizer skips the later one.
//   - ID is assigned on first insert and survives every later upsert.
package templates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yanizio/zitefy/internal/errs"
	"github.com/yanizio/zitefy/internal/preview"
)

// MetadataFile is the descriptor every template directory carries.
const MetadataFile = "metadata.json"

// Record is one persisted template.
type Record struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Author     string       `json:"author"`
	AuthorLink string       `json:"author_link"`
	Category   string       `json:"category"`
	Time       time.Time    `json:"time"`
	DirPath    string       `json:"dir_path"`
	Previews   preview.Pair `json:"previews"`
}

// Metadata mirrors metadata.json.
type Metadata struct {
	Name       string `json:"name"        validate:"required"`
	Author     string `json:"author"      validate:"required"`
	AuthorLink string `json:"author_link" validate:"required"`
	Category   string `json:"category"    validate:"required"`
	Time       string `json:"time"        validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

var validate = validator.New()

// LoadMetadata reads and validates dir/metadata.json.  Any failure,
// including a missing file, is ErrMalformedMetadata.
func LoadMetadata(dir string) (Metadata, error) {
	raw, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w: %w", dir, errs.ErrMalformedMetadata, err)
	}

	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return Metadata{}, fmt.Errorf("%s: %w: %w", dir, errs.ErrMalformedMetadata, err)
	}
	if err := validate.Struct(&m); err != nil {
		return Metadata{}, fmt.Errorf("%s: %w: %w", dir, errs.ErrMalformedMetadata, err)
	}
	return m, nil
}

// Record builds the candidate record for dir.  A descriptor without a
// time is stamped with now.
func (m Metadata) Record(dir string, now time.Time) Record {
	ts := now.UTC()
	if m.Time != "" {
		// Already validated against RFC 3339.
		if t, err := time.Parse(time.RFC3339, m.Time); err == nil {
			ts = t.UTC()
		}
	}
	return Record{
		Name:       m.Name,
		Author:     m.Author,
		AuthorLink: m.AuthorLink,
		Category:   m.Category,
		Time:       ts,
		DirPath:    dir,
		Previews:   preview.In(dir),
	}
}
