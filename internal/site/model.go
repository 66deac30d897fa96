package site

import (
	"path/filepath"
	"time"

	"github.com/yanizio/zitefy/internal/assemble"
)

// Record is one user site.  The working directory lives at
// <site_root>/<ID> and belongs to this site alone; ids are never reused.
//
// Bindings are ordered; position in the slice is the order the builder
// applies them in.
type Record struct {
	ID       string             `json:"id"`
	OwnerID  string             `json:"owner_id"`
	DirPath  string             `json:"dir_path"`
	Bindings []assemble.Binding `json:"data"`
	Meta     Meta               `json:"metadata"`
}

// Meta is the display data copied from the template at creation time.
type Meta struct {
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Dir returns the working directory of site id under root.
func Dir(root, id string) string {
	return filepath.Join(root, id)
}
