package assemble

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/yanizio/zitefy/internal/errs"
	"github.com/yanizio/zitefy/internal/scratch"
)

// Binding is one piece of user-entered content spliced into the markup at
// build time.  Every field is optional.
type Binding struct {
	Selector *string `json:"selector"`
	Value    *string `json:"value"`
	Link     *string `json:"link"`
}

// Cleaner schedules deletion of a scratch directory.
type Cleaner interface {
	ScheduleDelete(dir string, delay time.Duration)
}

// RawSource is page source supplied inline rather than from a directory.
type RawSource struct {
	HTML     string    `json:"html"`
	CSS      string    `json:"css"`
	JS       string    `json:"js"`
	Bindings []Binding `json:"data"`
}

// WriteBindings writes bindings as the builder's data file.  A nil slice
// is written as [] so the builder never sees null.
func WriteBindings(path string, bindings []Binding) error {
	if bindings == nil {
		bindings = []Binding{}
	}
	b, err := json.Marshal(bindings)
	if err != nil {
		return err
	}
	return errs.IO("write bindings", os.WriteFile(path, b, 0o644))
}

// StageSource writes src into a fresh scratch workspace under root and
// returns the Sources pointing at it.  The workspace is handed to cl for
// deletion after scratch.AssembleGrace, also when a write fails.
func StageSource(root string, cl Cleaner, src RawSource) (Sources, error) {
	dir, err := scratch.NewWorkspace(root, "assemble-*")
	if err != nil {
		return Sources{}, err
	}
	cl.ScheduleDelete(dir, scratch.AssembleGrace)

	out := Sources{
		HTML: filepath.Join(dir, "input.html"),
		CSS:  filepath.Join(dir, "input.css"),
		JS:   filepath.Join(dir, "input.js"),
		Data: filepath.Join(dir, "input.json"),
	}
	for path, body := range map[string]string{
		out.HTML: src.HTML,
		out.CSS:  src.CSS,
		out.JS:   src.JS,
	} {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return Sources{}, errs.IO("stage source", err)
		}
	}
	if err := WriteBindings(out.Data, src.Bindings); err != nil {
		return Sources{}, err
	}
	return out, nil
}

// StageBindings writes bindings into a fresh scratch workspace and returns
// the data file path.  Used to build a persisted site with its content.
func StageBindings(root string, cl Cleaner, bindings []Binding) (string, error) {
	dir, err := scratch.NewWorkspace(root, "bindings-*")
	if err != nil {
		return "", err
	}
	cl.ScheduleDelete(dir, scratch.AssembleGrace)

	path := filepath.Join(dir, "input.json")
	if err := WriteBindings(path, bindings); err != nil {
		return "", err
	}
	return path, nil
}
