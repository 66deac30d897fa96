package preview

import (
	"context"
	"fmt"

	"github.com/yanizio/zitefy/internal/assemble"
)

// Registrar issues short-lived download tokens for files.
type Registrar interface {
	Add(path string) string
}

// Tokens are the download handles of one live preview.
type Tokens struct {
	Mobile  string `json:"mobile"`
	Desktop string `json:"desktop"`
}

// Live renders unsaved editor source and hands the images out through the
// token registry.  No site record is involved.
type Live struct {
	Assembler   assemble.Assembler
	Renderer    Renderer
	Registry    Registrar
	ScratchRoot string
	Cleaner     assemble.Cleaner
}

// Preview stages src, assembles it, renders into scratch, and returns one
// token per image.
func (l *Live) Preview(ctx context.Context, src assemble.RawSource) (Tokens, error) {
	in, err := assemble.StageSource(l.ScratchRoot, l.Cleaner, src)
	if err != nil {
		return Tokens{}, err
	}

	html, err := l.Assembler.Assemble(ctx, in)
	if err != nil {
		return Tokens{}, fmt.Errorf("live preview: %w", err)
	}

	pair, err := l.Renderer.Render(ctx, html, nil)
	if err != nil {
		return Tokens{}, fmt.Errorf("live preview: %w", err)
	}

	return Tokens{
		Mobile:  l.Registry.Add(pair.Mobile),
		Desktop: l.Registry.Add(pair.Desktop),
	}, nil
}
