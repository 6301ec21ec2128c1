package sections

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
)

//go:embed prompts
var embeddedPrompts embed.FS

var ErrPromptNotFound = errors.New("prompt template not found")

// PromptLoader resolves prompt templates from an ordered list of file systems. The first
// file system holding any candidate path wins.
type PromptLoader struct {
	sources []fs.FS
}

// NewPromptLoader uses the embedded prompts, preceded by dir when it is non-empty and exists.
func NewPromptLoader(dir string) (*PromptLoader, error) {
	builtin, err := fs.Sub(embeddedPrompts, "prompts")
	if err != nil {
		return nil, err
	}
	var sources []fs.FS
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("prompt directory %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("prompt directory %s is not a directory", dir)
		}
		sources = append(sources, os.DirFS(dir))
	}
	return &PromptLoader{sources: append(sources, builtin)}, nil
}

// NewPromptLoaderFS is used by tests and callers that bring their own templates.
func NewPromptLoaderFS(sources ...fs.FS) *PromptLoader {
	return &PromptLoader{sources: sources}
}

// candidates lists the lookup order for a prompt name and language.
func candidates(name, lang string) []string {
	return []string{
		path.Join(lang, name+".md"),
		fmt.Sprintf("%s_%s.md", name, lang),
		name + ".md",
	}
}

// Load returns the template text, or ErrPromptNotFound naming every path tried.
func (l *PromptLoader) Load(name, lang string) (string, error) {
	paths := candidates(name, lang)
	for _, src := range l.sources {
		for _, p := range paths {
			raw, err := fs.ReadFile(src, p)
			if err == nil {
				return string(raw), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s (tried %v)", ErrPromptNotFound, name, paths)
}
