package config

import "context"

// Loader is the interface for a format-specific program loader.
type Loader interface {
	// Load reads one program file and translates it into the
	// format-agnostic model.
	Load(ctx context.Context, path string) (*Model, error)

	// Extensions lists the file extensions the loader understands,
	// including the leading dot.
	Extensions() []string
}
