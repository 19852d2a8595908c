// ABOUTME: Extension-keyed registry that resolves a file path to a Source builder
// ABOUTME: The player consults this when handling the load command
package audiosource

import (
	"path/filepath"
	"strings"

	"github.com/resonate-protocol/playd/internal/audio"
	"github.com/resonate-protocol/playd/internal/playerr"
)

// BuilderFunc opens path and returns a ready-to-decode Source.
type BuilderFunc func(path string) (audio.Source, error)

// Registry maps a lowercased extension (without its leading dot) to the
// builder that handles it.
type Registry map[string]BuilderFunc

// Default returns the registry wired to every decoder this package ships.
func Default() Registry {
	return Registry{
		"wav":  NewWAV,
		"mp3":  NewMP3,
		"flac": NewFLAC,
		"opus": NewOpus,
	}
}

// Open resolves path's extension against the registry and builds a
// Source. The extension is everything after the last '.', lowercased.
func (r Registry) Open(path string) (audio.Source, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	builder, ok := r[ext]
	if !ok {
		return nil, playerr.New(playerr.NoDecoder, "no decoder for extension: %s", ext)
	}
	return builder(path)
}
