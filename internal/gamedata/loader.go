package gamedata

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Load reads and unmarshals a JSON file from the embedded filesystem.
func Load[T any](filename string) (T, error) {
	return decode[T](dataFS, filename)
}

// LoadFile reads and unmarshals a JSON file from disk. It lets operators
// supply their own map packs without rebuilding.
func LoadFile[T any](path string) (T, error) {
	return decode[T](os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

// MustLoad reads and unmarshals an embedded JSON file, panicking on error.
// Use this for data that must be present for the game to function.
func MustLoad[T any](filename string) T {
	result, err := Load[T](filename)
	if err != nil {
		panic(err)
	}
	return result
}

func decode[T any](fsys fs.FS, filename string) (T, error) {
	var result T

	content, err := fs.ReadFile(fsys, filename)
	if err != nil {
		return result, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	if err := json.Unmarshal(content, &result); err != nil {
		return result, fmt.Errorf("failed to parse JSON from %s: %w", filename, err)
	}

	return result, nil
}
