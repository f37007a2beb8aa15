// Package source provides the buildable units fed through the worklist
package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cherry/cherry/pkg/types"
)

// Source is a buildable unit: a type tag, an optional origin and lazily read content.
// Origin returns "" for content synthesized in memory.
type Source interface {
	Type() types.FileType
	Origin() string
	Read() ([]byte, error)
}

// IsURL reports whether a manifest entry refers to a remote file
func IsURL(ref string) bool {
	return strings.Contains(ref, "://")
}

// File is a source stored on the local file system
type File struct {
	path     string
	fileType types.FileType
	contents []byte
	loaded   bool
}

// NewFile creates a file source; its type comes from the extension
func NewFile(path string) *File {
	return &File{
		path:     path,
		fileType: types.FileTypeFromPath(path),
	}
}

// Type returns the type tag derived from the extension
func (f *File) Type() types.FileType {
	return f.fileType
}

// Origin returns the file path
func (f *File) Origin() string {
	return f.path
}

// Read loads the file on first call and returns the cached bytes afterwards
func (f *File) Read() ([]byte, error) {
	if f.loaded {
		return f.contents, nil
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMissingSource, f.path, err)
	}
	f.contents = data
	f.loaded = true
	return f.contents, nil
}

// Memory is a source synthesized in memory
type Memory struct {
	fileType types.FileType
	contents []byte
}

// NewMemory creates an in-memory source with an explicit type
func NewMemory(fileType types.FileType, contents []byte) *Memory {
	return &Memory{
		fileType: fileType,
		contents: contents,
	}
}

// Type returns the explicit type tag
func (m *Memory) Type() types.FileType {
	return m.fileType
}

// Origin is always empty for in-memory sources
func (m *Memory) Origin() string {
	return ""
}

// Read returns the contents given at construction
func (m *Memory) Read() ([]byte, error) {
	return m.contents, nil
}

// NewInclude creates a JavaScript source that makes the dev runtime load path
// as a file of the given kind (js, css or less).
func NewInclude(kind types.FileType, path string) *Memory {
	return NewMemory(types.FileTypeJavaScript,
		[]byte(fmt.Sprintf("cherry.include_%s(%s);\n", kind, Quote(path))))
}

// Quote renders s as a JavaScript string literal
func Quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
