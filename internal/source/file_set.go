package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"
)

// FileSet manages the collection of source files for one compilation.
type FileSet struct {
	files []File
	index map[string]FileID // path -> id
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0),
		index: make(map[string]FileID),
	}
}

// Add stores a file from normalized bytes, computes the line index, and
// returns a new FileID. A later Add with the same path wins in the index.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	lenFiles, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("file set overflow: %w", err))
	}
	id := FileID(lenFiles)
	normalized := filepath.ToSlash(path)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    normalized,
		Content: content,
		LineIdx: buildLineIndex(content),
		Flags:   flags,
	})
	fs.index[normalized] = id
	return id
}

// Load reads a file from disk, normalizes BOM/CRLF, and calls Add.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	flags := FileFlags(0)
	if trimmed, ok := bytes.CutPrefix(content, []byte{0xEF, 0xBB, 0xBF}); ok {
		content = trimmed
		flags |= FileHadBOM
	}
	if bytes.Contains(content, []byte("\r\n")) {
		content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
		flags |= FileNormalizedCRLF
	}
	return fs.Add(path, content, flags), nil
}

// AddVirtual adds an in-memory file (tests, stdin, generated code).
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.Add(name, content, FileVirtual)
}

// Get returns the file for an ID or nil.
func (fs *FileSet) Get(id FileID) *File {
	if int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// Len reports the number of files.
func (fs *FileSet) Len() int { return len(fs.files) }

func buildLineIndex(content []byte) []uint32 {
	var idx []uint32
	for i, b := range content {
		if b == '\n' {
			idx = append(idx, uint32(i)+1)
		}
	}
	return idx
}
