package source

// FileID identifies a file inside a FileSet.
type FileID uint32

// FileFlags records normalization applied when a file was loaded.
type FileFlags uint8

const (
	// FileHadBOM marks files that carried a UTF-8 BOM on disk.
	FileHadBOM FileFlags = 1 << iota
	// FileNormalizedCRLF marks files whose CRLF line endings were rewritten.
	FileNormalizedCRLF
	// FileVirtual marks in-memory files (tests, stdin).
	FileVirtual
)

// File is one source file with its content and line index.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // byte offset of each line start
	Flags   FileFlags
}

// LineCol resolves a byte offset into a 1-based line/column pair.
func (f *File) LineCol(offset uint32) (line, col uint32) {
	line = 1
	start := uint32(0)
	for _, idx := range f.LineIdx {
		if idx > offset {
			break
		}
		start = idx
		line++
	}
	if len(f.LineIdx) == 0 || f.LineIdx[0] > offset {
		line = 1
		start = 0
	}
	return line, offset - start + 1
}

// LineText returns the text of the 1-based line, without its terminator.
func (f *File) LineText(line uint32) string {
	if line == 0 {
		return ""
	}
	starts := make([]uint32, 0, len(f.LineIdx)+1)
	starts = append(starts, 0)
	starts = append(starts, f.LineIdx...)
	if int(line) > len(starts) {
		return ""
	}
	start := starts[line-1]
	end := uint32(len(f.Content))
	if int(line) < len(starts) {
		end = starts[line]
	}
	text := f.Content[start:end]
	for len(text) > 0 && (text[len(text)-1] == '\n' || text[len(text)-1] == '\r') {
		text = text[:len(text)-1]
	}
	return string(text)
}
