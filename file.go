package tablesql

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// FileType represents a supported input format, independent of compression.
type FileType int

const (
	// FileTypeCSV represents comma-separated files
	FileTypeCSV FileType = iota
	// FileTypeTSV represents tab-separated files
	FileTypeTSV
	// FileTypeJSON represents JSON files (array-of-objects or object-of-arrays)
	FileTypeJSON
	// FileTypeXLSX represents Excel workbooks
	FileTypeXLSX
	// FileTypeMarkdown represents Markdown files containing a pipe table
	FileTypeMarkdown
	// FileTypeParquet represents Parquet files
	FileTypeParquet
	// FileTypeUnsupported represents everything else
	FileTypeUnsupported
)

// File extensions
const (
	extCSV      = ".csv"
	extTSV      = ".tsv"
	extJSON     = ".json"
	extXLSX     = ".xlsx"
	extMarkdown = ".md"
	extParquet  = ".parquet"
	extGZ       = ".gz"
	extBZ2      = ".bz2"
	extXZ       = ".xz"
	extZSTD     = ".zst"
)

// CompressionType represents the compression wrapper of an input file.
type CompressionType int

const (
	// CompressionNone means the file is not compressed
	CompressionNone CompressionType = iota
	// CompressionGZ is gzip
	CompressionGZ
	// CompressionBZ2 is bzip2
	CompressionBZ2
	// CompressionXZ is xz
	CompressionXZ
	// CompressionZSTD is zstandard
	CompressionZSTD
)

// Extension returns the path suffix for the compression type, or "" for none.
func (c CompressionType) Extension() string {
	switch c {
	case CompressionGZ:
		return extGZ
	case CompressionBZ2:
		return extBZ2
	case CompressionXZ:
		return extXZ
	case CompressionZSTD:
		return extZSTD
	default:
		return ""
	}
}

// file is one input file queued for loading.
type file struct {
	path        string
	fileType    FileType
	compression CompressionType
}

func newFile(path string) *file {
	return &file{
		path:        path,
		fileType:    detectFileType(path),
		compression: detectCompression(path),
	}
}

// detectCompression detects the compression wrapper from the path suffix.
func detectCompression(path string) CompressionType {
	switch lower := strings.ToLower(path); {
	case strings.HasSuffix(lower, extGZ):
		return CompressionGZ
	case strings.HasSuffix(lower, extBZ2):
		return CompressionBZ2
	case strings.HasSuffix(lower, extXZ):
		return CompressionXZ
	case strings.HasSuffix(lower, extZSTD):
		return CompressionZSTD
	default:
		return CompressionNone
	}
}

// removeCompressionExtension strips a trailing compression suffix, if any.
func removeCompressionExtension(path string) string {
	for _, ext := range []string{extGZ, extBZ2, extXZ, extZSTD} {
		if strings.HasSuffix(strings.ToLower(path), ext) {
			return path[:len(path)-len(ext)]
		}
	}
	return path
}

// detectFileType detects the base format from the extension, looking through
// a compression suffix when present.
func detectFileType(path string) FileType {
	switch strings.ToLower(filepath.Ext(removeCompressionExtension(path))) {
	case extCSV:
		return FileTypeCSV
	case extTSV:
		return FileTypeTSV
	case extJSON:
		return FileTypeJSON
	case extXLSX:
		return FileTypeXLSX
	case extMarkdown:
		return FileTypeMarkdown
	case extParquet:
		return FileTypeParquet
	default:
		return FileTypeUnsupported
	}
}

// isSupportedFile checks whether the file name carries a loadable extension,
// with or without a compression suffix.
func isSupportedFile(fileName string) bool {
	return detectFileType(fileName) != FileTypeUnsupported
}

// supportedFileExtPatterns returns glob patterns for every loadable
// extension and compression combination.
func supportedFileExtPatterns() []string {
	baseExts := []string{extCSV, extTSV, extJSON, extXLSX, extMarkdown, extParquet}
	compressionExts := []string{"", extGZ, extBZ2, extXZ, extZSTD}

	patterns := make([]string, 0, len(baseExts)*len(compressionExts))
	for _, baseExt := range baseExts {
		for _, compressionExt := range compressionExts {
			patterns = append(patterns, "*"+baseExt+compressionExt)
		}
	}
	return patterns
}

// openReader opens the file and wraps it in the matching decompression
// reader. The returned closer releases both the decompressor and the file.
func (f *file) openReader() (io.Reader, func() error, error) {
	raw, err := os.Open(f.path) //nolint:gosec // Loading user-named files is the point
	if err != nil {
		return nil, nil, err
	}

	var reader io.Reader = raw
	closer := raw.Close

	switch f.compression {
	case CompressionGZ:
		gzReader, err := gzip.NewReader(raw)
		if err != nil {
			_ = raw.Close()
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		reader = gzReader
		closer = func() error {
			_ = gzReader.Close()
			return raw.Close()
		}
	case CompressionBZ2:
		reader = bzip2.NewReader(raw)
	case CompressionXZ:
		xzReader, err := xz.NewReader(raw)
		if err != nil {
			_ = raw.Close()
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		reader = xzReader
	case CompressionZSTD:
		decoder, err := zstd.NewReader(raw)
		if err != nil {
			_ = raw.Close()
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		reader = decoder
		closer = func() error {
			decoder.Close()
			return raw.Close()
		}
	}

	return reader, closer, nil
}

// toDataset parses the file into a dataset named after the file.
func (f *file) toDataset() (*Dataset, error) {
	switch f.fileType {
	case FileTypeCSV:
		return f.parseCSV()
	case FileTypeTSV:
		return f.parseTSV()
	case FileTypeJSON:
		return f.parseJSON()
	case FileTypeXLSX:
		return f.parseXLSX()
	case FileTypeMarkdown:
		return f.parseMarkdown()
	case FileTypeParquet:
		return f.parseParquet()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.path)
	}
}
