package tablesql

import (
	"testing"
)

func TestDetectFileType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path     string
		expected FileType
	}{
		{"data.csv", FileTypeCSV},
		{"data.CSV", FileTypeCSV},
		{"data.tsv", FileTypeTSV},
		{"data.json", FileTypeJSON},
		{"data.xlsx", FileTypeXLSX},
		{"notes.md", FileTypeMarkdown},
		{"data.parquet", FileTypeParquet},
		{"data.csv.gz", FileTypeCSV},
		{"data.tsv.bz2", FileTypeTSV},
		{"data.json.xz", FileTypeJSON},
		{"data.parquet.zst", FileTypeParquet},
		{"data.txt", FileTypeUnsupported},
		{"data", FileTypeUnsupported},
		{"data.gz", FileTypeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			if got := detectFileType(tt.path); got != tt.expected {
				t.Errorf("detectFileType(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestDetectCompression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path     string
		expected CompressionType
	}{
		{"data.csv", CompressionNone},
		{"data.csv.gz", CompressionGZ},
		{"data.csv.bz2", CompressionBZ2},
		{"data.csv.xz", CompressionXZ},
		{"data.csv.zst", CompressionZSTD},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			if got := detectCompression(tt.path); got != tt.expected {
				t.Errorf("detectCompression(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestIsSupportedFile(t *testing.T) {
	t.Parallel()

	if !isSupportedFile("a.csv") || !isSupportedFile("a.parquet.zst") {
		t.Error("expected supported file")
	}
	if isSupportedFile("a.txt") || isSupportedFile("a") {
		t.Error("expected unsupported file")
	}
}

func TestSupportedFileExtPatterns(t *testing.T) {
	t.Parallel()

	patterns := supportedFileExtPatterns()
	// 6 base formats, each plain plus 4 compression variants.
	if len(patterns) != 30 {
		t.Errorf("expected 30 patterns, got %d", len(patterns))
	}
}
