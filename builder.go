package tablesql

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Builder configures input sources before creating a Store. Use NewBuilder,
// chain the Add and With methods, then call Build to validate and Open to
// load everything.
//
// The typical usage pattern is:
//
//	builder := tablesql.NewBuilder().AddPath("data.csv").AddFS(embeddedFS)
//	validated, err := builder.Build(ctx)
//	if err != nil {
//		return err
//	}
//	store, err := validated.Open(ctx)
//	defer store.Close()
//	defer validated.Cleanup()
type Builder struct {
	paths       []string
	filesystems []fs.FS
	cfg         Config

	// collected holds the validated input files after Build.
	collected []*file
	// tempFiles tracks files copied out of fs.FS inputs for cleanup.
	tempFiles []string
}

// NewBuilder creates a Builder with the default configuration.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// AddPath adds a file or directory. Directories are searched recursively for
// supported files (.csv, .tsv, .json, .xlsx, .md, .parquet, optionally
// compressed with .gz, .bz2, .xz, or .zst).
func (b *Builder) AddPath(path string) *Builder {
	b.paths = append(b.paths, path)
	return b
}

// AddPaths adds multiple files or directories at once.
func (b *Builder) AddPaths(paths ...string) *Builder {
	b.paths = append(b.paths, paths...)
	return b
}

// AddFS adds every supported file from a filesystem, typically a go:embed
// FS. Matching files are copied to temporary files during Build so the
// loaders can open them by path; call Cleanup when done.
func (b *Builder) AddFS(filesystem fs.FS) *Builder {
	b.filesystems = append(b.filesystems, filesystem)
	return b
}

// WithConfig replaces the Store configuration used by Open.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// Build validates every input: paths must exist, directories are expanded,
// filesystem entries are copied out, and two inputs may not map to the same
// table name. It returns the builder for chaining with Open.
func (b *Builder) Build(ctx context.Context) (*Builder, error) {
	if len(b.paths) == 0 && len(b.filesystems) == 0 {
		return nil, ErrNoInputs
	}

	b.collected = b.collected[:0]
	seen := make(map[string]string)

	addFile := func(path string) error {
		name := TableNameFromPath(path)
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%w: %s and %s both map to table %q", ErrDuplicateTableName, prev, path, name)
		}
		seen[name] = path
		b.collected = append(b.collected, newFile(path))
		return nil
	}

	for _, path := range b.paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat input path: %w", err)
		}
		if !info.IsDir() {
			if !isSupportedFile(path) {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
			}
			if err := addFile(path); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isSupportedFile(p) {
				return nil
			}
			return addFile(p)
		})
		if err != nil {
			return nil, err
		}
	}

	for _, filesystem := range b.filesystems {
		if err := b.collectFromFS(ctx, filesystem, addFile); err != nil {
			return nil, err
		}
	}

	if len(b.collected) == 0 {
		return nil, ErrNoInputs
	}
	return b, nil
}

// collectFromFS copies every supported file out of the filesystem into a
// temporary file and queues it as an input.
func (b *Builder) collectFromFS(ctx context.Context, filesystem fs.FS, addFile func(string) error) error {
	return fs.WalkDir(filesystem, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !isSupportedFile(p) {
			return nil
		}

		src, err := filesystem.Open(p)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", p, err)
		}
		defer src.Close()

		dst, err := os.CreateTemp("", "tablesql-*-"+filepath.Base(p))
		if err != nil {
			return fmt.Errorf("failed to create temporary file: %w", err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			_ = dst.Close()
			_ = os.Remove(dst.Name())
			return fmt.Errorf("failed to copy %s: %w", p, err)
		}
		if err := dst.Close(); err != nil {
			_ = os.Remove(dst.Name())
			return err
		}

		b.tempFiles = append(b.tempFiles, dst.Name())
		return addFile(dst.Name())
	})
}

// Open creates a Store and registers one table per collected input file.
// Build must have been called first. On failure the partially loaded Store
// is closed and the error reported.
func (b *Builder) Open(ctx context.Context) (*Store, error) {
	if len(b.collected) == 0 {
		return nil, ErrNoInputs
	}

	store, err := NewStore(b.cfg)
	if err != nil {
		return nil, err
	}

	for _, f := range b.collected {
		dataset, err := f.toDataset()
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to load %s: %w", f.path, err)
		}
		if err := store.RegisterTable(ctx, dataset); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to register %s: %w", f.path, err)
		}
	}
	return store, nil
}

// Cleanup removes the temporary files created for fs.FS inputs. Safe to call
// multiple times.
func (b *Builder) Cleanup() error {
	var firstErr error
	for _, path := range b.tempFiles {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	b.tempFiles = nil
	return firstErr
}
