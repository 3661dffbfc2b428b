package tablesql

import (
	"context"
)

// Open loads the given files and directories into a new Store with the
// default configuration. Each file becomes one table named after the file
// without its extensions.
//
// Example:
//
//	store, err := tablesql.Open("data/users.csv", "data/orders.parquet")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	result, err := store.Execute(context.Background(),
//		"SELECT department, COUNT(*) FROM users GROUP BY department")
func Open(paths ...string) (*Store, error) {
	return OpenContext(context.Background(), paths...)
}

// OpenContext is Open with a caller-supplied context covering file loading
// and table registration.
func OpenContext(ctx context.Context, paths ...string) (*Store, error) {
	builder, err := NewBuilder().AddPaths(paths...).Build(ctx)
	if err != nil {
		return nil, err
	}
	return builder.Open(ctx)
}

// OpenWith is OpenContext with a non-default Store configuration.
func OpenWith(ctx context.Context, cfg Config, paths ...string) (*Store, error) {
	builder, err := NewBuilder().WithConfig(cfg).AddPaths(paths...).Build(ctx)
	if err != nil {
		return nil, err
	}
	return builder.Open(ctx)
}
