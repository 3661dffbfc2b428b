package tablesql

import (
	"testing"
)

func TestParseJSON(t *testing.T) {
	t.Parallel()

	t.Run("Array of objects", func(t *testing.T) {
		t.Parallel()

		path := writeTestFile(t, "users.json",
			`[{"id": 1, "name": "alice"}, {"id": 2, "name": "bob"}]`)
		dataset, err := newFile(path).toDataset()
		if err != nil {
			t.Fatal(err)
		}

		if dataset.Name() != "users" {
			t.Errorf("expected table name users, got %s", dataset.Name())
		}
		// Keys come back in sorted order.
		if !dataset.Header().Equal(NewHeader([]string{"id", "name"})) {
			t.Errorf("unexpected header: %v", dataset.Header())
		}
		if !dataset.Records()[0].Equal(NewRecord([]string{"1", "alice"})) {
			t.Errorf("unexpected first row: %v", dataset.Records()[0])
		}
	})

	t.Run("Object of arrays", func(t *testing.T) {
		t.Parallel()

		path := writeTestFile(t, "cols.json",
			`{"id": [1, 2], "name": ["alice", "bob"]}`)
		dataset, err := newFile(path).toDataset()
		if err != nil {
			t.Fatal(err)
		}
		if dataset.RowCount() != 2 {
			t.Errorf("expected 2 rows, got %d", dataset.RowCount())
		}
		if !dataset.Records()[1].Equal(NewRecord([]string{"2", "bob"})) {
			t.Errorf("unexpected second row: %v", dataset.Records()[1])
		}
	})

	t.Run("Missing keys become empty cells", func(t *testing.T) {
		t.Parallel()

		path := writeTestFile(t, "sparse.json",
			`[{"a": 1}, {"a": 2, "b": "x"}]`)
		dataset, err := newFile(path).toDataset()
		if err != nil {
			t.Fatal(err)
		}
		if !dataset.Records()[0].Equal(NewRecord([]string{"1", ""})) {
			t.Errorf("unexpected row: %v", dataset.Records()[0])
		}
	})

	t.Run("Value rendering", func(t *testing.T) {
		t.Parallel()

		path := writeTestFile(t, "vals.json",
			`[{"b": true, "f": 1.5, "i": 7, "n": null, "o": {"x": 1}}]`)
		dataset, err := newFile(path).toDataset()
		if err != nil {
			t.Fatal(err)
		}
		if !dataset.Records()[0].Equal(NewRecord([]string{"true", "1.5", "7", "", `{"x":1}`})) {
			t.Errorf("unexpected row: %v", dataset.Records()[0])
		}
	})

	t.Run("Ragged column arrays rejected", func(t *testing.T) {
		t.Parallel()

		path := writeTestFile(t, "ragged.json", `{"a": [1, 2], "b": [1]}`)
		if _, err := newFile(path).toDataset(); err == nil {
			t.Error("expected error for ragged columns")
		}
	})

	t.Run("Scalar document rejected", func(t *testing.T) {
		t.Parallel()

		path := writeTestFile(t, "scalar.json", `42`)
		if _, err := newFile(path).toDataset(); err == nil {
			t.Error("expected error for non-tabular JSON")
		}
	})
}
