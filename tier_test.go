package tablesql

import "testing"

func TestDecideTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		rowCount  int
		threshold int
		expected  StorageTier
	}{
		{name: "below threshold", rowCount: 99_999, threshold: DefaultLargeTableThreshold, expected: TierMemory},
		{name: "at threshold", rowCount: 100_000, threshold: DefaultLargeTableThreshold, expected: TierFileView},
		{name: "above threshold", rowCount: 1_000_000, threshold: DefaultLargeTableThreshold, expected: TierFileView},
		{name: "empty dataset", rowCount: 0, threshold: DefaultLargeTableThreshold, expected: TierMemory},
		{name: "custom threshold", rowCount: 10, threshold: 10, expected: TierFileView},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := decideTier(tt.rowCount, tt.threshold); got != tt.expected {
				t.Errorf("decideTier(%d, %d) = %v, want %v", tt.rowCount, tt.threshold, got, tt.expected)
			}
		})
	}
}

func TestStorageTier_String(t *testing.T) {
	t.Parallel()

	if TierMemory.String() != "memory" {
		t.Errorf("unexpected name: %s", TierMemory.String())
	}
	if TierFileView.String() != "file_view" {
		t.Errorf("unexpected name: %s", TierFileView.String())
	}
}

func TestTableEntry_Ready(t *testing.T) {
	t.Parallel()

	entry := &tableEntry{name: "t", status: StatusLoading, storage: &memoryStorage{}}
	if entry.ready() {
		t.Error("loading entry must not be ready")
	}
	entry.status = StatusReady
	if !entry.ready() {
		t.Error("ready entry reported not ready")
	}
	entry.status = StatusFailed
	if entry.ready() {
		t.Error("failed entry must not be ready")
	}
}
