package tablesql

import (
	"context"
	"sort"
)

// recoverLocked reopens the engine and replays every registered table.
//
// The connection is closed and re-allocated, then each registry entry is
// re-registered from its cached dataset (memory tier) or backing file
// (file-view tier). Per-table outcomes are independent: a table that fails
// to replay is marked Failed with its reason, and the remaining tables are
// still replayed. The lock is held for the whole replay; callers observe a
// bounded pause, not a deadlock.
//
// recoverLocked returns an error only when the engine itself cannot be
// re-allocated. Individual table failures surface later as
// table-not-found errors on the queries that touch them.
func (s *Store) recoverLocked(ctx context.Context) error {
	_ = s.closeLocked()

	if _, err := s.ensureOpenLocked(ctx); err != nil {
		return err
	}

	// Replay in name order so recovery behaves deterministically.
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	replayed, failed := 0, 0
	for _, name := range names {
		entry := s.tables[name]
		s.replayTableLocked(ctx, entry)
		if entry.status == StatusReady {
			replayed++
		} else {
			failed++
		}
	}

	s.log.Info().
		Int("replayed", replayed).
		Int("failed", failed).
		Msg("connection recovered")
	return nil
}
