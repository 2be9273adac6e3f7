package compare

import (
	"context"
	"fmt"

	"scaffoldr/internal/diff"
	"scaffoldr/internal/output"
	"scaffoldr/internal/snapshot"
)

// Reconciled is generated output after formatting and snapshot replay.
type Reconciled struct {
	// Files maps path to the contents that should exist on disk.
	Files map[string][]byte
	// Options carries each kept file's write options.
	Options map[string]output.WriteOptions
	// Replayed lists paths whose stored diff was applied.
	Replayed []string
	Warnings []string
}

// ReconcileOutput formats every generated file and replays snap onto it:
// paths recorded as added or deleted are dropped, and stored diffs are
// applied. A diff that no longer applies leaves the generated contents in
// place and adds a warning.
func ReconcileOutput(ctx context.Context, out *output.Output, snap *snapshot.Snapshot) (*Reconciled, error) {
	rec := &Reconciled{
		Files:   make(map[string][]byte, len(out.Files)),
		Options: make(map[string]output.WriteOptions, len(out.Files)),
	}
	for _, p := range out.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if snap.IsAdded(p) || snap.IsDeleted(p) {
			continue
		}
		contents, err := out.FormatFile(ctx, p)
		if err != nil {
			return nil, err
		}
		if patch, ok := snap.Diff(p); ok {
			patched, err := diff.Apply(contents, patch)
			if err != nil {
				rec.Warnings = append(rec.Warnings, fmt.Sprintf("%s: stored diff no longer applies (%v); using generated contents", p, err))
			} else {
				contents = patched
				rec.Replayed = append(rec.Replayed, p)
			}
		}
		rec.Files[p] = contents
		rec.Options[p] = out.Files[p].Options
	}
	return rec, nil
}

// Snapshot turns an accepted comparison into a snapshot: working-only files
// become added, missing generated files deleted, and text modifications
// stored diffs. Binary or oversize modifications cannot be replayed and are
// returned as skipped.
func (s *Summary) Snapshot() (snap *snapshot.Snapshot, skipped []string) {
	snap = snapshot.New()
	for _, e := range s.Entries {
		switch e.Kind {
		case KindAdded:
			snap.MarkAdded(e.Path)
		case KindDeleted:
			snap.MarkDeleted(e.Path)
		case KindModified:
			if e.IsBinary || e.Oversize || e.UnifiedDiff == "" {
				skipped = append(skipped, e.Path)
				continue
			}
			snap.SetDiff(e.Path, e.UnifiedDiff)
		}
	}
	return snap, skipped
}
