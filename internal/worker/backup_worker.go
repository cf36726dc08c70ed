// Package worker consumes ledger events and maintains JSON snapshot backups,
// optionally mirroring new transactions to a spreadsheet.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"financaspro/internal/amqp"
	"financaspro/internal/core"
	"financaspro/internal/sheets"
)

const backupPrefix = "financaspro-"

// SnapshotLoader is the read side of the ledger store.
type SnapshotLoader interface {
	Load(ctx context.Context) (*core.Snapshot, error)
}

// BackupWorker turns every ledger event into a fresh on-disk backup. Events
// carry no payload, so each one triggers a full snapshot read; backups are
// therefore always consistent regardless of event ordering or replays.
type BackupWorker struct {
	store  SnapshotLoader
	mirror sheets.TransactionWriter
	dir    string
	keep   int
	now    func() time.Time
}

// NewBackupWorker builds a worker writing at most keep backups into dir.
// mirror may be nil when the Sheets integration is not configured.
func NewBackupWorker(store SnapshotLoader, mirror sheets.TransactionWriter, dir string, keep int) *BackupWorker {
	return &BackupWorker{
		store:  store,
		mirror: mirror,
		dir:    dir,
		keep:   keep,
		now:    time.Now,
	}
}

// HandleEvent processes one ledger event. The backup write happens for every
// kind; created transactions additionally go to the spreadsheet mirror.
// Returning an error requeues the event.
func (w *BackupWorker) HandleEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	snap, err := w.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	path, err := w.writeBackup(snap)
	if err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	slog.InfoContext(ctx, "Backup written",
		"kind", event.Kind, "version", event.Version, "path", path)

	if event.Kind == amqp.EventTransactionCreated && w.mirror != nil {
		if err := w.mirrorTransaction(ctx, snap, event.EntityID); err != nil {
			return fmt.Errorf("mirror transaction: %w", err)
		}
	}
	return nil
}

// RunPeriodic writes a safety-net backup on every tick even when no events
// arrive, until the context ends.
func (w *BackupWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap, err := w.store.Load(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Periodic backup load failed", "error", err)
				continue
			}
			if _, err := w.writeBackup(snap); err != nil {
				slog.ErrorContext(ctx, "Periodic backup write failed", "error", err)
			}
		}
	}
}

func (w *BackupWorker) writeBackup(snap *core.Snapshot) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	name := backupPrefix + w.now().UTC().Format("20060102-150405") + ".json"
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write backup file: %w", err)
	}

	if err := w.prune(); err != nil {
		slog.Warn("Backup pruning failed", "error", err)
	}
	return path, nil
}

// prune deletes the oldest backups beyond the keep count. Timestamped names
// sort chronologically, so lexical order is enough.
func (w *BackupWorker) prune() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}

	var backups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), ".json") {
			backups = append(backups, e.Name())
		}
	}
	if len(backups) <= w.keep {
		return nil
	}

	sort.Strings(backups)
	for _, name := range backups[:len(backups)-w.keep] {
		if err := os.Remove(filepath.Join(w.dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func (w *BackupWorker) mirrorTransaction(ctx context.Context, snap *core.Snapshot, id core.ID) error {
	tx, ok := snap.Transaction(id)
	if !ok {
		// deleted again before we got here; nothing to mirror
		slog.WarnContext(ctx, "Transaction vanished before mirroring", "id", id)
		return nil
	}

	ref, err := w.mirror.Append(ctx, tx)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction mirrored", "id", id, "row_ref", ref)
	return nil
}
