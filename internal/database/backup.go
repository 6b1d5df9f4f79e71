package database

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Backup copies the sqlite file to a timestamped snapshot on a daily
// ticker and prunes snapshots older than the retention window. sqlite
// in WAL-less mode keeps the file consistent for a plain copy.
type Backup struct {
	dbPath        string
	storagePath   string
	retentionDays int
	logger        zerolog.Logger
}

func NewBackup(dbPath, storagePath string, retentionDays int, logger zerolog.Logger) *Backup {
	return &Backup{
		dbPath:        dbPath,
		storagePath:   storagePath,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Start runs the backup loop until ctx is cancelled. The first snapshot
// is taken immediately.
func (b *Backup) Start(ctx context.Context) {
	b.logger.Info().Str("path", b.storagePath).Msg("backup loop started")

	if err := b.Run(); err != nil {
		b.logger.Error().Err(err).Msg("backup failed")
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.Run(); err != nil {
				b.logger.Error().Err(err).Msg("backup failed")
			}
			b.prune()
		}
	}
}

// Run takes one snapshot.
func (b *Backup) Run() error {
	if err := os.MkdirAll(b.storagePath, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("zapisnik_%s.db", time.Now().Format("20060102_150405"))
	dest := filepath.Join(b.storagePath, name)

	source, err := os.Open(b.dbPath)
	if err != nil {
		return fmt.Errorf("open db file: %w", err)
	}
	defer source.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, source); err != nil {
		return fmt.Errorf("copy snapshot: %w", err)
	}

	b.logger.Info().Str("snapshot", dest).Msg("backup written")
	return nil
}

func (b *Backup) prune() {
	if b.retentionDays <= 0 {
		return
	}
	entries, err := os.ReadDir(b.storagePath)
	if err != nil {
		b.logger.Error().Err(err).Msg("read backup dir")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -b.retentionDays)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			b.logger.Info().Str("snapshot", e.Name()).Msg("old backup removed")
			_ = os.Remove(filepath.Join(b.storagePath, e.Name()))
		}
	}
}
