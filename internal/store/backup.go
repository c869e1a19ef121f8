package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"castboard/internal/config"
)

// BackupService makes periodic file copies of the audit database. The
// write-back audit is the only state that cannot be rebuilt from the
// sheets, so it is the only thing backed up.
type BackupService struct {
	dbPath string
	cfg    config.BackupConfig
	logger *zerolog.Logger
}

func NewBackupService(dbPath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{dbPath: dbPath, cfg: cfg, logger: logger}
}

// Start runs backups until the stop channel closes. It is a no-op when
// backups are disabled.
func (s *BackupService) Start(stop <-chan struct{}) {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("Audit backups disabled")
		return
	}

	s.logger.Info().
		Str("path", s.cfg.StoragePath).
		Dur("interval", s.cfg.Interval()).
		Msg("Audit backup service started")

	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

	if err := s.PerformBackup(); err != nil {
		s.logger.Error().Err(err).Msg("Initial backup failed")
	}

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.PerformBackup(); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled backup failed")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup copies the database file into the backup directory
// under a timestamped name.
func (s *BackupService) PerformBackup() error {
	if err := os.MkdirAll(s.cfg.StoragePath, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(s.cfg.StoragePath, fmt.Sprintf("audit_%s.db", timestamp))

	source, err := os.Open(s.dbPath)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(backupPath)
	if err != nil {
		return err
	}
	defer destination.Close()

	if _, err = io.Copy(destination, source); err != nil {
		return err
	}

	s.logger.Info().Str("path", backupPath).Msg("Audit backup written")
	return nil
}

// CleanupOldBackups deletes backup files older than the retention
// window. Retention of zero keeps everything.
func (s *BackupService) CleanupOldBackups() {
	if s.cfg.RetentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(s.cfg.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("Deleting old backup")
			_ = os.Remove(filepath.Join(s.cfg.StoragePath, file.Name()))
		}
	}
}
