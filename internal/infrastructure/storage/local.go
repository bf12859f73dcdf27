package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/offcuttrack/offcut-service/internal/pkg/config"
)

// LocalStorage keeps uploaded report files on the local filesystem,
// one directory per report id
type LocalStorage struct {
	basePath string
	maxSize  int64
	logger   *slog.Logger
}

// ReportMetadata describes one stored report file
type ReportMetadata struct {
	ID           string
	OriginalName string
	StoredPath   string
	Size         int64
	Hash         string
	CreatedAt    time.Time
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(cfg *config.StorageConfig, logger *slog.Logger) (*LocalStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		basePath: cfg.BasePath,
		maxSize:  cfg.MaxFileSize * 1024 * 1024,
		logger:   logger,
	}, nil
}

// SaveReport stores one uploaded report and returns its metadata. The
// sha256 hash is computed while copying.
func (s *LocalStorage) SaveReport(ctx context.Context, reportID string, filename string, reader io.Reader) (*ReportMetadata, error) {
	reportDir := filepath.Join(s.basePath, "reports", reportID)
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	safeName := filepath.Base(filename)
	destPath := filepath.Join(reportDir, safeName)

	destFile, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	hash := sha256.New()
	src := io.Reader(reader)
	if s.maxSize > 0 {
		src = io.LimitReader(reader, s.maxSize+1)
	}

	size, err := io.Copy(io.MultiWriter(destFile, hash), src)
	if err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}
	if s.maxSize > 0 && size > s.maxSize {
		os.Remove(destPath)
		return nil, fmt.Errorf("file exceeds maximum size of %d bytes", s.maxSize)
	}

	metadata := &ReportMetadata{
		ID:           reportID,
		OriginalName: safeName,
		StoredPath:   destPath,
		Size:         size,
		Hash:         hex.EncodeToString(hash.Sum(nil)),
		CreatedAt:    time.Now(),
	}

	s.logger.Info("report stored",
		slog.String("report_id", reportID),
		slog.String("filename", safeName),
		slog.Int64("size", size),
		slog.String("hash", metadata.Hash))

	return metadata, nil
}

// ReadReport returns the text content of a stored report
func (s *LocalStorage) ReadReport(ctx context.Context, reportID string, filename string) (string, error) {
	path := filepath.Join(s.basePath, "reports", reportID, filepath.Base(filename))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("report not found: %s", reportID)
		}
		return "", fmt.Errorf("failed to read report: %w", err)
	}
	return string(data), nil
}

// DeleteReport removes all files of one stored report
func (s *LocalStorage) DeleteReport(ctx context.Context, reportID string) error {
	reportDir := filepath.Join(s.basePath, "reports", reportID)
	if err := os.RemoveAll(reportDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete report directory: %w", err)
	}

	s.logger.Info("report deleted", slog.String("report_id", reportID))
	return nil
}

// CleanupOldReports removes report directories older than the given age
func (s *LocalStorage) CleanupOldReports(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	reportsDir := filepath.Join(s.basePath, "reports")

	entries, err := os.ReadDir(reportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read reports directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(reportsDir, entry.Name())); err == nil {
				removed++
			}
		}
	}

	s.logger.Info("cleanup completed",
		slog.Duration("older_than", olderThan),
		slog.Int("removed", removed))

	return nil
}
