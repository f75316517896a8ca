package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// WatchedFolder queries

// CreateWatchedFolder stores a new watched folder. A path that is already
// watched yields ErrDuplicate.
func (db *DB) CreateWatchedFolder(f *WatchedFolder) (*WatchedFolder, error) {
	_, err := db.Exec(`
		INSERT INTO watched_folders (id, path, name, added_at, song_count)
		VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.Path, f.Name, f.AddedAt, f.SongCount,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("watched folder %s: %w", f.Path, ErrDuplicate)
		}
		return nil, err
	}
	return db.GetWatchedFolder(f.ID)
}

// GetWatchedFolder retrieves a watched folder by ID
func (db *DB) GetWatchedFolder(id string) (*WatchedFolder, error) {
	row := db.QueryRow(`
		SELECT id, path, name, added_at, last_scanned_at, song_count
		FROM watched_folders WHERE id = ?`, id)
	return scanWatchedFolder(row)
}

// GetWatchedFolderByPath retrieves a watched folder by its path
func (db *DB) GetWatchedFolderByPath(path string) (*WatchedFolder, error) {
	row := db.QueryRow(`
		SELECT id, path, name, added_at, last_scanned_at, song_count
		FROM watched_folders WHERE path = ?`, path)
	return scanWatchedFolder(row)
}

// ListWatchedFolders returns all watched folders, oldest first
func (db *DB) ListWatchedFolders() ([]*WatchedFolder, error) {
	rows, err := db.Query(`
		SELECT id, path, name, added_at, last_scanned_at, song_count
		FROM watched_folders ORDER BY added_at ASC, path ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*WatchedFolder
	for rows.Next() {
		f, err := scanWatchedFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// UpdateFolderScan records the outcome of a folder rescan
func (db *DB) UpdateFolderScan(id string, scannedAt time.Time, songCount int) error {
	_, err := db.Exec(`
		UPDATE watched_folders SET last_scanned_at = ?, song_count = ?
		WHERE id = ?`,
		scannedAt, songCount, id,
	)
	return err
}

// DeleteWatchedFolder removes a watched folder. Its scan history is kept but
// detached.
func (db *DB) DeleteWatchedFolder(id string) error {
	result, err := db.Exec("DELETE FROM watched_folders WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWatchedFolder(row rowScanner) (*WatchedFolder, error) {
	var f WatchedFolder
	var lastScanned sql.NullTime

	err := row.Scan(&f.ID, &f.Path, &f.Name, &f.AddedAt, &lastScanned, &f.SongCount)
	if err != nil {
		return nil, err
	}

	if lastScanned.Valid {
		f.LastScannedAt = &lastScanned.Time
	}
	return &f, nil
}

// ScanRun queries

// CreateScanRun creates a new running scan run
func (db *DB) CreateScanRun(id string, folderID *string, root string) (*ScanRun, error) {
	_, err := db.Exec(`
		INSERT INTO scan_runs (id, folder_id, root, status, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, folderID, root, ScanRunStatusRunning, time.Now(),
	)
	if err != nil {
		return nil, err
	}
	return db.GetScanRun(id)
}

// GetScanRun retrieves a scan run by ID
func (db *DB) GetScanRun(id string) (*ScanRun, error) {
	row := db.QueryRow(`
		SELECT id, folder_id, root, status, total, processed, started_at, completed_at, error_message
		FROM scan_runs WHERE id = ?`, id)
	return scanScanRun(row)
}

// ListScanRuns returns scan runs with pagination, newest first
func (db *DB) ListScanRuns(limit, offset int) ([]*ScanRun, error) {
	rows, err := db.Query(`
		SELECT id, folder_id, root, status, total, processed, started_at, completed_at, error_message
		FROM scan_runs ORDER BY started_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*ScanRun
	for rows.Next() {
		r, err := scanScanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetLastRunForFolder returns the most recent scan run for a watched folder
func (db *DB) GetLastRunForFolder(folderID string) (*ScanRun, error) {
	row := db.QueryRow(`
		SELECT id, folder_id, root, status, total, processed, started_at, completed_at, error_message
		FROM scan_runs WHERE folder_id = ? ORDER BY started_at DESC LIMIT 1`, folderID)
	return scanScanRun(row)
}

// UpdateScanRunProgress updates scan progress counters
func (db *DB) UpdateScanRunProgress(id string, total, processed int) error {
	_, err := db.Exec(`
		UPDATE scan_runs SET total = ?, processed = ?
		WHERE id = ?`,
		total, processed, id,
	)
	return err
}

// CompleteScanRun marks a scan run as finished with the given status
func (db *DB) CompleteScanRun(id string, status ScanRunStatus, errorMsg *string) error {
	_, err := db.Exec(`
		UPDATE scan_runs SET status = ?, completed_at = ?, error_message = ?
		WHERE id = ?`,
		status, time.Now(), errorMsg, id,
	)
	return err
}

func scanScanRun(row rowScanner) (*ScanRun, error) {
	var r ScanRun
	var folderID sql.NullString
	var completedAt sql.NullTime
	var errorMsg sql.NullString

	err := row.Scan(&r.ID, &folderID, &r.Root, &r.Status, &r.Total, &r.Processed,
		&r.StartedAt, &completedAt, &errorMsg)
	if err != nil {
		return nil, err
	}

	if folderID.Valid {
		r.FolderID = &folderID.String
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	if errorMsg.Valid {
		r.ErrorMessage = &errorMsg.String
	}
	return &r, nil
}

// Settings

// GetSetting returns a setting value, or "" if it is not set
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSetting stores a setting value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Maintenance

// CleanupOldData removes finished scan runs older than the retention period
func (db *DB) CleanupOldData(retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	_, err := db.Exec("DELETE FROM scan_runs WHERE completed_at < ? AND status != 'running'", cutoff)
	return err
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
