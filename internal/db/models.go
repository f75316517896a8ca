package db

import (
	"time"
)

// WatchedFolder is a folder the library rescans on demand or on schedule
type WatchedFolder struct {
	ID            string     `json:"id"`
	Path          string     `json:"path"`
	Name          string     `json:"name"`
	AddedAt       time.Time  `json:"addedAt"`
	LastScannedAt *time.Time `json:"lastScannedAt,omitempty"`
	SongCount     int        `json:"songCount"`
}

// ScanRunStatus represents the status of a scan run
type ScanRunStatus string

const (
	ScanRunStatusRunning   ScanRunStatus = "running"
	ScanRunStatusCompleted ScanRunStatus = "completed"
	ScanRunStatusFailed    ScanRunStatus = "failed"
	ScanRunStatusCancelled ScanRunStatus = "cancelled"
)

// ScanRun represents a single execution of a scan
type ScanRun struct {
	ID           string        `json:"id"`
	FolderID     *string       `json:"folderId,omitempty"`
	Root         string        `json:"root"`
	Status       ScanRunStatus `json:"status"`
	Total        int           `json:"total"`
	Processed    int           `json:"processed"`
	StartedAt    time.Time     `json:"startedAt"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
	ErrorMessage *string       `json:"errorMessage,omitempty"`
}
