package store

import (
	"time"

	"qpdiff/internal/profile"
)

// Snapshot is a named, saved profile document.
type Snapshot struct {
	Name        string           `json:"name"`        // Snapshot identifier
	Document    profile.Document `json:"document"`    // Profile as written, parent unresolved
	Fingerprint string           `json:"fingerprint"` // profile.Fingerprint of the resolved profile
	Timestamp   time.Time        `json:"timestamp"`   // When the snapshot was saved
}

// SnapshotSummary is a lightweight view for listing snapshots.
type SnapshotSummary struct {
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	Language    string    `json:"language"`
	Rules       int       `json:"rules"`
	Fingerprint string    `json:"fingerprint"`
	Timestamp   time.Time `json:"timestamp"`
}
