// Package build derives the deterministic identity of one frontend build
// and persists it as a small local manifest between the configure and
// deploy steps of a pipeline.
package build

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ManifestFileName is the well-known local path the configure step writes
// and the deploy step reads, relative to the working directory.
const ManifestFileName = "gurgler.json"

// ErrNotConfigured is returned when the local build manifest is missing.
// It indicates a usage-order problem (deploy before configure), not an
// I/O failure.
var ErrNotConfigured = errors.New("build not configured: run configure before deploy")

// Manifest describes one configured build. It is immutable once written;
// a new commit/branch pair produces a new manifest with a new hash.
type Manifest struct {
	CommitID      string `json:"commitId"`
	BranchName    string `json:"branchName"`
	RawIdentity   string `json:"rawIdentity"`
	BuildHash     string `json:"buildHash"`
	StoragePrefix string `json:"storagePrefix"`
}

// New derives a build manifest from a commit/branch pair. The build hash
// is the hex SHA-256 of "commitId|branchName", which makes the storage
// prefix stable for repeated builds of the same revision.
func New(commitID, branchName, basePath string) Manifest {
	raw := commitID + "|" + branchName
	sum := sha256.Sum256([]byte(raw))
	hash := hex.EncodeToString(sum[:])

	return Manifest{
		CommitID:      commitID,
		BranchName:    branchName,
		RawIdentity:   raw,
		BuildHash:     hash,
		StoragePrefix: basePath + "/" + hash,
	}
}

// ShortHash returns the 7-character display form of the build hash.
func (m Manifest) ShortHash() string {
	return Short(m.BuildHash)
}

// Short truncates a hex identifier to its 7-character display form.
func Short(id string) string {
	if len(id) <= 7 {
		return id
	}
	return id[:7]
}

// Save writes the manifest to the given path as JSON.
func (m Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode build manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write build manifest %s: %w", path, err)
	}
	return nil
}

// Load reads a previously saved manifest. A missing file is reported as
// ErrNotConfigured so callers can give run-order guidance instead of a
// raw I/O error.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, fmt.Errorf("%s: %w", path, ErrNotConfigured)
		}
		return Manifest{}, fmt.Errorf("read build manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse build manifest %s: %w", path, err)
	}
	return m, nil
}
