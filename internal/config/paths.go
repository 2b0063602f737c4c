package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths resolves every directory the aggregator reads or writes. All
// locations hang off a single base directory so a run can be pointed at a
// scratch tree in tests.
type Paths struct {
	BaseDir      string
	DownloadsDir string
	DatasetsDir  string
	SnapshotsDir string
	LogsDir      string
}

// NewPaths builds the directory layout rooted at baseDir.
func NewPaths(baseDir string) *Paths {
	return &Paths{
		BaseDir:      baseDir,
		DownloadsDir: filepath.Join(baseDir, "downloads"),
		DatasetsDir:  filepath.Join(baseDir, "datasets"),
		SnapshotsDir: filepath.Join(baseDir, "snapshots"),
		LogsDir:      filepath.Join(baseDir, "logs"),
	}
}

// EnsureDirectories creates every directory in the layout.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{p.BaseDir, p.DownloadsDir, p.DatasetsDir, p.SnapshotsDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DownloadPath returns the path a fetched publication is stored under.
func (p *Paths) DownloadPath(name string) string {
	return filepath.Join(p.DownloadsDir, name)
}

// DatasetPath returns the path of one per-source or merged envelope.
func (p *Paths) DatasetPath(source string) string {
	return filepath.Join(p.DatasetsDir, source+".json")
}

// SnapshotPath returns the path of one archival page snapshot.
func (p *Paths) SnapshotPath(name string) string {
	return filepath.Join(p.SnapshotsDir, name)
}

// LogPath returns the path of one log file.
func (p *Paths) LogPath(name string) string {
	return filepath.Join(p.LogsDir, name)
}
