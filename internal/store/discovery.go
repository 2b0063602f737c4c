package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo describes one discovered file.
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds previously downloaded publications and produced datasets
// on disk, so a run can skip fetching or re-extract from an earlier
// download.
type Discovery struct {
	basePath string
}

// NewDiscovery creates a discovery rooted at basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindWorkbookFiles finds spreadsheet publications in a directory, oldest
// first.
func (d *Discovery) FindWorkbookFiles(dir string) ([]FileInfo, error) {
	files, err := d.list(dir, func(name string) bool {
		lower := strings.ToLower(name)
		return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls")
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// FindDatasetFiles finds produced envelope files keyed by source name, the
// file stem.
func (d *Discovery) FindDatasetFiles(dir string) (map[string]FileInfo, error) {
	files, err := d.list(dir, func(name string) bool {
		return strings.HasSuffix(strings.ToLower(name), ".json")
	})
	if err != nil {
		return nil, err
	}

	datasets := make(map[string]FileInfo, len(files))
	for _, file := range files {
		source := strings.TrimSuffix(file.Name, filepath.Ext(file.Name))
		datasets[source] = file
	}
	return datasets, nil
}

// FindFilesByPattern finds files matching a glob pattern.
func (d *Discovery) FindFilesByPattern(dir, pattern string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)
	matches, err := filepath.Glob(filepath.Join(fullPath, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var files []FileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileInfo{
			Path:    match,
			Name:    filepath.Base(match),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}

// LatestFile returns the most recently modified file from a list.
func LatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}
	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}

func (d *Discovery) list(dir string, keep func(string) bool) ([]FileInfo, error) {
	fullPath := d.resolve(dir)
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !keep(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
