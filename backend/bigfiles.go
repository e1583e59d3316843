package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ftahirops/healtop/model"
)

// BigFileScanner finds large files under a set of roots. Results are cached
// between scans; Trigger forces the next call to rescan.
type BigFileScanner struct {
	Roots    []string
	MaxFiles int    // default 15
	MinSize  uint64 // default 10MB

	mu        sync.Mutex
	cache     []bigFile
	lastScan  time.Time
	triggered bool
}

type bigFile struct {
	path string
	size uint64
}

const bigFileScanInterval = 60 * time.Second

// DefaultScanRoots are scanned when no roots are configured.
var DefaultScanRoots = []string{"/home", "/var/log", "/var/cache", "/tmp"}

// Trigger forces a rescan on the next Scan call.
func (b *BigFileScanner) Trigger() {
	b.mu.Lock()
	b.triggered = true
	b.mu.Unlock()
}

// Scan returns the largest files, biggest first. Files whose path mentions
// log or tmp are flagged safe to delete.
func (b *BigFileScanner) Scan() []model.FileEntry {
	b.mu.Lock()
	needScan := b.triggered || b.lastScan.IsZero() || time.Since(b.lastScan) >= bigFileScanInterval
	b.triggered = false
	cached := b.cache
	b.mu.Unlock()

	if !needScan {
		return toEntries(cached)
	}

	maxFiles := b.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 15
	}
	minSize := b.MinSize
	if minSize == 0 {
		minSize = 10 * 1024 * 1024
	}
	roots := b.Roots
	if len(roots) == 0 {
		roots = DefaultScanRoots
	}

	var files []bigFile
	budget := 3000 // max stat() calls per scan
	for _, dir := range roots {
		if budget <= 0 {
			break
		}
		budget = walkDir(dir, minSize, &files, budget, 0)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].size > files[j].size
	})
	if len(files) > maxFiles {
		files = files[:maxFiles]
	}

	b.mu.Lock()
	b.cache = files
	b.lastScan = time.Now()
	b.mu.Unlock()

	return toEntries(files)
}

func toEntries(files []bigFile) []model.FileEntry {
	out := make([]model.FileEntry, 0, len(files))
	for _, f := range files {
		lower := strings.ToLower(f.path)
		out = append(out, model.FileEntry{
			Path: f.path,
			Size: fmtBytes(f.size),
			Safe: strings.Contains(lower, "log") || strings.Contains(lower, "tmp"),
		})
	}
	return out
}

// walkDir walks a directory tree collecting large files, with a depth limit and budget.
func walkDir(dir string, minSize uint64, files *[]bigFile, budget int, depth int) int {
	if budget <= 0 || depth > 5 {
		return budget
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return budget
	}

	for _, e := range entries {
		if budget <= 0 {
			break
		}
		name := e.Name()
		if name == "" || name[0] == '.' {
			continue
		}
		fullPath := filepath.Join(dir, name)

		if e.IsDir() {
			budget = walkDir(fullPath, minSize, files, budget, depth+1)
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}

		budget--
		info, err := e.Info()
		if err != nil {
			continue
		}
		if size := uint64(info.Size()); size >= minSize {
			*files = append(*files, bigFile{path: fullPath, size: size})
		}
	}
	return budget
}

func fmtBytes(b uint64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1fG", float64(b)/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1fM", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1fK", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%dB", b)
	}
}
