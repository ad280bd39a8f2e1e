package artifact

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"screencatch/screenshot"
)

const filenamePattern = "capture_*.png"

// Filename derives the image file name from local wall-clock time:
// capture_YYYY-MM-DD_HHMMSS.png. Second granularity; two sessions completing
// within the same second collide, an accepted limitation.
func Filename(t time.Time) string {
	return t.Format("capture_2006-01-02_150405.png")
}

// MetadataPath returns the sidecar path for an image path (same stem, .json).
func MetadataPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".json"
}

// Metadata is the sidecar document written next to every capture.
type Metadata struct {
	Description        string              `json:"description"`
	Timestamp          string              `json:"timestamp"`
	Captures           int                 `json:"captures"`
	Merged             bool                `json:"merged"`
	Filepath           string              `json:"filepath"`
	Regions            []screenshot.Region `json:"regions"`
	RecaptureIteration int                 `json:"recapture_iteration"`
	MergeMethod        string              `json:"merge_method,omitempty"`
}

// Info carries what Save needs beyond the pixels. A zero Timestamp means
// time.Now.
type Info struct {
	Description        string
	Regions            []screenshot.Region
	Merged             bool
	MergeMethod        string
	RecaptureIteration int
	Timestamp          time.Time
}

// Artifact is a saved image + metadata sidecar pair.
type Artifact struct {
	Filepath     string
	MetadataPath string
	Metadata     Metadata
}

// Save writes the image file first, then the metadata sidecar.
func Save(dir string, img image.Image, info Info) (*Artifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	ts := info.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	path := filepath.Join(dir, Filename(ts))

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	meta := Metadata{
		Description:        info.Description,
		Timestamp:          ts.UTC().Format(time.RFC3339),
		Captures:           len(info.Regions),
		Merged:             info.Merged,
		Filepath:           abs,
		Regions:            info.Regions,
		RecaptureIteration: info.RecaptureIteration,
		MergeMethod:        info.MergeMethod,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	metaPath := MetadataPath(path)
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing metadata %s: %w", metaPath, err)
	}

	return &Artifact{Filepath: path, MetadataPath: metaPath, Metadata: meta}, nil
}

// Remove deletes the artifact pair best-effort. Used when the user asks to
// recapture; failures are logged, never fatal.
func Remove(a *Artifact) {
	if a == nil {
		return
	}
	for _, path := range []string{a.Filepath, a.MetadataPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("Artifact: could not delete %s: %v", path, err)
		}
	}
}

// Entry is one listed capture. Sidecar fields are filled when the sidecar is
// readable and left zero otherwise.
type Entry struct {
	Filepath    string    `json:"filepath"`
	ModTime     time.Time `json:"modified"`
	Size        int64     `json:"size_bytes"`
	Description string    `json:"description,omitempty"`
	Captures    int       `json:"captures,omitempty"`
	Merged      bool      `json:"merged,omitempty"`
}

// Listing is the result of a List call. Total is the true match count,
// independent of truncation.
type Listing struct {
	Captures []Entry `json:"captures"`
	Total    int     `json:"total"`
}

// List enumerates saved captures in dir, newest first by file modification
// time, returning at most limit entries (limit <= 0 means no cap). The sort
// key is deliberately the filesystem mtime, not the sidecar timestamp: if the
// two disagree, mtime wins. Listing is advisory, so a directory read failure
// degrades to an empty listing instead of propagating.
func List(dir string, limit int) Listing {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("Listing: cannot read %s: %v", dir, err)
		return Listing{Captures: []Entry{}}
	}

	var matches []Entry
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(filenamePattern, de.Name()); !ok {
			continue
		}
		fi, err := de.Info()
		if err != nil {
			continue
		}
		matches = append(matches, Entry{
			Filepath: filepath.Join(dir, de.Name()),
			ModTime:  fi.ModTime(),
			Size:     fi.Size(),
		})
	}

	// Stable sort keeps enumeration order for equal mtimes.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ModTime.After(matches[j].ModTime)
	})
	total := len(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	var g errgroup.Group
	g.SetLimit(8)
	for i := range matches {
		g.Go(func() error {
			enrich(&matches[i])
			return nil
		})
	}
	_ = g.Wait()

	if matches == nil {
		matches = []Entry{}
	}
	return Listing{Captures: matches, Total: total}
}

// enrich copies display fields from the sidecar when one is readable.
func enrich(e *Entry) {
	data, err := os.ReadFile(MetadataPath(e.Filepath))
	if err != nil {
		return
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return
	}
	e.Description = meta.Description
	e.Captures = meta.Captures
	e.Merged = meta.Merged
}
