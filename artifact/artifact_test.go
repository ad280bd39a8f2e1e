package artifact

import (
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"screencatch/screenshot"
)

func TestFilename(t *testing.T) {
	ts := time.Date(2026, 8, 31, 14, 5, 9, 0, time.Local)
	if got, want := Filename(ts), "capture_2026-08-31_140509.png"; got != want {
		t.Errorf("Filename = %q, want %q", got, want)
	}
}

func TestMetadataPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/out/capture_2026-08-31_140509.png", "/out/capture_2026-08-31_140509.json"},
		{"capture.png", "capture.json"},
		{"noext", "noext.json"},
	}
	for _, tt := range tests {
		if got := MetadataPath(tt.in); got != tt.want {
			t.Errorf("MetadataPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func TestSaveWritesPairAndSidecarSchema(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)
	regions := []screenshot.Region{
		{X: 0, Y: 0, Width: 32, Height: 16},
		{X: 100, Y: 50, Width: 32, Height: 16},
	}

	art, err := Save(dir, testImage(74, 16), Info{
		Description:        "login form",
		Regions:            regions,
		Merged:             true,
		MergeMethod:        "horizontal",
		RecaptureIteration: 1,
		Timestamp:          ts,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	f, err := os.Open(art.Filepath)
	if err != nil {
		t.Fatalf("image not written: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("image not decodable PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 74 || b.Dy() != 16 {
		t.Errorf("decoded image = %dx%d, want 74x16", b.Dx(), b.Dy())
	}

	data, err := os.ReadFile(art.MetadataPath)
	if err != nil {
		t.Fatalf("sidecar not written: %v", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("sidecar not valid JSON: %v", err)
	}
	want := Metadata{
		Description:        "login form",
		Timestamp:          "2026-08-31T09:30:00Z",
		Captures:           2,
		Merged:             true,
		Filepath:           meta.Filepath,
		Regions:            regions,
		RecaptureIteration: 1,
		MergeMethod:        "horizontal",
	}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Errorf("sidecar mismatch (-want +got):\n%s", diff)
	}
	if !filepath.IsAbs(meta.Filepath) {
		t.Errorf("sidecar filepath %q is not absolute", meta.Filepath)
	}
}

func TestSaveOmitsEmptyMergeMethod(t *testing.T) {
	art, err := Save(t.TempDir(), testImage(4, 4), Info{
		Regions:   []screenshot.Region{{Width: 4, Height: 4}},
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(art.MetadataPath)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["merge_method"]; ok {
		t.Error("sidecar carries merge_method for an empty value")
	}
}

func TestSaveCreatesOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "captures")
	if _, err := Save(dir, testImage(2, 2), Info{}); err != nil {
		t.Fatalf("Save into missing directory: %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	art, err := Save(t.TempDir(), testImage(2, 2), Info{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}

	Remove(art)
	for _, path := range []string{art.Filepath, art.MetadataPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s still exists after Remove", path)
		}
	}

	// A second pass and a nil artifact are no-ops.
	Remove(art)
	Remove(nil)
}

func writeCapture(t *testing.T, dir, name string, mtime time.Time, meta *Metadata) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	if meta != nil {
		data, err := json.Marshal(meta)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(MetadataPath(path), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestListNewestFirstWithTrueTotal(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	writeCapture(t, dir, "capture_2026-08-30_120000.png", base, nil)
	writeCapture(t, dir, "capture_2026-08-30_120001.png", base.Add(time.Minute), nil)
	writeCapture(t, dir, "capture_2026-08-30_120002.png", base.Add(2*time.Minute), nil)

	listing := List(dir, 2)
	if listing.Total != 3 {
		t.Errorf("Total = %d, want 3", listing.Total)
	}
	if len(listing.Captures) != 2 {
		t.Fatalf("len(Captures) = %d, want 2", len(listing.Captures))
	}
	if got := filepath.Base(listing.Captures[0].Filepath); got != "capture_2026-08-30_120002.png" {
		t.Errorf("first entry = %s, want the newest", got)
	}
	if got := filepath.Base(listing.Captures[1].Filepath); got != "capture_2026-08-30_120001.png" {
		t.Errorf("second entry = %s, want the middle", got)
	}
}

func TestListEnrichesFromSidecar(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeCapture(t, dir, "capture_2026-08-30_120000.png", now, &Metadata{
		Description: "error dialog",
		Captures:    3,
		Merged:      true,
	})
	writeCapture(t, dir, "capture_2026-08-30_120001.png", now.Add(-time.Hour), nil)

	listing := List(dir, 0)
	if len(listing.Captures) != 2 {
		t.Fatalf("len(Captures) = %d, want 2", len(listing.Captures))
	}
	enriched := listing.Captures[0]
	if enriched.Description != "error dialog" || enriched.Captures != 3 || !enriched.Merged {
		t.Errorf("enriched entry = %+v, want sidecar fields filled", enriched)
	}
	bare := listing.Captures[1]
	if bare.Description != "" || bare.Captures != 0 || bare.Merged {
		t.Errorf("sidecar-less entry = %+v, want zero display fields", bare)
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	writeCapture(t, dir, "capture_2026-08-30_120000.png", time.Now(), nil)
	for _, name := range []string{"notes.txt", "capture_2026-08-30_120000.json", "shot.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "capture_nested.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	listing := List(dir, 0)
	if listing.Total != 1 || len(listing.Captures) != 1 {
		t.Errorf("listing = total %d, %d entries; want exactly the one capture",
			listing.Total, len(listing.Captures))
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	listing := List(filepath.Join(t.TempDir(), "does-not-exist"), 10)
	if listing.Total != 0 {
		t.Errorf("Total = %d, want 0", listing.Total)
	}
	if listing.Captures == nil || len(listing.Captures) != 0 {
		t.Errorf("Captures = %#v, want empty non-nil slice", listing.Captures)
	}
}
