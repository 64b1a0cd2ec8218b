package alttext

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleSidecar() *Sidecar {
	sc := New("report.json", testNow)
	sc.Images = []Entry{
		{ID: "img_a1b2c3", Page: 1, Hash: "a1b2c3d4", Caption: "Figure 1", AIDraft: "A chart", Status: StatusNeedsReview},
		{ID: "img_ffee00", Page: 2, Hash: "ffee0011", AltText: "Company logo", Status: StatusApproved},
		{ID: "img_000111", Page: 2, Hash: "00011122", Status: StatusDecorative},
	}
	return sc
}

func TestPathFor(t *testing.T) {
	if got := PathFor(filepath.Join("docs", "report.json")); got != filepath.Join("docs", "report.alttext.yaml") {
		t.Fatalf("PathFor() = %s", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.alttext.yaml")
	want := sampleSidecar()
	if err := Save(path, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	raw, _ := os.ReadFile(path)
	for _, key := range []string{"document:", "generated:", "ai_draft:", "alt_text:", "status: needs_review"} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("sidecar file missing %q", key)
		}
	}
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("temporary files left behind: %v", leftovers)
	}
}

func TestSaveInvalidLeavesPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.alttext.yaml")
	if err := Save(path, sampleSidecar()); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(path)

	bad := sampleSidecar()
	bad.Images[1].ID = bad.Images[0].ID
	err := Save(path, bad)
	var ioErr *SidecarIOError
	if !errors.As(err, &ioErr) || ioErr.Op != "validate" {
		t.Fatalf("expected validate error, got %v", err)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Fatalf("failed save modified the existing file")
	}
}

func TestSaveMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "x.alttext.yaml")
	var ioErr *SidecarIOError
	if err := Save(path, sampleSidecar()); !errors.As(err, &ioErr) || ioErr.Op != "write" {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}

	cases := map[string]string{
		"empty.yaml":      "  \n",
		"status.yaml":     "document: d\nimages:\n  - id: img_1\n    hash: h\n    status: maybe\n",
		"decorative.yaml": "document: d\nimages:\n  - id: img_1\n    hash: h\n    alt_text: logo\n    status: decorative\n",
		"nohash.yaml":     "document: d\nimages:\n  - id: img_1\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		os.WriteFile(path, []byte(body), 0o644)
		var ioErr *SidecarIOError
		if _, err := Load(path); !errors.As(err, &ioErr) {
			t.Errorf("%s: expected SidecarIOError, got %v", name, err)
		}
	}
}

func TestEmptyStatusDefaultsToNeedsReview(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.alttext.yaml")
	os.WriteFile(path, []byte("document: d\nimages:\n  - id: img_1\n    hash: h\n    status: \"\"\n"), 0o644)
	sc, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Images[0].Status != StatusNeedsReview {
		t.Fatalf("status = %q", sc.Images[0].Status)
	}
}

func TestLoadOrNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.alttext.yaml")
	sc, existed, err := LoadOrNew(path, "d.json", testNow)
	if err != nil || existed {
		t.Fatalf("LoadOrNew() = %v, %v", existed, err)
	}
	if sc.Document != "d.json" || len(sc.Images) != 0 || !sc.Generated.Equal(testNow) {
		t.Fatalf("unexpected new sidecar %+v", sc)
	}

	os.WriteFile(path, []byte("::: not yaml"), 0o644)
	if _, _, err := LoadOrNew(path, "d.json", testNow); err == nil {
		t.Fatalf("corrupt sidecar must not be replaced silently")
	}
}

func TestStats(t *testing.T) {
	got := sampleSidecar().Stats()
	want := map[Status]int{StatusNeedsReview: 1, StatusApproved: 1, StatusDecorative: 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Stats() = %v", got)
	}
	if n := len(sampleSidecar().NeedsReview()); n != 1 {
		t.Fatalf("NeedsReview() = %d", n)
	}
}
