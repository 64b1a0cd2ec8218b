// Package alttext manages the alt-text sidecar: one entry per distinct image,
// keyed by the image's content hash, with a review status deciding what the
// writer may inject.
package alttext

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SidecarExt is appended to the document's base name.
const SidecarExt = ".alttext.yaml"

type Status string

const (
	StatusNeedsReview Status = "needs_review"
	StatusApproved    Status = "approved"
	StatusDecorative  Status = "decorative"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNeedsReview, StatusApproved, StatusDecorative:
		return true
	}
	return false
}

func (s *Status) UnmarshalYAML(n *yaml.Node) error {
	var v string
	if err := n.Decode(&v); err != nil {
		return err
	}
	if v == "" {
		*s = StatusNeedsReview
		return nil
	}
	st := Status(v)
	if !st.Valid() {
		return fmt.Errorf("line %d: unknown status %q", n.Line, v)
	}
	*s = st
	return nil
}

// Entry describes one distinct image. Page is one-based.
type Entry struct {
	ID      string `yaml:"id"`
	Page    int    `yaml:"page"`
	Hash    string `yaml:"hash"`
	Caption string `yaml:"caption"`
	AIDraft string `yaml:"ai_draft"`
	AltText string `yaml:"alt_text"`
	Status  Status `yaml:"status"`
}

// Actionable reports whether the writer acts on the entry.
func (e Entry) Actionable() bool {
	return e.Status == StatusApproved || e.Status == StatusDecorative
}

// Sidecar is the on-disk alt-text store for one document.
type Sidecar struct {
	Document  string    `yaml:"document"`
	Generated time.Time `yaml:"generated"`
	Images    []Entry   `yaml:"images"`
}

// New returns an empty sidecar for the named document.
func New(document string, now time.Time) *Sidecar {
	return &Sidecar{Document: document, Generated: now.UTC().Truncate(time.Second)}
}

// PathFor derives the sidecar path from a document path:
// "dir/report.json" becomes "dir/report.alttext.yaml".
func PathFor(docPath string) string {
	ext := filepath.Ext(docPath)
	return strings.TrimSuffix(docPath, ext) + SidecarExt
}

// SidecarIOError reports a failure to read or write a sidecar file.
type SidecarIOError struct {
	Path string
	Op   string
	Err  error
}

func (e *SidecarIOError) Error() string {
	return fmt.Sprintf("sidecar %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SidecarIOError) Unwrap() error { return e.Err }

// Load reads and validates a sidecar file.
func Load(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SidecarIOError{Path: path, Op: "read", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &SidecarIOError{Path: path, Op: "read", Err: errors.New("file is empty")}
	}
	var sc Sidecar
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, &SidecarIOError{Path: path, Op: "parse", Err: err}
	}
	if err := sc.Validate(); err != nil {
		return nil, &SidecarIOError{Path: path, Op: "validate", Err: err}
	}
	return &sc, nil
}

// LoadOrNew loads the sidecar at path, or returns a new empty one when the
// file does not exist.
func LoadOrNew(path, document string, now time.Time) (*Sidecar, bool, error) {
	sc, err := Load(path)
	if err == nil {
		return sc, true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return New(document, now), false, nil
	}
	return nil, false, err
}

// Validate checks id uniqueness and the status invariants.
func (s *Sidecar) Validate() error {
	seen := make(map[string]bool, len(s.Images))
	for i, e := range s.Images {
		if e.ID == "" || e.Hash == "" {
			return fmt.Errorf("entry %d: id and hash are required", i)
		}
		if seen[e.ID] {
			return fmt.Errorf("entry %d: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true
		if !e.Status.Valid() {
			return fmt.Errorf("entry %s: unknown status %q", e.ID, e.Status)
		}
		if e.Status == StatusDecorative && e.AltText != "" {
			return fmt.Errorf("entry %s: decorative entries cannot carry alt_text", e.ID)
		}
	}
	return nil
}

// Save writes the sidecar atomically: the content goes to a temporary file in
// the same directory which is synced and renamed over path. A failure leaves
// any previous file untouched.
func Save(path string, s *Sidecar) (err error) {
	if err := s.Validate(); err != nil {
		return &SidecarIOError{Path: path, Op: "validate", Err: err}
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return &SidecarIOError{Path: path, Op: "encode", Err: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &SidecarIOError{Path: path, Op: "write", Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			err = &SidecarIOError{Path: path, Op: "write", Err: err}
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Entry returns the entry with the given id.
func (s *Sidecar) Entry(id string) (*Entry, bool) {
	for i := range s.Images {
		if s.Images[i].ID == id {
			return &s.Images[i], true
		}
	}
	return nil, false
}

// ByHash returns the entry with the given content hash.
func (s *Sidecar) ByHash(hash string) (*Entry, bool) {
	for i := range s.Images {
		if s.Images[i].Hash == hash {
			return &s.Images[i], true
		}
	}
	return nil, false
}

// Stats counts entries per status.
func (s *Sidecar) Stats() map[Status]int {
	out := map[Status]int{StatusNeedsReview: 0, StatusApproved: 0, StatusDecorative: 0}
	for _, e := range s.Images {
		out[e.Status]++
	}
	return out
}

// NeedsReview returns the entries still awaiting review.
func (s *Sidecar) NeedsReview() []Entry {
	var out []Entry
	for _, e := range s.Images {
		if e.Status == StatusNeedsReview {
			out = append(out, e)
		}
	}
	return out
}
