package alttext

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wudi/accesspdf/analyzer"
)

// ReconcileReport lists what reconciliation did.
type ReconcileReport struct {
	Kept  []string
	Added []string
	// Stale entries have no matching image in the current document. They
	// are retained.
	Stale []string
}

// Reconcile merges the sidecar with the images of the current analysis.
// Entries matching an image by hash are kept verbatim, new images are
// appended as needs_review with empty text, and entries without an image are
// retained and reported stale. The input sidecar is not modified.
func Reconcile(existing *Sidecar, images []analyzer.ImageRef) (*Sidecar, ReconcileReport) {
	merged := &Sidecar{Document: existing.Document, Generated: existing.Generated}
	merged.Images = append([]Entry(nil), existing.Images...)

	var rep ReconcileReport
	current := make(map[string]bool, len(images))
	ids := make(map[string]bool, len(merged.Images))
	for _, e := range merged.Images {
		ids[e.ID] = true
	}
	for _, img := range images {
		current[img.Hash] = true
		if e, ok := merged.ByHash(img.Hash); ok {
			rep.Kept = append(rep.Kept, e.ID)
			continue
		}
		id := uniqueID(img, ids)
		ids[id] = true
		merged.Images = append(merged.Images, Entry{
			ID:      id,
			Page:    img.Page + 1,
			Hash:    img.Hash,
			Caption: img.Caption,
			Status:  StatusNeedsReview,
		})
		rep.Added = append(rep.Added, id)
	}
	for _, e := range merged.Images {
		if !current[e.Hash] {
			rep.Stale = append(rep.Stale, e.ID)
		}
	}
	return merged, rep
}

// uniqueID returns the image's id, lengthened with further hash characters
// when a retained entry already uses it for different bytes.
func uniqueID(img analyzer.ImageRef, taken map[string]bool) string {
	id := img.ID
	n := len(strings.TrimPrefix(id, analyzer.IDPrefix))
	for taken[id] && n < len(img.Hash) {
		n++
		id = analyzer.IDPrefix + img.Hash[:n]
	}
	return id
}

var (
	ErrUnknownEntry = errors.New("unknown alt-text entry")
	ErrEmptyAltText = errors.New("approved entries need alt text")
)

// Approve sets the final description and marks the entry approved.
func (s *Sidecar) Approve(id, text string) error {
	e, ok := s.Entry(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: %s", ErrEmptyAltText, id)
	}
	e.AltText = text
	e.Status = StatusApproved
	return nil
}

// ApproveDraft approves the entry using its AI draft as the final text.
func (s *Sidecar) ApproveDraft(id string) error {
	e, ok := s.Entry(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	return s.Approve(id, e.AIDraft)
}

// MarkDecorative flags the image as non-semantic and clears its alt text.
func (s *Sidecar) MarkDecorative(id string) error {
	e, ok := s.Entry(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	e.AltText = ""
	e.Status = StatusDecorative
	return nil
}

// Reopen sends an entry back to review. The alt text is kept as a starting
// point but is no longer injected.
func (s *Sidecar) Reopen(id string) error {
	e, ok := s.Entry(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	e.Status = StatusNeedsReview
	return nil
}

// SetDraft stores a generated draft without changing the status.
func (s *Sidecar) SetDraft(id, draft string) error {
	e, ok := s.Entry(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	e.AIDraft = strings.TrimSpace(draft)
	return nil
}
