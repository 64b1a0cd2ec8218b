package analyzer

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/wudi/accesspdf/ir/semantic"
)

// IDPrefix and IDHashLen define the short image identifier "img_" + the
// first IDHashLen hex characters of the content hash.
const (
	IDPrefix  = "img_"
	IDHashLen = 6
)

// ContentHash returns the hex md5 of the raw image bytes. The hash depends on
// the bytes only, never on where the image is placed.
func ContentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func collectImages(doc *semantic.Document, runs []TextRun) []ImageRef {
	var images []ImageRef
	byHash := make(map[string]int)
	for pi, page := range doc.Pages {
		for ii, img := range page.Images {
			ref := semantic.ContentRef{Kind: semantic.ContentImage, Page: pi, Index: ii}
			hash := ContentHash(img.Data)
			if at, ok := byHash[hash]; ok {
				images[at].Placements = append(images[at].Placements, ref)
				continue
			}
			byHash[hash] = len(images)
			images = append(images, ImageRef{
				Hash:         hash,
				Page:         pi,
				BBox:         img.BBox,
				Width:        img.Width,
				Height:       img.Height,
				ResourceName: img.ResourceName,
				Caption:      findCaption(img, pi, runs),
				Placements:   []semantic.ContentRef{ref},
			})
		}
	}
	assignIDs(images)
	attachExistingAlt(doc, images)
	return images
}

// assignIDs gives every image the shortest hash prefix, at least IDHashLen
// characters, that no other distinct hash shares.
func assignIDs(images []ImageRef) {
	hashes := make([]string, len(images))
	for i, img := range images {
		hashes[i] = img.Hash
	}
	sort.Strings(hashes)
	length := make(map[string]int, len(hashes))
	for i, h := range hashes {
		n := IDHashLen
		if i > 0 {
			n = max(n, commonPrefix(h, hashes[i-1])+1)
		}
		if i+1 < len(hashes) {
			n = max(n, commonPrefix(h, hashes[i+1])+1)
		}
		length[h] = min(n, len(h))
	}
	for i := range images {
		images[i].ID = IDPrefix + images[i].Hash[:length[images[i].Hash]]
	}
}

func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// findCaption returns the closest text run just below the image that overlaps
// it horizontally.
func findCaption(img semantic.Image, page int, runs []TextRun) string {
	const maxGap = 24.0
	best := ""
	bestGap := maxGap
	for _, r := range runs {
		if r.Page != page || !r.BBox.OverlapsX(img.BBox) {
			continue
		}
		gap := img.BBox.Y0 - r.BBox.Y1
		if gap < 0 || gap > bestGap {
			continue
		}
		best, bestGap = strings.TrimSpace(r.Text), gap
	}
	return best
}

func attachExistingAlt(doc *semantic.Document, images []ImageRef) {
	if doc.StructTree == nil {
		return
	}
	for i := range images {
		for _, p := range images[i].Placements {
			fig := doc.StructTree.FindImage(p.Page, p.Index)
			if fig == nil {
				continue
			}
			if fig.Artifact {
				images[i].Decorative = true
				break
			}
			if fig.Alt != "" {
				images[i].Alt = fig.Alt
				break
			}
		}
	}
}
