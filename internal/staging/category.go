// Package staging receives raw upload streams, validates them against
// per-category policies and writes them to the local staging area until the
// remote store has accepted them.
package staging

import (
	"path/filepath"
	"strings"
)

// Category classifies an upload and selects its staging policy.
type Category string

const (
	CategoryVehicleImage Category = "vehicle-image"
	CategoryMedia        Category = "generic-media"
	CategorySiteVideo    Category = "site-video"
)

// Policy is the validation and naming rule set for one category.
type Policy struct {
	// Extensions is the case-insensitive allow-list, without dots.
	Extensions []string
	// MIMEPrefixes, when non-empty, requires the declared content type to
	// match one of the prefixes. Empty skips the content-type check.
	MIMEPrefixes []string
	// MaxBytes caps the payload size, enforced while streaming.
	MaxBytes int64
	// Subdir is the staging subdirectory under the uploads root.
	Subdir string
	// FixedStem, when set, names every upload "<FixedStem><ext>" so a new
	// upload overwrites the previous one instead of accumulating.
	FixedStem string
}

var policies = map[Category]Policy{
	CategoryVehicleImage: {
		Extensions:   []string{"jpg", "jpeg", "png", "webp"},
		MIMEPrefixes: []string{"image/"},
		MaxBytes:     10 << 20,
		Subdir:       "vehicles",
	},
	CategoryMedia: {
		Extensions: []string{
			"jpeg", "jpg", "png", "gif", "pdf",
			"doc", "docx", "xls", "xlsx", "ppt", "pptx",
			"txt", "csv", "zip", "rar",
		},
		MaxBytes: 10 << 20,
		Subdir:   "media",
	},
	CategorySiteVideo: {
		Extensions:   []string{"mp4", "webm", "mov", "avi"},
		MIMEPrefixes: []string{"video/"},
		MaxBytes:     100 << 20,
		Subdir:       "videos",
		FixedStem:    "site-video",
	},
}

// PolicyFor returns the policy for category. The second result is false for
// unknown categories.
func PolicyFor(category Category) (Policy, bool) {
	p, ok := policies[category]
	return p, ok
}

// Categories lists every known category.
func Categories() []Category {
	return []Category{CategoryVehicleImage, CategoryMedia, CategorySiteVideo}
}

// Allows reports whether the policy accepts the given original filename and
// declared content type.
func (p Policy) Allows(originalName, mime string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(originalName)), ".")
	found := false
	for _, allowed := range p.Extensions {
		if ext == allowed {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if len(p.MIMEPrefixes) == 0 || strings.TrimSpace(mime) == "" {
		return true
	}
	lowered := strings.ToLower(strings.TrimSpace(mime))
	for _, prefix := range p.MIMEPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	return false
}
