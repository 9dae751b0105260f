package siteconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Defaults()

	assert.NotEmpty(t, cfg.HomeHeroText)
	assert.NotEmpty(t, cfg.ContactInfo.Email)
	assert.NotEmpty(t, cfg.SEO.Title)
	assert.Contains(t, cfg.CustomPages, "about")
	assert.Empty(t, cfg.VideoURL, "no video until one is uploaded")
}
