package model

import (
	"strings"
	"time"
)

// Platform identifies one external network and which adapter drives it.
type Platform struct {
	ID         int    `db:"id" json:"id"`
	Slug       string `db:"slug" json:"slug"`
	Name       string `db:"name" json:"name"`
	Threadable bool   `db:"threadable" json:"threadable"`
}

// SocialAccount is a credentialed identity on one platform. The orchestrator
// only ever writes last_used_at; everything else is managed elsewhere.
type SocialAccount struct {
	ID           int        `db:"id" json:"id"`
	PlatformID   int        `db:"platform_id" json:"platform_id"`
	PlatformSlug string     `db:"platform_slug" json:"platform_slug"`
	Handle       string     `db:"handle" json:"handle"`
	Credentials  string     `db:"credentials" json:"-"`
	Languages    string     `db:"languages" json:"languages"`
	BrandingText string     `db:"branding_text" json:"branding_text,omitempty"`
	ShowBranding bool       `db:"show_branding" json:"show_branding"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastUsedAt   *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
}

// LanguageList splits the CSV language preference, e.g. "en,de" -> [en de].
func (a SocialAccount) LanguageList() []string {
	var langs []string
	for _, l := range strings.Split(a.Languages, ",") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

// MediaRef points at a locally stored media file attached to a post or
// segment. LocalPath is rewritten to a signed URL before it reaches an
// adapter.
type MediaRef struct {
	ID        int    `db:"id" json:"id"`
	LocalPath string `db:"local_path" json:"local_path"`
	MimeType  string `db:"mime_type" json:"mime_type,omitempty"`
	AltText   string `db:"alt_text" json:"alt_text,omitempty"`
	Position  int    `db:"position" json:"position"`
}
