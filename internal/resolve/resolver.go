package resolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/plumapost/pluma-backend/internal/media"
	"github.com/plumapost/pluma-backend/internal/model"
	"github.com/plumapost/pluma-backend/internal/platform"
)

// Translator is the external translation collaborator. An empty result with
// a nil error means no translation is available for that language pair.
type Translator interface {
	Translate(ctx context.Context, text, fromLang, toLang string) (string, error)
}

// TranslationStore caches translations per content owner. Writes are
// last-write-wins; identical duplicate writes are harmless.
type TranslationStore interface {
	Get(ownerType string, ownerID int, lang string) (string, error)
	Put(ownerType string, ownerID int, lang, body string) error
}

// Owner identifies the content row a cached translation belongs to.
type Owner struct {
	Type string
	ID   int
}

// Options controls the decorations applied after language assembly.
type Options struct {
	Hashtags string
	Branding bool
}

// Resolver builds the final per-account payload: language sections from the
// translation cache, hashtags, account branding and signed media URLs.
type Resolver struct {
	Translator Translator
	Store      TranslationStore
	Media      media.Resolver

	DefaultLanguage string
	MediaTTL        time.Duration
}

// Text assembles the account-facing text for one piece of content. It is
// idempotent: a cached translation is never re-requested.
func (r *Resolver) Text(ctx context.Context, owner Owner, body string, account model.SocialAccount, opts Options) (string, error) {
	langs := account.LanguageList()
	if len(langs) == 0 {
		langs = []string{r.DefaultLanguage}
	}

	type langSection struct {
		lang string
		text string
	}
	var sections []langSection
	for _, lang := range langs {
		if lang == r.DefaultLanguage {
			sections = append(sections, langSection{lang, body})
			continue
		}

		translated, err := r.translation(ctx, owner, body, lang)
		if err != nil {
			return "", err
		}
		if translated == "" {
			// No translation available; the language is dropped rather
			// than publishing the untranslated body twice.
			continue
		}
		sections = append(sections, langSection{lang, translated})
	}

	var text string
	switch len(sections) {
	case 0:
		text = body
	case 1:
		text = sections[0].text
	default:
		// The marker only appears when the payload actually mixes
		// languages.
		parts := make([]string, len(sections))
		for i, s := range sections {
			parts[i] = "[" + s.lang + "]\n" + s.text
		}
		text = strings.Join(parts, "\n\n")
	}

	if opts.Hashtags != "" {
		text += "\n\n" + opts.Hashtags
	}
	if opts.Branding && account.ShowBranding && account.BrandingText != "" {
		text += "\n\n" + account.BrandingText
	}
	return text, nil
}

func (r *Resolver) translation(ctx context.Context, owner Owner, body, lang string) (string, error) {
	cached, err := r.Store.Get(owner.Type, owner.ID, lang)
	if err != nil {
		return "", fmt.Errorf("reading translation cache: %w", err)
	}
	if cached != "" {
		return cached, nil
	}

	translated, err := r.Translator.Translate(ctx, body, r.DefaultLanguage, lang)
	if err != nil {
		return "", fmt.Errorf("translating to %s: %w", lang, err)
	}
	if translated == "" {
		return "", nil
	}

	if err := r.Store.Put(owner.Type, owner.ID, lang, translated); err != nil {
		return "", fmt.Errorf("caching translation: %w", err)
	}
	return translated, nil
}

// MediaList rewrites local media refs into short-lived signed URLs.
func (r *Resolver) MediaList(refs []model.MediaRef) ([]platform.Media, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	out := make([]platform.Media, 0, len(refs))
	for _, ref := range refs {
		url, err := r.Media.SignedURL(ref.LocalPath, r.MediaTTL)
		if err != nil {
			return nil, fmt.Errorf("signing media %s: %w", ref.LocalPath, err)
		}

		mimeType := ref.MimeType
		if mimeType == "" {
			if meta, err := r.Media.Metadata(ref.LocalPath); err == nil {
				mimeType = meta.MimeType
			}
		}
		out = append(out, platform.Media{URL: url, MimeType: mimeType, AltText: ref.AltText})
	}
	return out, nil
}

// Post resolves a standalone post with full decorations.
func (r *Resolver) Post(ctx context.Context, post model.Post, account model.SocialAccount) (platform.Content, error) {
	text, err := r.Text(ctx, Owner{Type: "post", ID: post.ID}, post.Body, account,
		Options{Hashtags: post.Hashtags, Branding: true})
	if err != nil {
		return platform.Content{}, err
	}
	mediaList, err := r.MediaList(post.Media)
	if err != nil {
		return platform.Content{}, err
	}
	return platform.Content{Text: text, Media: mediaList}, nil
}

// Segment resolves one thread segment for a platform. Decorations are the
// caller's choice so a reply chain isn't branded on every entry.
func (r *Resolver) Segment(ctx context.Context, seg model.Segment, account model.SocialAccount, slug string, opts Options) (platform.Content, error) {
	text, err := r.Text(ctx, Owner{Type: "segment", ID: seg.ID}, seg.BodyFor(slug), account, opts)
	if err != nil {
		return platform.Content{}, err
	}
	mediaList, err := r.MediaList(seg.Media)
	if err != nil {
		return platform.Content{}, err
	}
	return platform.Content{Text: text, Media: mediaList}, nil
}
