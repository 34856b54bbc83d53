package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumapost/pluma-backend/internal/apperrors"
	"github.com/plumapost/pluma-backend/internal/model"
)

type stubAdapter struct{ slug string }

func (a stubAdapter) Slug() string { return a.slug }

func (a stubAdapter) Publish(ctx context.Context, account model.SocialAccount, content Content) (Result, error) {
	return Result{}, nil
}

type stubThreadAdapter struct{ stubAdapter }

func (a stubThreadAdapter) PublishReply(ctx context.Context, account model.SocialAccount, content Content, inReplyToID string) (Result, error) {
	return Result{}, nil
}

func (a stubThreadAdapter) BackReference(permalink string) string { return permalink }

func TestRegistryResolve(t *testing.T) {
	r, err := NewRegistry(stubAdapter{slug: "telegram"}, stubThreadAdapter{stubAdapter{slug: "mastodon"}})
	require.NoError(t, err)

	a, err := r.Resolve("telegram")
	require.NoError(t, err)
	assert.Equal(t, "telegram", a.Slug())

	_, err = r.Resolve("myspace")
	var unknown *apperrors.ErrUnknownPlatform
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "myspace", unknown.Slug)
}

func TestRegistryResolveThreadable(t *testing.T) {
	r, err := NewRegistry(stubAdapter{slug: "telegram"}, stubThreadAdapter{stubAdapter{slug: "mastodon"}})
	require.NoError(t, err)

	_, err = r.ResolveThreadable("mastodon")
	require.NoError(t, err)

	_, err = r.ResolveThreadable("telegram")
	var notThreadable *apperrors.ErrNotThreadable
	require.ErrorAs(t, err, &notThreadable)
	assert.Equal(t, "telegram", notThreadable.Slug)

	_, err = r.ResolveThreadable("myspace")
	var unknown *apperrors.ErrUnknownPlatform
	assert.ErrorAs(t, err, &unknown)
}

func TestRegistryRejectsDuplicateSlugs(t *testing.T) {
	_, err := NewRegistry(stubAdapter{slug: "mastodon"}, stubAdapter{slug: "mastodon"})
	assert.Error(t, err)
}

func TestRegistryValidate(t *testing.T) {
	r, err := NewRegistry(stubAdapter{slug: "telegram"})
	require.NoError(t, err)

	assert.NoError(t, r.Validate([]string{"telegram"}))

	err = r.Validate([]string{"telegram", "bluesky"})
	var unknown *apperrors.ErrUnknownPlatform
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "bluesky", unknown.Slug)
}
