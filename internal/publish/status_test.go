package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plumapost/pluma-backend/internal/model"
)

func TestRollContent(t *testing.T) {
	tests := []struct {
		name     string
		statuses []model.DeliveryStatus
		current  model.ContentStatus
		want     model.ContentStatus
	}{
		{
			name:     "all published",
			statuses: []model.DeliveryStatus{model.DeliveryPublished, model.DeliveryPublished},
			current:  model.ContentPublishing,
			want:     model.ContentPublished,
		},
		{
			name:     "skipped counts as success",
			statuses: []model.DeliveryStatus{model.DeliveryPublished, model.DeliverySkipped, model.DeliverySkipped},
			current:  model.ContentPublishing,
			want:     model.ContentPublished,
		},
		{
			name:     "success plus failure is always partial",
			statuses: []model.DeliveryStatus{model.DeliveryPublished, model.DeliveryFailed},
			current:  model.ContentPublishing,
			want:     model.ContentPartial,
		},
		{
			name:     "partial wins even with open work remaining",
			statuses: []model.DeliveryStatus{model.DeliveryPublished, model.DeliveryFailed, model.DeliveryPending},
			current:  model.ContentPublishing,
			want:     model.ContentPartial,
		},
		{
			name:     "all failed",
			statuses: []model.DeliveryStatus{model.DeliveryFailed, model.DeliveryFailed},
			current:  model.ContentPublishing,
			want:     model.ContentFailed,
		},
		{
			name:     "pending keeps in-progress status",
			statuses: []model.DeliveryStatus{model.DeliveryPending, model.DeliveryPublished},
			current:  model.ContentPublishing,
			want:     model.ContentPublishing,
		},
		{
			name:     "publishing keeps in-progress status",
			statuses: []model.DeliveryStatus{model.DeliveryPublishing, model.DeliveryFailed},
			current:  model.ContentPublishing,
			want:     model.ContentPublishing,
		},
		{
			name:     "empty multiset never decides",
			statuses: nil,
			current:  model.ContentDraft,
			want:     model.ContentDraft,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TallyDeliveries(tt.statuses).RollContent(tt.current)
			assert.Equal(t, tt.want, got)
		})
	}
}

// The result must depend only on the multiset, not the order.
func TestRollContentOrderIndependent(t *testing.T) {
	a := []model.DeliveryStatus{model.DeliveryPublished, model.DeliveryFailed, model.DeliverySkipped}
	b := []model.DeliveryStatus{model.DeliverySkipped, model.DeliveryPublished, model.DeliveryFailed}

	assert.Equal(t,
		TallyDeliveries(a).RollContent(model.ContentPublishing),
		TallyDeliveries(b).RollContent(model.ContentPublishing),
	)
}

func TestRollLink(t *testing.T) {
	tests := []struct {
		name     string
		statuses []model.DeliveryStatus
		want     model.LinkStatus
	}{
		{"all published", []model.DeliveryStatus{model.DeliveryPublished}, model.LinkPublished},
		{"mixed", []model.DeliveryStatus{model.DeliveryPublished, model.DeliveryFailed}, model.LinkPartial},
		{"all failed", []model.DeliveryStatus{model.DeliveryFailed}, model.LinkFailed},
		{"open work", []model.DeliveryStatus{model.DeliveryPending}, model.LinkPublishing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TallyDeliveries(tt.statuses).RollLink(model.LinkPublishing)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTallyLinksPartialPropagates(t *testing.T) {
	// A partial link carries both outcomes, so the thread lands on partial
	// even when every other link succeeded.
	statuses := []model.LinkStatus{model.LinkPublished, model.LinkPartial}
	got := TallyLinks(statuses).RollContent(model.ContentPublishing)
	assert.Equal(t, model.ContentPartial, got)

	// And a lone partial link still reads partial, not failed.
	got = TallyLinks([]model.LinkStatus{model.LinkPartial}).RollContent(model.ContentPublishing)
	assert.Equal(t, model.ContentPartial, got)
}
