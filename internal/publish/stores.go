package publish

import (
	"github.com/plumapost/pluma-backend/internal/model"
)

// The publishers depend on narrow store interfaces rather than the concrete
// repositories so tests can drive them with in-memory fakes.

type PostStore interface {
	GetByID(id int) (*model.Post, error)
	UpdateStatus(id int, status model.ContentStatus) error
}

type PostDeliveryStore interface {
	GetPostDelivery(id int) (*model.PostDelivery, error)
	ListPendingForPost(postID int) ([]model.PostDelivery, error)
	ListStatusesForPost(postID int) ([]model.DeliveryStatus, error)
	UpdatePostDelivery(d *model.PostDelivery) error
}

type ThreadStore interface {
	GetByID(id int) (*model.Thread, error)
	UpdateStatus(id int, status model.ContentStatus) error
	GetLink(threadID, accountID int) (*model.AccountLink, error)
	ListLinks(threadID int) ([]model.AccountLink, error)
	UpdateLinkStatus(linkID int, status model.LinkStatus) error
}

type SegmentDeliveryStore interface {
	ListForThreadAccount(threadID, accountID int) ([]model.SegmentDelivery, error)
	UpdateSegmentDelivery(d *model.SegmentDelivery) error
	ResetForThreadAccount(threadID, accountID int) error
}

type AccountStore interface {
	GetByID(id int) (*model.SocialAccount, error)
	TouchLastUsed(id int) error
}
