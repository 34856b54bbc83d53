package publish

import "github.com/plumapost/pluma-backend/internal/model"

// Tally is the status multiset of a set of deliveries or links, reduced to
// the three facts the rollup rules care about. Building a Tally and rolling
// it is the only way parent statuses are ever computed.
type Tally struct {
	Succeeded int // published or skipped
	Failed    int
	Open      int // pending or publishing
}

func (t Tally) total() int { return t.Succeeded + t.Failed + t.Open }

// outcome applies the precedence rules top-down. The zero return means no
// rule matched and the parent keeps its in-progress status.
type outcome int

const (
	undecided outcome = iota
	allPublished
	somePartial
	allFailed
)

func (t Tally) roll() outcome {
	switch {
	case t.total() == 0:
		return undecided
	case t.Open == 0 && t.Failed == 0:
		return allPublished
	case t.Succeeded > 0 && t.Failed > 0:
		return somePartial
	case t.Open == 0 && t.Succeeded == 0:
		return allFailed
	default:
		return undecided
	}
}

// RollContent rolls the tally up to a post or thread status.
func (t Tally) RollContent(current model.ContentStatus) model.ContentStatus {
	switch t.roll() {
	case allPublished:
		return model.ContentPublished
	case somePartial:
		return model.ContentPartial
	case allFailed:
		return model.ContentFailed
	}
	return current
}

// RollLink rolls the tally up to an account-link status.
func (t Tally) RollLink(current model.LinkStatus) model.LinkStatus {
	switch t.roll() {
	case allPublished:
		return model.LinkPublished
	case somePartial:
		return model.LinkPartial
	case allFailed:
		return model.LinkFailed
	}
	return current
}

// TallyDeliveries counts delivery statuses.
func TallyDeliveries(statuses []model.DeliveryStatus) Tally {
	var t Tally
	for _, s := range statuses {
		switch s {
		case model.DeliveryPublished, model.DeliverySkipped:
			t.Succeeded++
		case model.DeliveryFailed:
			t.Failed++
		default:
			t.Open++
		}
	}
	return t
}

// TallyLinks counts account-link statuses for the thread-level rollup. A
// partial link carries both a success and a failure, so it contributes to
// both counts and the thread lands on partial.
func TallyLinks(statuses []model.LinkStatus) Tally {
	var t Tally
	for _, s := range statuses {
		switch s {
		case model.LinkPublished:
			t.Succeeded++
		case model.LinkFailed:
			t.Failed++
		case model.LinkPartial:
			t.Succeeded++
			t.Failed++
		default:
			t.Open++
		}
	}
	return t
}
