package reconciliation

import (
	"sort"

	"salonpos-backend/internal/domain"
)

// Selection is the set of advance IDs marked for discount in the current
// preview. A fresh preview starts with every offered advance selected; the
// user opts out per advance.
type Selection map[int64]struct{}

// SelectAll returns a selection covering every advance in the preview.
func SelectAll(advances []domain.Advance) Selection {
	s := make(Selection, len(advances))
	for _, adv := range advances {
		s[adv.ID] = struct{}{}
	}
	return s
}

func (s Selection) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s Selection) Toggle(id int64) {
	if s.Has(id) {
		delete(s, id)
		return
	}
	s[id] = struct{}{}
}

// IDs returns the selected advance IDs in ascending order.
func (s Selection) IDs() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
