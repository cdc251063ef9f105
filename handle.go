package layercache

import (
	"sync"

	"github.com/gogpu/layercache/resource"
)

// Handle keeps the resources of one draw alive. Release it once the frame
// that drew them has been submitted. A nil Handle means nothing was drawn.
type Handle struct {
	once sync.Once
	sets []*resource.TileSet
}

func newHandle(sets ...*resource.TileSet) *Handle {
	h := &Handle{sets: make([]*resource.TileSet, 0, len(sets))}
	for _, s := range sets {
		if s != nil {
			h.sets = append(h.sets, s.Retain())
		}
	}
	return h
}

// Release lets the cache free the draw's resources. Release is idempotent
// and safe to call on a nil Handle.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		for _, s := range h.sets {
			s.Release()
		}
		h.sets = nil
	})
}
