package zim

import "sync"

// syncPool is a tiny typed wrapper over sync.Pool, grounded on the
// zstdDecoderPool pattern in the teacher's zim.go (a sync.Pool of pooled
// *zstd.Decoder values reused across GetBlob calls).
type syncPool[T any] struct {
	pool sync.Pool
	new  func() (T, error)
}

func newSyncPool[T any](newFn func() (T, error)) *syncPool[T] {
	p := &syncPool[T]{new: newFn}
	p.pool.New = func() any {
		v, err := newFn()
		if err != nil {
			return nil
		}
		return v
	}
	return p
}

// get returns a pooled value and a put func to return it. On pool-miss
// construction failure, it falls back to constructing directly so callers
// still get a usable value or a clear error.
func (p *syncPool[T]) get() (T, func(), error) {
	v := p.pool.Get()
	if v == nil {
		fresh, err := p.new()
		var zero T
		if err != nil {
			return zero, func() {}, err
		}
		return fresh, func() {}, nil
	}
	typed := v.(T)
	return typed, func() { p.pool.Put(typed) }, nil
}
