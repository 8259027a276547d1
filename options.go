package ttm

import "log/slog"

// HeapAllocator is the injected host collaborator that backs each tile
// heap with real memory. A caller wiring a Manager to an actual GPU
// registers one via WithHeapAllocator so AddHeap/RemoveHeap reach real
// heap objects without this package importing any GPU API.
type HeapAllocator interface {
	// AddHeap is called when the Manager creates heapID. An error aborts
	// the Manager's AddHeap call before the heap is tracked internally.
	AddHeap(heapID uint32) error
	// RemoveHeap is called when the Manager retires heapID. The Manager
	// only calls this after confirming the heap holds no tiles.
	RemoveHeap(heapID uint32)
}

// Option configures a Manager during construction.
type Option func(*managerOptions)

type managerOptions struct {
	heapAllocator        HeapAllocator
	logger               *slog.Logger
	alwaysMapPackedTiles *bool
}

// WithHeapAllocator registers a HeapAllocator that backs every heap the
// Manager creates or retires with real memory.
func WithHeapAllocator(a HeapAllocator) Option {
	return func(o *managerOptions) {
		o.heapAllocator = a
	}
}

// WithLogger sets the package-wide logger as part of constructing a
// Manager, equivalent to calling SetLogger separately.
func WithLogger(l *slog.Logger) Option {
	return func(o *managerOptions) {
		o.logger = l
	}
}

// WithAlwaysMapPackedTiles controls whether a texture's packed mip tiles
// are requested as soon as the texture is added (the default, always
// true) or only once at least one of its regular tiles is requested.
// Packed tiles are never evicted once resident either way; this only
// gates when they are requested in the first place.
func WithAlwaysMapPackedTiles(always bool) Option {
	return func(o *managerOptions) {
		o.alwaysMapPackedTiles = &always
	}
}
