package ttm

import "errors"

// ErrHeapAllocationFailed wraps a registered HeapAllocator's refusal to
// back a new heap (e.g. the host is out of the backing memory a real GPU
// heap would require).
var ErrHeapAllocationFailed = errors.New("ttm: heap allocator rejected AddHeap")
