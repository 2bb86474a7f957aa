// Package buf provides a size-tiered pooled scratch buffer used to assemble
// Remoting packets without unbounded growth (see BoundedWriter).
package buf

import "sync"

// Predefined buffer pool sizes. The tiers are kept from RTMP chunk-sized
// payloads down to Remoting header/message bodies, which are typically a
// few hundred bytes to a few KB; the largest tier plus MaxScratchSize (see
// bounded.go) bound a single packet assembly.
const (
	Size32   = 1 << 5  // 32 bytes
	Size512  = 1 << 9  // 512 bytes
	Size4K   = 1 << 12 // 4 KB
	Size16K  = 1 << 14 // 16 KB
	Size64K  = 1 << 16 // 64 KB
	Size256K = 1 << 18 // 256 KB
	Size1M   = 1 << 20 // 1 MB
	Size4M   = 1 << 22 // 4 MB
	Size16M  = 1 << 24 // 16 MB
)

var (
	pool32   = sync.Pool{New: func() any { return make([]byte, Size32) }}
	pool512  = sync.Pool{New: func() any { return make([]byte, Size512) }}
	pool4K   = sync.Pool{New: func() any { return make([]byte, Size4K) }}
	pool16K  = sync.Pool{New: func() any { return make([]byte, Size16K) }}
	pool64K  = sync.Pool{New: func() any { return make([]byte, Size64K) }}
	pool256K = sync.Pool{New: func() any { return make([]byte, Size256K) }}
	pool1M   = sync.Pool{New: func() any { return make([]byte, Size1M) }}
	pool4M   = sync.Pool{New: func() any { return make([]byte, Size4M) }}
	pool16M  = sync.Pool{New: func() any { return make([]byte, Size16M) }}
)

// alloc returns a buffer from the pool tier at or above size. Sizes beyond
// the largest tier are allocated directly and never returned to a pool.
func alloc(size int) []byte {
	switch {
	case size <= Size32:
		return pool32.Get().([]byte)[:size]
	case size <= Size512:
		return pool512.Get().([]byte)[:size]
	case size <= Size4K:
		return pool4K.Get().([]byte)[:size]
	case size <= Size16K:
		return pool16K.Get().([]byte)[:size]
	case size <= Size64K:
		return pool64K.Get().([]byte)[:size]
	case size <= Size256K:
		return pool256K.Get().([]byte)[:size]
	case size <= Size1M:
		return pool1M.Get().([]byte)[:size]
	case size <= Size4M:
		return pool4M.Get().([]byte)[:size]
	case size <= Size16M:
		return pool16M.Get().([]byte)[:size]
	default:
		return make([]byte, size)
	}
}

// free returns a buffer to the pool tier matching its capacity, if any.
func free(b []byte) {
	if b == nil {
		return
	}
	switch cap(b) {
	case Size32:
		pool32.Put(b[:cap(b)])
	case Size512:
		pool512.Put(b[:cap(b)])
	case Size4K:
		pool4K.Put(b[:cap(b)])
	case Size16K:
		pool16K.Put(b[:cap(b)])
	case Size64K:
		pool64K.Put(b[:cap(b)])
	case Size256K:
		pool256K.Put(b[:cap(b)])
	case Size1M:
		pool1M.Put(b[:cap(b)])
	case Size4M:
		pool4M.Put(b[:cap(b)])
	case Size16M:
		pool16M.Put(b[:cap(b)])
	default:
		// oversized or not pool-allocated; let GC handle it
	}
}
