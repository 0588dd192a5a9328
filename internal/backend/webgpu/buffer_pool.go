package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// bufferClass categorizes buffers by size for pooling.
type bufferClass int

const (
	smallBuffer  bufferClass = iota // < 16KB: coefficient and timestep tensors
	mediumBuffer                    // 16KB-4MB: typical image tensors
	largeBuffer                     // > 4MB: batched images, model outputs
)

const (
	smallClassLimit  = 16 * 1024
	mediumClassLimit = 4 * 1024 * 1024
	maxPooledPerClass = 64
)

// poolEntry wraps a GPU buffer with the metadata needed for reuse.
type poolEntry struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// BufferPool recycles GPU storage buffers across compute dispatches.
// A reverse-diffusion step issues the same handful of buffer sizes over
// and over, so pooling removes nearly all per-dispatch allocations.
type BufferPool struct {
	device *wgpu.Device

	small  []*poolEntry
	medium []*poolEntry
	large  []*poolEntry

	mu sync.Mutex

	totalAllocated uint64
	totalReleased  uint64
	poolHits       uint64
	poolMisses     uint64
}

// NewBufferPool creates a new buffer pool for the given device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{
		device: device,
		small:  make([]*poolEntry, 0, maxPooledPerClass),
		medium: make([]*poolEntry, 0, maxPooledPerClass),
		large:  make([]*poolEntry, 0, maxPooledPerClass),
	}
}

// Acquire returns a pooled buffer that matches or exceeds the requested
// size and usage, or creates a new one.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	class := classify(size)
	pool := p.pool(class)

	for i, entry := range pool {
		if entry.size >= size && entry.usage&usage == usage {
			buffer := entry.buffer
			p.remove(class, i)
			p.poolHits++
			return buffer
		}
	}

	p.poolMisses++
	p.totalAllocated++

	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  size,
	})
}

// Release returns a buffer to the pool for reuse.
// If the pool class is full, the buffer is released immediately.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.totalReleased++

	class := classify(size)
	if len(p.pool(class)) >= maxPooledPerClass {
		buffer.Release()
		return
	}

	p.add(class, &poolEntry{buffer: buffer, size: size, usage: usage})
}

// Clear releases all pooled buffers.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, entry := range p.small {
		entry.buffer.Release()
	}
	p.small = p.small[:0]

	for _, entry := range p.medium {
		entry.buffer.Release()
	}
	p.medium = p.medium[:0]

	for _, entry := range p.large {
		entry.buffer.Release()
	}
	p.large = p.large[:0]
}

// Stats returns pool usage counters.
func (p *BufferPool) Stats() (allocated, released, hits, misses uint64, pooledCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.totalAllocated, p.totalReleased, p.poolHits, p.poolMisses,
		len(p.small) + len(p.medium) + len(p.large)
}

func classify(size uint64) bufferClass {
	if size < smallClassLimit {
		return smallBuffer
	}
	if size < mediumClassLimit {
		return mediumBuffer
	}
	return largeBuffer
}

func (p *BufferPool) pool(class bufferClass) []*poolEntry {
	switch class {
	case smallBuffer:
		return p.small
	case mediumBuffer:
		return p.medium
	case largeBuffer:
		return p.large
	default:
		return nil
	}
}

func (p *BufferPool) add(class bufferClass, entry *poolEntry) {
	switch class {
	case smallBuffer:
		p.small = append(p.small, entry)
	case mediumBuffer:
		p.medium = append(p.medium, entry)
	case largeBuffer:
		p.large = append(p.large, entry)
	}
}

func (p *BufferPool) remove(class bufferClass, i int) {
	switch class {
	case smallBuffer:
		p.small = append(p.small[:i], p.small[i+1:]...)
	case mediumBuffer:
		p.medium = append(p.medium[:i], p.medium[i+1:]...)
	case largeBuffer:
		p.large = append(p.large[:i], p.large[i+1:]...)
	}
}
