package buffers

import (
	"sync"
)

const (
	// DefaultChunkSize is the default plaintext chunk fed to one Encrypt call.
	DefaultChunkSize = 4096

	// ChunkSlack covers the extra output of a padded final block and a GCM tag.
	ChunkSlack = 32
)

// BufferPool maintains a pool of byte slices of one size.
type BufferPool struct {
	pool sync.Pool
	size int
}

func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				buf := make([]byte, size)
				return &buf
			},
		},
		size: size,
	}
}

// Size is the length of the slices Get returns.
func (p *BufferPool) Size() int { return p.size }

// Get returns a buffer of Size bytes. Its contents are undefined.
func (p *BufferPool) Get() []byte {
	buffer := *(p.pool.Get().(*[]byte))
	if cap(buffer) < p.size {
		return make([]byte, p.size)
	}
	return buffer[:p.size]
}

// Put returns a buffer to the pool. Key stream and plaintext buffers should
// be cleared by the caller first.
func (p *BufferPool) Put(buffer []byte) {
	if buffer == nil || cap(buffer) < p.size {
		return
	}
	buffer = buffer[:p.size]
	p.pool.Put(&buffer)
}

// ChunkPool holds input and output chunks of the streaming commands.
var ChunkPool = NewBufferPool(DefaultChunkSize + ChunkSlack)

// ForSize returns ChunkPool when it fits size, otherwise a new pool.
func ForSize(size int) *BufferPool {
	if size+ChunkSlack == ChunkPool.size {
		return ChunkPool
	}
	return NewBufferPool(size + ChunkSlack)
}
