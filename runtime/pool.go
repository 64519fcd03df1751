package runtime

// BufferPool manages reusable row vectors for evaluation
type BufferPool struct {
	buffers chan []int64
	size    int
}

// NewBufferPool creates a pool of poolSize buffers of bufferSize entries each
func NewBufferPool(poolSize, bufferSize int) *BufferPool {
	bp := &BufferPool{
		buffers: make(chan []int64, poolSize),
		size:    bufferSize,
	}

	// Pre-allocate buffers
	for i := 0; i < poolSize; i++ {
		bp.buffers <- make([]int64, bufferSize)
	}

	return bp
}

// Size returns the length of the buffers handed out.
func (bp *BufferPool) Size() int { return bp.size }

// GetBuffer returns a buffer from the pool or creates a new one
func (bp *BufferPool) GetBuffer() []int64 {
	select {
	case buf := <-bp.buffers:
		return buf
	default:
		return make([]int64, bp.size)
	}
}

// PutBuffer returns a buffer to the pool. Buffers of the wrong capacity are
// dropped.
func (bp *BufferPool) PutBuffer(buf []int64) {
	if cap(buf) != bp.size {
		return
	}
	select {
	case bp.buffers <- buf[:bp.size]:
	default:
		// Pool full, let GC handle it
	}
}
