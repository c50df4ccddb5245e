package token

import "sync"

// bytePool holds reusable byte slices for plaintext staging.
var bytePool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 512)
		return &b
	},
}

// sensitiveBuffer wraps a pooled slice that may hold plaintext.
type sensitiveBuffer struct {
	ptr *[]byte
	buf []byte
}

// acquireBuffer returns a zero-filled buffer of exactly size bytes.
func acquireBuffer(size int) *sensitiveBuffer {
	ptr := bytePool.Get().(*[]byte)
	buf := *ptr
	if cap(buf) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]
	clear(buf)
	return &sensitiveBuffer{ptr: ptr, buf: buf}
}

func (s *sensitiveBuffer) Bytes() []byte { return s.buf }

// Release zeros sensitive material and returns the buffer to the pool.
func (s *sensitiveBuffer) Release() {
	if s == nil || s.ptr == nil {
		return
	}
	clear(s.buf)
	*s.ptr = s.buf[:0]
	bytePool.Put(s.ptr)
	s.ptr = nil
}
