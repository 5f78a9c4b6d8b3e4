// SPDX-License-Identifier: EPL-2.0

package audio

// Buffer is a fixed-capacity byte region with a valid-length prefix.
// It is reused for every transfer of an engine and must not be retained
// by callbacks past a single invocation.
type Buffer struct {
	data []byte
	n    int
}

// NewBuffer allocates a buffer with the given capacity in bytes.
func NewBuffer(size int) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// Data returns the whole backing region, for filling.
func (b *Buffer) Data() []byte { return b.data }

// Bytes returns the valid prefix.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Len is the number of valid bytes.
func (b *Buffer) Len() int { return b.n }

// Cap is the fixed capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// SetLen marks the first n bytes valid. n is clamped to [0, Cap].
func (b *Buffer) SetLen(n int) {
	b.n = max(0, min(n, len(b.data)))
}

// Reset marks the buffer empty.
func (b *Buffer) Reset() { b.n = 0 }
