// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

// FrameReader reassembles frames from a Transport. The wire carries no length
// prefix; the size is inferred from the discriminator and the bytes after it.
// A header whose frame has not fully arrived is held until the rest does.
type FrameReader struct {
	t          Transport
	held       []byte
	shortReads int
	resyncs    uint64
}

// NewFrameReader creates a reader over t.
func NewFrameReader(t Transport) *FrameReader {
	return &FrameReader{t: t}
}

// Resyncs returns how many bytes were discarded to recover the stream.
func (r *FrameReader) Resyncs() uint64 {
	return r.resyncs
}

// Buffered returns the bytes not yet returned as part of a frame, counting
// both a held header and what the transport still has.
func (r *FrameReader) Buffered() int {
	return len(r.held) + r.t.Available()
}

// ReadFrame reads at most one frame. It returns an empty frame until the whole
// frame has been buffered; after five such attempts in a row one byte is
// consumed and returned on its own so a desynchronized stream can recover.
func (r *FrameReader) ReadFrame() *Frame {
	if r.Buffered() == 0 {
		return NewEmptyFrame()
	}

	id := r.peek()
	if id == AckByte || id == IdleByte {
		return NewByteFrame(r.take(1)[0])
	}

	if !r.fill(HeaderSize) {
		return r.wait()
	}
	size := FrameSize(r.held[:HeaderSize])
	if !r.fill(size) {
		return r.wait()
	}
	r.shortReads = 0
	return NewFrame(r.take(size))
}

// wait counts an attempt that found too few bytes and gives up on the first
// byte once the limit is reached.
func (r *FrameReader) wait() *Frame {
	if r.shortReads < maxShortReads {
		r.shortReads++
		return NewEmptyFrame()
	}
	r.shortReads = 0
	r.resyncs++
	return NewByteFrame(r.take(1)[0])
}

func (r *FrameReader) peek() byte {
	if len(r.held) > 0 {
		return r.held[0]
	}
	return r.t.Peek()
}

// fill moves bytes from the transport into held until it has n of them. It
// moves nothing and reports false when the transport cannot supply them all.
func (r *FrameReader) fill(n int) bool {
	need := n - len(r.held)
	if need <= 0 {
		return true
	}
	if r.t.Available() < need {
		return false
	}
	buf := make([]byte, need)
	r.t.ReadBlock(buf)
	r.held = append(r.held, buf...)
	return true
}

// take removes n bytes, held ones first.
func (r *FrameReader) take(n int) []byte {
	out := make([]byte, n)
	c := copy(out, r.held)
	r.held = r.held[c:]
	if len(r.held) == 0 {
		r.held = nil
	}
	if c < n {
		r.t.ReadBlock(out[c:])
	}
	return out
}

// FrameSize returns the total frame size implied by its first eight bytes.
func FrameSize(header []byte) int {
	if len(header) < HeaderSize {
		return len(header)
	}
	switch {
	case header[0] == DiscInit:
		return HeaderSize + int(header[6])
	case header[0] == DiscSubscribe && header[1] == 0xFE && header[2] == 0x00:
		return SubscribeSize
	case header[0] == DiscState && header[1] == 0x0B:
		return ModeFrameSize
	case header[0] == DiscState && header[1] == 0x0F:
		return StatusSize
	}
	return HeaderSize
}
