// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

// CompletionToken represents one submitted batch of GPU work. Wait blocks
// until the GPU has finished everything up to and including that submission.
// A token is waited on exactly once before its transient resources
// (uniform slots, command buffers, instance buffers) may be reused.
type CompletionToken interface {

	// Wait blocks until the represented work has completed on the GPU.
	Wait() error

	// Release frees the token's backing synchronization object. Only valid
	// after Wait has returned.
	Release()
}

// FrameRing holds one completion token per frame in flight, indexed by
// frame number modulo the ring size. It replaces a single mutable
// previous-frame future: each in-flight frame owns its slot, so frame N+k
// (k = frames in flight) waits on frame N's token and no other.
type FrameRing struct {
	tokens []CompletionToken
}

// NewFrameRing creates a ring for the given number of frames in flight.
// Sizes below one are brought up to one.
func NewFrameRing(framesInFlight int) *FrameRing {
	if framesInFlight < 1 {
		framesInFlight = 1
	}
	return &FrameRing{
		tokens: make([]CompletionToken, framesInFlight),
	}
}

// InFlight returns the ring size.
func (r *FrameRing) InFlight() int {
	return len(r.tokens)
}

// Begin prepares the slot for the given frame number: it waits for and
// releases the token left by the frame that previously used this slot.
// The first pass over the ring has empty slots and returns immediately.
func (r *FrameRing) Begin(frame uint64) error {
	slot := frame % uint64(len(r.tokens))
	token := r.tokens[slot]
	if token == nil {
		return nil
	}

	if err := token.Wait(); err != nil {
		return err
	}
	token.Release()
	r.tokens[slot] = nil
	return nil
}

// End stores the submission token for the given frame number. Begin must
// have been called for the same frame first, so the slot is empty.
func (r *FrameRing) End(frame uint64, token CompletionToken) {
	r.tokens[frame%uint64(len(r.tokens))] = token
}

// WaitIdle waits for and releases every outstanding token. Used only at
// shutdown, before any GPU object referenced by in-flight work is destroyed.
func (r *FrameRing) WaitIdle() error {
	for i, token := range r.tokens {
		if token == nil {
			continue
		}
		if err := token.Wait(); err != nil {
			return err
		}
		token.Release()
		r.tokens[i] = nil
	}
	return nil
}
