// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

// TargetState tracks whether the presentation target matches the surface.
type TargetState int

// Presentation target states.
const (
	// TargetValid means framebuffers match the current swapchain and drawing
	// may proceed.
	TargetValid TargetState = iota

	// TargetStale means the swapchain no longer matches the surface, after a
	// resize or an out-of-date signal. Drawing while stale is a logic error;
	// the target must be recreated first.
	TargetStale
)

// Surface produces and destroys the presentation chain and its render
// targets. Implementations own the real swapchain, framebuffer and
// attachment handles; PresentTarget only sequences their lifecycle.
type Surface interface {

	// CreateChain builds a swapchain for the extent, replacing any previous
	// chain, and returns the image count. Returns ErrUnsupportedDimensions
	// for unusable extents.
	CreateChain(extent Extent) (int, error)

	// CreateTargets builds one framebuffer per swapchain image, plus any
	// multisample and depth attachments, against the extent.
	CreateTargets(imageCount int, extent Extent) error

	// DestroyTargets tears down all framebuffers and their attachments.
	// Must tolerate being called with nothing built.
	DestroyTargets()

	// DestroyChain tears down the swapchain itself.
	DestroyChain()

	// Acquire obtains the next presentable image index. Returns
	// ErrSwapchainOutOfDate when the chain no longer matches the surface.
	Acquire() (uint32, error)

	// Present queues the image for presentation. Returns
	// ErrSwapchainOutOfDate when the chain no longer matches the surface.
	Present(imageIndex uint32) error
}

// PresentTarget drives the Valid/Stale lifecycle of a presentation surface:
// resize or out-of-date marks it stale, recreation rebuilds the chain and
// targets against the new extent before the next frame draws.
type PresentTarget struct {
	surface Surface

	state      TargetState
	extent     Extent
	imageCount int
}

// NewPresentTarget builds the initial chain and targets for the extent.
func NewPresentTarget(s Surface, extent Extent) (*PresentTarget, error) {
	t := &PresentTarget{
		surface: s,
		state:   TargetStale,
		extent:  extent,
	}
	if err := t.Recreate(); err != nil {
		return nil, err
	}
	return t, nil
}

// State returns the current lifecycle state.
func (t *PresentTarget) State() TargetState {
	return t.state
}

// Extent returns the extent the target was last asked to match.
func (t *PresentTarget) Extent() Extent {
	return t.extent
}

// ImageCount returns the swapchain image count of the current chain.
// Framebuffer count always equals this.
func (t *PresentTarget) ImageCount() int {
	return t.imageCount
}

// Invalidate marks the target stale for a new extent. Called on resize
// notifications; the actual rebuild happens on the next AcquireNext.
func (t *PresentTarget) Invalidate(extent Extent) {
	t.extent = extent
	t.state = TargetStale
}

// Recreate tears down the previous targets and rebuilds chain and targets
// against the current extent. On ErrUnsupportedDimensions the target stays
// stale and the caller skips the frame.
func (t *PresentTarget) Recreate() error {
	t.surface.DestroyTargets()

	count, err := t.surface.CreateChain(t.extent)
	if err != nil {
		return err
	}

	if err := t.surface.CreateTargets(count, t.extent); err != nil {
		return err
	}

	t.imageCount = count
	t.state = TargetValid
	return nil
}

// AcquireNext returns the next presentable image index, recreating the
// target first if it is stale. An out-of-date result marks the target stale
// and is returned for the caller to skip the frame.
func (t *PresentTarget) AcquireNext() (uint32, error) {
	if t.state == TargetStale {
		if err := t.Recreate(); err != nil {
			return 0, err
		}
	}

	idx, err := t.surface.Acquire()
	if err == ErrSwapchainOutOfDate {
		t.state = TargetStale
		return 0, err
	}
	return idx, err
}

// PresentIndex presents the acquired image. An out-of-date result marks the
// target stale and is swallowed; the next frame recreates and retries.
func (t *PresentTarget) PresentIndex(imageIndex uint32) error {
	err := t.surface.Present(imageIndex)
	if err == ErrSwapchainOutOfDate {
		t.state = TargetStale
		return nil
	}
	return err
}

// Destroy tears down targets and chain. The device must be idle.
func (t *PresentTarget) Destroy() {
	t.surface.DestroyTargets()
	t.surface.DestroyChain()
}
