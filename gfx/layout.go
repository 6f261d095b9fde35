// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

// ImageLayout tags the current GPU-enforced layout of an image. The layout
// gates which operations may legally access the image, so every consumer
// checks it before recording work against the image.
type ImageLayout int

// Image layouts known to the renderer.
const (
	LayoutUndefined ImageLayout = iota
	LayoutTransferDst
	LayoutShaderReadOnly
	LayoutColorAttachment
	LayoutDepthAttachment
	LayoutPresentSrc
)

func (l ImageLayout) String() string {
	switch l {
	case LayoutUndefined:
		return "Undefined"
	case LayoutTransferDst:
		return "TransferDst"
	case LayoutShaderReadOnly:
		return "ShaderReadOnly"
	case LayoutColorAttachment:
		return "ColorAttachment"
	case LayoutDepthAttachment:
		return "DepthAttachment"
	case LayoutPresentSrc:
		return "PresentSrc"
	}
	return "Unknown"
}

// ValidateTransition checks a requested layout transition against the closed
// set of supported edges. Sampled textures only ever move Undefined to
// TransferDst and TransferDst to ShaderReadOnly; every other edge is a fatal
// programming error, not a gap to fill in at runtime.
func ValidateTransition(from, to ImageLayout) error {
	if from == LayoutUndefined && to == LayoutTransferDst {
		return nil
	}
	if from == LayoutTransferDst && to == LayoutShaderReadOnly {
		return nil
	}
	return ErrUnsupportedTransition
}
