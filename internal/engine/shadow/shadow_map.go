// Package shadow provides directional-light shadow mapping.
package shadow

import (
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Map is a depth-only framebuffer rendered from the sun's viewpoint.
type Map struct {
	FBO          uint32
	DepthTexture uint32
	resolution   int32
	prevViewport [4]int32
}

// NewMap creates a shadow map at the given resolution (width = height).
// Returns nil if the framebuffer is incomplete on this GPU.
func NewMap(resolution int32) *Map {
	sm := &Map{}
	if !sm.allocate(resolution) {
		return nil
	}
	return sm
}

func (sm *Map) allocate(resolution int32) bool {
	sm.resolution = resolution

	gl.GenFramebuffers(1, &sm.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, sm.FBO)

	gl.GenTextures(1, &sm.DepthTexture)
	gl.BindTexture(gl.TEXTURE_2D, sm.DepthTexture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24, resolution, resolution, 0,
		gl.DEPTH_COMPONENT, gl.FLOAT, nil)

	// The lit pass samples raw depth through a plain sampler2D and does
	// its own PCF, so the texture must stay in depth mode: no compare
	// mode, nearest filtering.
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)

	// White border so geometry outside the sun frustum reads as lit.
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	borderColor := []float32{1.0, 1.0, 1.0, 1.0}
	gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &borderColor[0])

	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, sm.DepthTexture, 0)

	// Depth-only pass, no color buffers.
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)

	ok := gl.CheckFramebufferStatus(gl.FRAMEBUFFER) == gl.FRAMEBUFFER_COMPLETE

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if !ok {
		sm.Destroy()
	}
	return ok
}

// Resolution returns the current shadow map size in texels.
func (sm *Map) Resolution() int32 {
	return sm.resolution
}

// Resize destroys the existing depth texture and framebuffer BEFORE
// allocating at the new resolution, so quality switches never leak GPU
// memory. A same-size resize is a no-op.
func (sm *Map) Resize(resolution int32) {
	if resolution == sm.resolution {
		return
	}
	sm.Destroy()
	sm.allocate(resolution)
}

// Bind targets the shadow map for the depth pass and sets its viewport.
func (sm *Map) Bind() {
	gl.GetIntegerv(gl.VIEWPORT, &sm.prevViewport[0])

	gl.BindFramebuffer(gl.FRAMEBUFFER, sm.FBO)
	gl.Viewport(0, 0, sm.resolution, sm.resolution)
	gl.Clear(gl.DEPTH_BUFFER_BIT)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	// Front-face culling reduces shadow acne on closed volumes.
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.FRONT)
}

// Unbind restores the default framebuffer, viewport, and culling.
func (sm *Map) Unbind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(sm.prevViewport[0], sm.prevViewport[1], sm.prevViewport[2], sm.prevViewport[3])
	gl.CullFace(gl.BACK)
	gl.Disable(gl.CULL_FACE)
}

// BindTexture binds the depth texture for sampling in the main pass.
func (sm *Map) BindTexture(textureUnit uint32) {
	gl.ActiveTexture(textureUnit)
	gl.BindTexture(gl.TEXTURE_2D, sm.DepthTexture)
}

// Destroy releases the framebuffer and depth texture. Safe to call twice.
func (sm *Map) Destroy() {
	if sm.FBO != 0 {
		gl.DeleteFramebuffers(1, &sm.FBO)
		sm.FBO = 0
	}
	if sm.DepthTexture != 0 {
		gl.DeleteTextures(1, &sm.DepthTexture)
		sm.DepthTexture = 0
	}
}

// IsValid reports whether the shadow map allocated successfully.
func (sm *Map) IsValid() bool {
	return sm != nil && sm.FBO != 0 && sm.DepthTexture != 0
}
