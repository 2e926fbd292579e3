package object

import (
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/verdantcity/sunshade/pkg/math"
)

// InstancedMesh draws one base geometry many times with per-instance
// transforms in a single draw call. The visible instance count is set
// each frame by its owning pipeline; instances beyond Count are not drawn.
//
// The base geometry may be shared with other meshes, so per-instance GPU
// state (the transform buffer and the vertex array wiring it) lives here,
// never on the Geometry: two meshes over one geometry upload and draw
// independent instance sets.
type InstancedMesh struct {
	ID       string
	Geometry *Geometry
	Material *Material

	CastShadow    bool
	ReceiveShadow bool

	// transforms is packed column-major mat4 data, 16 floats per instance.
	transforms []float32
	count      int
	capacity   int
	dirty      bool

	// vao references the shared geometry's buffers plus this mesh's own
	// instance buffer, sized for capacity instances.
	vao         uint32
	instanceVBO uint32

	center math.Vec3
	radius float32

	visible  bool
	disposed bool
}

// NewInstancedMesh creates an instanced mesh with room for capacity instances.
func NewInstancedMesh(id string, g *Geometry, m *Material, capacity int) *InstancedMesh {
	return &InstancedMesh{
		ID:         id,
		Geometry:   g,
		Material:   m,
		transforms: make([]float32, 0, capacity*16),
		capacity:   capacity,
		visible:    true,
	}
}

// Reset clears all instances without releasing the buffer.
func (im *InstancedMesh) Reset() {
	im.transforms = im.transforms[:0]
	im.count = 0
	im.dirty = true
}

// Append adds one instance transform. Returns false when capacity is
// exhausted; the instance is skipped, not an error.
func (im *InstancedMesh) Append(t math.Mat4) bool {
	if im.count >= im.capacity {
		return false
	}
	im.transforms = append(im.transforms, t[:]...)
	im.count++
	im.dirty = true
	return true
}

// Count returns the current visible instance count.
func (im *InstancedMesh) Count() int { return im.count }

// Capacity returns the maximum instance count.
func (im *InstancedMesh) Capacity() int { return im.capacity }

// SetBounds sets the bounding sphere used when culling the whole batch.
func (im *InstancedMesh) SetBounds(center math.Vec3, radius float32) {
	im.center = center
	im.radius = radius
}

// Sync uploads pending instance data to the GPU if anything changed.
// Requires a current GL context.
func (im *InstancedMesh) Sync() {
	if !im.dirty || im.disposed {
		return
	}
	im.Geometry.EnsureUploaded()
	if !im.Geometry.Uploaded() {
		return
	}
	im.ensureBuffers()
	if len(im.transforms) > 0 {
		gl.BindBuffer(gl.ARRAY_BUFFER, im.instanceVBO)
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(im.transforms)*4, unsafe.Pointer(&im.transforms[0]))
		gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	}
	im.dirty = false
}

// ensureBuffers creates this mesh's vertex array and instance buffer on
// first use: the shared geometry's vertex/index buffers plus the mat4
// instance attribute at locations 2..5.
func (im *InstancedMesh) ensureBuffers() {
	if im.vao != 0 {
		return
	}

	gl.GenVertexArrays(1, &im.vao)
	gl.BindVertexArray(im.vao)

	im.Geometry.bindSharedBuffers()

	gl.GenBuffers(1, &im.instanceVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, im.instanceVBO)
	gl.BufferData(gl.ARRAY_BUFFER, im.capacity*16*4, nil, gl.DYNAMIC_DRAW)

	// A mat4 attribute occupies four consecutive vec4 locations.
	for i := uint32(0); i < 4; i++ {
		loc := 2 + i
		gl.VertexAttribPointer(loc, 4, gl.FLOAT, false, 16*4, unsafe.Pointer(uintptr(i*4*4)))
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribDivisor(loc, 1)
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
}

// Draw issues one instanced draw call for the current instance count.
// Sync must have run since the last transform change.
func (im *InstancedMesh) Draw() {
	if im.vao == 0 || im.count <= 0 || im.disposed {
		return
	}
	gl.BindVertexArray(im.vao)
	gl.DrawElementsInstanced(gl.TRIANGLES, int32(len(im.Geometry.Indices)), gl.UNSIGNED_INT, nil, int32(im.count))
	gl.BindVertexArray(0)
}

// IsVisible reports whether the batch should be drawn.
func (im *InstancedMesh) IsVisible() bool { return im.visible && im.count > 0 }

// SetVisible sets draw eligibility for the whole batch.
func (im *InstancedMesh) SetVisible(visible bool) { im.visible = visible }

// WorldPosition returns the batch bounding sphere center.
func (im *InstancedMesh) WorldPosition() math.Vec3 { return im.center }

// BoundingRadius returns the batch bounding sphere radius.
func (im *InstancedMesh) BoundingRadius() float32 { return im.radius }

// ApplyTransform shifts the batch bounds. Per-instance transforms are
// owned by the pipeline and rebuilt on the next update.
func (im *InstancedMesh) ApplyTransform(t math.Mat4) {
	im.center = t.TransformPoint(im.center)
}

// Dispose releases geometry and material references.
// Safe to call more than once.
func (im *InstancedMesh) Dispose() {
	if im.disposed {
		return
	}
	im.disposed = true
	if im.vao != 0 {
		gl.DeleteVertexArrays(1, &im.vao)
		gl.DeleteBuffers(1, &im.instanceVBO)
		im.vao, im.instanceVBO = 0, 0
	}
	if im.Geometry != nil {
		im.Geometry.Dispose()
	}
	if im.Material != nil {
		im.Material.Dispose()
	}
}
