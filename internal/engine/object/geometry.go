// Package object provides the scene object model: geometry and material
// resources with explicit GPU lifecycles, meshes, and instanced meshes.
//
// Geometry data is built CPU-side (so pipelines and the geometry worker
// can run without a GL context) and uploaded lazily on first draw.
package object

import (
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// VertexStride is the number of floats per vertex: position (3) + normal (3).
const VertexStride = 6

// Geometry holds interleaved vertex data and its GPU buffers.
//
// Geometries may be shared between meshes via caches. Sharing is
// reference-counted: a holder that wants to keep a geometry alive calls
// Retain, and every holder calls Dispose exactly once. GPU buffers are
// freed when the last reference is released; Dispose past zero is a no-op.
type Geometry struct {
	Vertices []float32 // interleaved position+normal, VertexStride floats each
	Indices  []uint32

	vao, vbo, ebo uint32
	uploaded      bool
	refs          int
}

// NewGeometry creates a geometry from interleaved vertex data.
func NewGeometry(vertices []float32, indices []uint32) *Geometry {
	return &Geometry{
		Vertices: vertices,
		Indices:  indices,
		refs:     1,
	}
}

// Retain adds a reference and returns the same geometry.
func (g *Geometry) Retain() *Geometry {
	g.refs++
	return g
}

// Refs returns the current reference count.
func (g *Geometry) Refs() int {
	return g.refs
}

// TriangleCount returns the number of triangles.
func (g *Geometry) TriangleCount() int {
	return len(g.Indices) / 3
}

// Dispose releases one reference. GPU buffers are deleted when the last
// reference goes away. Extra calls are no-ops.
func (g *Geometry) Dispose() {
	if g.refs <= 0 {
		return
	}
	g.refs--
	if g.refs > 0 {
		return
	}
	if g.uploaded {
		gl.DeleteVertexArrays(1, &g.vao)
		gl.DeleteBuffers(1, &g.vbo)
		gl.DeleteBuffers(1, &g.ebo)
		g.uploaded = false
	}
}

// Uploaded reports whether GPU buffers exist for this geometry.
func (g *Geometry) Uploaded() bool {
	return g.uploaded
}

// EnsureUploaded creates the VAO/VBO/EBO on first use.
// Requires a current GL context.
func (g *Geometry) EnsureUploaded() {
	if g.uploaded || len(g.Vertices) == 0 {
		return
	}

	gl.GenVertexArrays(1, &g.vao)
	gl.BindVertexArray(g.vao)

	gl.GenBuffers(1, &g.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(g.Vertices)*4, unsafe.Pointer(&g.Vertices[0]), gl.STATIC_DRAW)

	gl.GenBuffers(1, &g.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(g.Indices)*4, unsafe.Pointer(&g.Indices[0]), gl.STATIC_DRAW)

	stride := int32(VertexStride * 4)

	// Position (location = 0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, nil)
	gl.EnableVertexAttribArray(0)

	// Normal (location = 1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, unsafe.Pointer(uintptr(3*4)))
	gl.EnableVertexAttribArray(1)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	g.uploaded = true
}

// Draw issues a single indexed draw call.
func (g *Geometry) Draw() {
	if !g.uploaded {
		return
	}
	gl.BindVertexArray(g.vao)
	gl.DrawElements(gl.TRIANGLES, int32(len(g.Indices)), gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

// bindSharedBuffers attaches the vertex and index buffers, with the
// position and normal attributes, to the currently bound VAO. Used by
// instanced meshes building their own vertex arrays over shared geometry.
func (g *Geometry) bindSharedBuffers() {
	stride := int32(VertexStride * 4)

	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, nil)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, unsafe.Pointer(uintptr(3*4)))
	gl.EnableVertexAttribArray(1)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
}
