package object

// Material describes how a mesh surface is shaded: a flat base color
// with Lambert sun lighting plus the shadow term.
//
// Materials are shared between meshes by the pipelines' material caches,
// with the same reference counting discipline as Geometry.
type Material struct {
	Color   [3]float32
	Opacity float32

	refs int
}

// NewMaterial creates an opaque material with the given color.
func NewMaterial(r, g, b float32) *Material {
	return &Material{Color: [3]float32{r, g, b}, Opacity: 1, refs: 1}
}

// Retain adds a reference and returns the same material.
func (m *Material) Retain() *Material {
	m.refs++
	return m
}

// Refs returns the current reference count.
func (m *Material) Refs() int {
	return m.refs
}

// Transparent reports whether the material needs blending.
func (m *Material) Transparent() bool {
	return m.Opacity < 1
}

// Dispose releases one reference. Extra calls are no-ops.
func (m *Material) Dispose() {
	if m.refs > 0 {
		m.refs--
	}
}
