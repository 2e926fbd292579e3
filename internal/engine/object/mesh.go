package object

import (
	"github.com/verdantcity/sunshade/pkg/math"
)

// Renderable is anything the scene graph can hold and the renderer can
// draw: a single mesh or an instanced mesh.
type Renderable interface {
	IsVisible() bool
	SetVisible(visible bool)
	WorldPosition() math.Vec3
	BoundingRadius() float32
	ApplyTransform(m math.Mat4)
	Dispose()
}

// Mesh is one geometry + material pair placed in the world.
type Mesh struct {
	ID       string
	Geometry *Geometry
	Material *Material

	Transform math.Mat4
	Position  math.Vec3
	Radius    float32

	CastShadow    bool
	ReceiveShadow bool

	visible  bool
	disposed bool
}

// NewMesh creates a visible mesh at the origin.
func NewMesh(id string, g *Geometry, m *Material) *Mesh {
	return &Mesh{
		ID:        id,
		Geometry:  g,
		Material:  m,
		Transform: math.Identity(),
		visible:   true,
	}
}

// SetPosition places the mesh and updates its transform translation.
func (m *Mesh) SetPosition(p math.Vec3) {
	m.Position = p
	m.Transform[12] = p.X
	m.Transform[13] = p.Y
	m.Transform[14] = p.Z
}

// IsVisible reports whether the mesh should be drawn.
func (m *Mesh) IsVisible() bool { return m.visible }

// SetVisible sets draw eligibility.
func (m *Mesh) SetVisible(visible bool) { m.visible = visible }

// WorldPosition returns the mesh center used for culling.
func (m *Mesh) WorldPosition() math.Vec3 { return m.Position }

// BoundingRadius returns the culling sphere radius.
func (m *Mesh) BoundingRadius() float32 { return m.Radius }

// ApplyTransform pre-multiplies an additional transform.
func (m *Mesh) ApplyTransform(t math.Mat4) {
	m.Transform = t.Mul(m.Transform)
	m.Position = t.TransformPoint(m.Position)
}

// Dispose releases the mesh's geometry and material references.
// Safe to call more than once.
func (m *Mesh) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	if m.Geometry != nil {
		m.Geometry.Dispose()
	}
	if m.Material != nil {
		m.Material.Dispose()
	}
}
