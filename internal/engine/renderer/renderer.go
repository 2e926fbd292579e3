// Package renderer draws the overlay scene with OpenGL: a depth pass
// into the sun's shadow map, then a lit pass over the host map. The
// overlay never clears the color buffer — the host's rendered frame is
// the background.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/verdantcity/sunshade/internal/engine/object"
	"github.com/verdantcity/sunshade/internal/engine/perf"
	"github.com/verdantcity/sunshade/internal/engine/scenegraph"
	"github.com/verdantcity/sunshade/internal/engine/shader"
	"github.com/verdantcity/sunshade/internal/engine/shadow"
	"github.com/verdantcity/sunshade/pkg/math"
)

// FrameInput is everything one frame needs from the camera, lighting and
// config layers.
type FrameInput struct {
	ViewProjection    math.Mat4
	SunViewProjection math.Mat4
	SunDirection      math.Vec3
	SunColor          [3]float32
	SunIntensity      float32
	Ambient           [3]float32
	ShadowsEnabled    bool
}

// Renderer owns the GL programs and the shadow map.
// Initialize must run on the goroutine holding the GL context.
type Renderer struct {
	log *zap.Logger

	lit          *shader.Program
	litInstanced *shader.Program
	depth        *shader.Program
	depthInst    *shader.Program

	shadowMap *shadow.Map

	initialized bool
	disposed    bool
}

// New creates a renderer. No GL calls happen until Initialize.
func New(log *zap.Logger) *Renderer {
	return &Renderer{log: log}
}

// Initialize loads GL, compiles the overlay programs and allocates the
// shadow map. Failure leaves the renderer uninitialized and retryable.
func (r *Renderer) Initialize(shadowResolution int32) error {
	if r.initialized {
		return nil
	}
	if err := gl.Init(); err != nil {
		return fmt.Errorf("initialize OpenGL: %w", err)
	}
	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	programs := []struct {
		dst        **shader.Program
		name       string
		vert, frag string
	}{
		{&r.lit, "lit", litVertexSrc, litFragmentSrc},
		{&r.litInstanced, "lit-instanced", litInstancedVertexSrc, litFragmentSrc},
		{&r.depth, "depth", depthVertexSrc, depthFragmentSrc},
		{&r.depthInst, "depth-instanced", depthInstancedVertexSrc, depthFragmentSrc},
	}
	for _, p := range programs {
		prog, err := shader.NewProgram(p.vert, p.frag)
		if err != nil {
			r.releasePrograms()
			return fmt.Errorf("compile %s program: %w", p.name, err)
		}
		*p.dst = prog
	}

	r.shadowMap = shadow.NewMap(shadowResolution)
	if !r.shadowMap.IsValid() {
		r.releasePrograms()
		r.shadowMap = nil
		return fmt.Errorf("allocate %d texel shadow map", shadowResolution)
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)

	r.initialized = true
	return nil
}

// ShadowMap returns the depth target, for the lighting manager to
// resize on quality changes.
func (r *Renderer) ShadowMap() *shadow.Map { return r.shadowMap }

// Render draws one frame: shadow depth pass, then the lit pass on top of
// the host's frame. Only the depth buffer is cleared; the host's color
// buffer is left untouched. Returns per-frame draw statistics.
func (r *Renderer) Render(scene *scenegraph.Manager, in FrameInput) perf.FrameStats {
	var stats perf.FrameStats
	if !r.initialized || r.disposed {
		return stats
	}

	if in.ShadowsEnabled {
		r.shadowPass(scene, in, &stats)
	}
	r.litPass(scene, in, &stats)
	return stats
}

func (r *Renderer) shadowPass(scene *scenegraph.Manager, in FrameInput, stats *perf.FrameStats) {
	r.shadowMap.Bind()
	defer r.shadowMap.Unbind()

	r.depth.Use()
	r.depth.SetMat4("uSunViewProjection", in.SunViewProjection)
	r.depthInst.Use()
	r.depthInst.SetMat4("uSunViewProjection", in.SunViewProjection)

	for _, g := range scenegraph.Groups {
		if !scene.IsGroupVisible(g) {
			continue
		}
		scene.TraverseGroup(g, func(obj object.Renderable) {
			if !obj.IsVisible() {
				return
			}
			switch m := obj.(type) {
			case *object.Mesh:
				if m.CastShadow {
					r.depth.Use()
					r.depth.SetMat4("uModel", m.Transform)
					m.Geometry.EnsureUploaded()
					m.Geometry.Draw()
					stats.DrawCalls++
				}
			case *object.InstancedMesh:
				if m.CastShadow {
					r.depthInst.Use()
					m.Sync()
					m.Draw()
					stats.DrawCalls++
				}
			}
		})
	}
}

func (r *Renderer) litPass(scene *scenegraph.Manager, in FrameInput, stats *perf.FrameStats) {
	gl.Clear(gl.DEPTH_BUFFER_BIT)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	defer gl.Disable(gl.BLEND)

	r.shadowMap.BindTexture(gl.TEXTURE1)

	apply := func(p *shader.Program, mat *object.Material) {
		p.SetColor("uColor", mat.Color)
		p.SetFloat("uOpacity", mat.Opacity)
	}
	for _, p := range []*shader.Program{r.lit, r.litInstanced} {
		p.Use()
		p.SetMat4("uViewProjection", in.ViewProjection)
		p.SetMat4("uSunViewProjection", in.SunViewProjection)
		p.SetVec3("uSunDirection", in.SunDirection)
		p.SetColor("uSunColor", in.SunColor)
		p.SetFloat("uSunIntensity", in.SunIntensity)
		p.SetColor("uAmbient", in.Ambient)
		p.SetInt("uShadowMap", 1)
		if in.ShadowsEnabled {
			p.SetFloat("uShadowsEnabled", 1)
		} else {
			p.SetFloat("uShadowsEnabled", 0)
		}
	}

	// Groups draw in fixed order, terrain first, so shadow receivers lay
	// down depth before the content above them.
	for _, g := range scenegraph.Groups {
		if !scene.IsGroupVisible(g) {
			continue
		}
		scene.TraverseGroup(g, func(obj object.Renderable) {
			if !obj.IsVisible() {
				return
			}
			switch m := obj.(type) {
			case *object.Mesh:
				r.lit.Use()
				r.lit.SetMat4("uModel", m.Transform)
				apply(r.lit, m.Material)
				m.Geometry.EnsureUploaded()
				m.Geometry.Draw()
				stats.DrawCalls++
				stats.Triangles += m.Geometry.TriangleCount()
				stats.Objects++
			case *object.InstancedMesh:
				r.litInstanced.Use()
				apply(r.litInstanced, m.Material)
				m.Sync()
				m.Draw()
				stats.DrawCalls++
				stats.Triangles += m.Geometry.TriangleCount() * m.Count()
				stats.Objects += m.Count()
			}
		})
	}
}

func (r *Renderer) releasePrograms() {
	for _, p := range []*shader.Program{r.lit, r.litInstanced, r.depth, r.depthInst} {
		if p != nil {
			p.Delete()
		}
	}
	r.lit, r.litInstanced, r.depth, r.depthInst = nil, nil, nil, nil
}

// Dispose releases programs and the shadow map. Safe to call more than
// once.
func (r *Renderer) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	if r.initialized {
		r.releasePrograms()
		if r.shadowMap != nil {
			r.shadowMap.Destroy()
			r.shadowMap = nil
		}
		r.initialized = false
	}
}
