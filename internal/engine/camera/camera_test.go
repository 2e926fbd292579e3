package camera

import (
	"testing"

	"github.com/verdantcity/sunshade/pkg/math"
)

func almostEqual(a, b math.Vec3, eps float32) bool {
	return a.Distance(b) < eps
}

func TestPositionDerivedFromPerspectiveMatrix(t *testing.T) {
	tests := []struct {
		name string
		eye  math.Vec3
	}{
		{"above origin", math.Vec3{X: 0, Y: 500, Z: 0.1}},
		{"oblique", math.Vec3{X: 300, Y: 200, Z: -150}},
		{"low angle", math.Vec3{X: -50, Y: 30, Z: 400}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj := math.Perspective(1.0, 16.0/9.0, 1, 5000)
			view := math.LookAt(tt.eye, math.Vec3{}, math.Vec3{Y: 1})
			vp := proj.Mul(view)

			c := New()
			c.SetViewProjection([16]float32(vp))

			if !almostEqual(c.Position(), tt.eye, 0.5) {
				t.Errorf("derived position %v, want %v", c.Position(), tt.eye)
			}
		})
	}
}

func TestPositionNotCachedAcrossFrames(t *testing.T) {
	proj := math.Perspective(1.0, 1.0, 1, 1000)

	c := New()

	eyeA := math.Vec3{X: 100, Y: 50, Z: 0.1}
	c.SetViewProjection([16]float32(proj.Mul(math.LookAt(eyeA, math.Vec3{}, math.Vec3{Y: 1}))))
	posA := c.Position()

	eyeB := math.Vec3{X: -200, Y: 80, Z: 0.1}
	c.SetViewProjection([16]float32(proj.Mul(math.LookAt(eyeB, math.Vec3{}, math.Vec3{Y: 1}))))
	posB := c.Position()

	if !almostEqual(posA, eyeA, 0.5) || !almostEqual(posB, eyeB, 0.5) {
		t.Errorf("positions %v, %v; want %v, %v", posA, posB, eyeA, eyeB)
	}
}

func TestOrthographicFallback(t *testing.T) {
	proj := math.Ortho(-100, 100, -100, 100, 1, 1000)
	view := math.LookAt(math.Vec3{Y: 200, Z: 0.1}, math.Vec3{}, math.Vec3{Y: 1})

	c := New()
	c.SetViewProjection([16]float32(proj.Mul(view)))

	// No unique eye for ortho; the fallback must still return a finite
	// point roughly on the view axis above the scene.
	p := c.Position()
	if p.Y <= 0 {
		t.Errorf("ortho fallback position %v should sit above the scene", p)
	}
}

func TestFrustumMatchesMatrix(t *testing.T) {
	eye := math.Vec3{Y: 100, Z: 0.1}
	proj := math.Perspective(1.0, 1.0, 1, 500)
	view := math.LookAt(eye, math.Vec3{}, math.Vec3{Y: 1})

	c := New()
	c.SetViewProjection([16]float32(proj.Mul(view)))

	if !c.Frustum().ContainsSphere(math.Vec3{}, 5, 0) {
		t.Error("look-at target should be inside the frustum")
	}
	if c.Frustum().ContainsSphere(math.Vec3{Y: 100, Z: 2000}, 5, 0) {
		t.Error("point far behind the camera should be outside the frustum")
	}
}
