package math

import "testing"

func TestIntersectsAABB(t *testing.T) {
	proj := Perspective(1.0, 1.0, 0.1, 1000)
	view := LookAt(Vec3{}, Vec3{Z: -1}, Vec3{Y: 1})
	f := FrustumFromMatrix(proj.Mul(view))

	tests := []struct {
		name     string
		min, max Vec3
		margin   float32
		want     bool
	}{
		{"in front", Vec3{-10, -10, -110}, Vec3{10, 10, -90}, 0, true},
		{"behind", Vec3{-10, -10, 90}, Vec3{10, 10, 110}, 0, false},
		{"straddles near plane", Vec3{-10, -10, -10}, Vec3{10, 10, 10}, 0, true},
		{"far left", Vec3{-300, -10, -110}, Vec3{-200, 10, -90}, 0, false},
		{"far left with margin", Vec3{-300, -10, -110}, Vec3{-200, 10, -90}, 200, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.IntersectsAABB(tt.min, tt.max, tt.margin); got != tt.want {
				t.Errorf("IntersectsAABB(%v, %v, %v) = %v, want %v", tt.min, tt.max, tt.margin, got, tt.want)
			}
		})
	}
}
