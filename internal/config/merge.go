package config

// Partial is a sparse runtime config update. Every field is optional:
// nil means "leave the current value".
type Partial struct {
	ShadowsEnabled     *bool
	ShadowQuality      *string
	AmbientIntensity   *float32
	SunIntensity       *float32
	MaxTrees           *int
	MaxBuildings       *int
	CullingEnabled     *bool
	CullingMaxDistance *float32
	FrustumPadding     *float32
	LODHighDistance    *float32
	LODMediumDistance  *float32
	LODLowDistance     *float32
	AdaptiveLOD        *bool
	TargetFPS          *float64
	MinFPS             *float64
}

// Merge applies a Partial on top of a base Config and returns the result.
//
// The merge is total: the precedence rule for every field is the same and
// stated here once. A nil Partial field keeps the base value; a non-nil
// field replaces it, even when the pointed-to value equals the zero value
// (so "set max distance to 0" and "don't touch max distance" are distinct).
// Fields of Config not present in Partial (display, performance sampling,
// logging) are fixed at initialize time and never merged.
func Merge(base Config, p Partial) Config {
	out := base

	if p.ShadowsEnabled != nil {
		out.Shadows.Enabled = *p.ShadowsEnabled
	}
	if p.ShadowQuality != nil {
		out.Shadows.Quality = *p.ShadowQuality
	}
	if p.AmbientIntensity != nil {
		out.Lighting.AmbientIntensity = *p.AmbientIntensity
	}
	if p.SunIntensity != nil {
		out.Lighting.SunIntensity = *p.SunIntensity
	}
	if p.MaxTrees != nil {
		out.Limits.MaxTrees = *p.MaxTrees
	}
	if p.MaxBuildings != nil {
		out.Limits.MaxBuildings = *p.MaxBuildings
	}
	if p.CullingEnabled != nil {
		out.Culling.Enabled = *p.CullingEnabled
	}
	if p.CullingMaxDistance != nil {
		out.Culling.MaxDistance = *p.CullingMaxDistance
	}
	if p.FrustumPadding != nil {
		out.Culling.FrustumPadding = *p.FrustumPadding
	}
	if p.LODHighDistance != nil {
		out.LOD.HighDistance = *p.LODHighDistance
	}
	if p.LODMediumDistance != nil {
		out.LOD.MediumDistance = *p.LODMediumDistance
	}
	if p.LODLowDistance != nil {
		out.LOD.LowDistance = *p.LODLowDistance
	}
	if p.AdaptiveLOD != nil {
		out.LOD.Adaptive = *p.AdaptiveLOD
	}
	if p.TargetFPS != nil {
		out.LOD.TargetFPS = *p.TargetFPS
	}
	if p.MinFPS != nil {
		out.LOD.MinFPS = *p.MinFPS
	}

	return out
}

// Ptr returns a pointer to v, for building Partial literals.
func Ptr[T any](v T) *T {
	return &v
}
