package vegetation

// Visual holds the per-species rendering constants used to size and
// color instanced tree meshes. Per-record height and canopy diameter
// refine individual instances.
type Visual struct {
	TrunkRadius      float32
	CanopyRadius     float32
	HeightMultiplier float32
	TrunkColor       [3]float32
	CanopyColor      [3]float32
}

var speciesTable = map[string]Visual{
	"oak": {
		TrunkRadius:      0.35,
		CanopyRadius:     4.0,
		HeightMultiplier: 1.0,
		TrunkColor:       [3]float32{0.36, 0.25, 0.16},
		CanopyColor:      [3]float32{0.22, 0.42, 0.15},
	},
	"pine": {
		TrunkRadius:      0.25,
		CanopyRadius:     2.2,
		HeightMultiplier: 1.15,
		TrunkColor:       [3]float32{0.32, 0.22, 0.14},
		CanopyColor:      [3]float32{0.12, 0.32, 0.16},
	},
	"birch": {
		TrunkRadius:      0.2,
		CanopyRadius:     2.8,
		HeightMultiplier: 1.0,
		TrunkColor:       [3]float32{0.85, 0.82, 0.78},
		CanopyColor:      [3]float32{0.35, 0.52, 0.2},
	},
	"maple": {
		TrunkRadius:      0.3,
		CanopyRadius:     3.5,
		HeightMultiplier: 0.95,
		TrunkColor:       [3]float32{0.4, 0.28, 0.18},
		CanopyColor:      [3]float32{0.3, 0.45, 0.12},
	},
	"linden": {
		TrunkRadius:      0.3,
		CanopyRadius:     3.2,
		HeightMultiplier: 1.0,
		TrunkColor:       [3]float32{0.38, 0.27, 0.17},
		CanopyColor:      [3]float32{0.28, 0.48, 0.18},
	},
}

var defaultVisual = Visual{
	TrunkRadius:      0.3,
	CanopyRadius:     3.0,
	HeightMultiplier: 1.0,
	TrunkColor:       [3]float32{0.37, 0.26, 0.16},
	CanopyColor:      [3]float32{0.25, 0.44, 0.16},
}

// VisualFor returns the rendering constants for a species tag, falling
// back to a generic deciduous look for unknown species.
func VisualFor(species string) Visual {
	if v, ok := speciesTable[species]; ok {
		return v
	}
	return defaultVisual
}
