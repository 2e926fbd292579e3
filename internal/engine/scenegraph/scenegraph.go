// Package scenegraph organizes renderables into exclusive named groups.
package scenegraph

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/verdantcity/sunshade/internal/engine/object"
	"github.com/verdantcity/sunshade/internal/logger"
	"github.com/verdantcity/sunshade/pkg/math"
)

// Group names the scene's content buckets.
type Group string

// The fixed set of scene groups. Every renderable lives in exactly one.
const (
	GroupVegetation Group = "vegetation"
	GroupBuildings  Group = "buildings"
	GroupTerrain    Group = "terrain"
	GroupLights     Group = "lights"
	GroupHelpers    Group = "helpers"
	GroupEffects    Group = "effects"
)

// Groups lists all groups in render order: terrain first so everything
// else composites over the ground.
var Groups = []Group{GroupTerrain, GroupBuildings, GroupVegetation, GroupLights, GroupHelpers, GroupEffects}

// Stats summarizes one group.
type Stats struct {
	Objects int
	Visible int
}

type group struct {
	children []object.Renderable
	count    int
	visible  bool
}

// Manager owns the scene's groups. Each renderable belongs to at most
// one group at a time; the group that holds it owns its disposal on
// ClearGroup. Not safe for concurrent use: the frame loop is the only
// mutator.
type Manager struct {
	log      *zap.Logger
	groups   map[Group]*group
	owner    map[object.Renderable]Group
	disposed bool
}

// NewManager creates a manager with all groups present and visible.
func NewManager() *Manager {
	m := &Manager{
		log:    logger.Named("scenegraph"),
		groups: make(map[Group]*group, len(Groups)),
		owner:  make(map[object.Renderable]Group),
	}
	for _, g := range Groups {
		m.groups[g] = &group{visible: true}
	}
	return m
}

// AddToGroup adds a renderable to a group. Fails if the group name is
// unknown or the object already lives in a group.
func (m *Manager) AddToGroup(g Group, r object.Renderable) error {
	grp, ok := m.groups[g]
	if !ok {
		return fmt.Errorf("unknown scene group %q", g)
	}
	if prev, exists := m.owner[r]; exists {
		return fmt.Errorf("object already in group %q", prev)
	}
	grp.children = append(grp.children, r)
	grp.count++
	m.owner[r] = g
	return nil
}

// AddMultipleToGroup adds a batch, stopping at the first failure.
func (m *Manager) AddMultipleToGroup(g Group, rs []object.Renderable) error {
	for _, r := range rs {
		if err := m.AddToGroup(g, r); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFromGroup detaches a renderable WITHOUT disposing it; the caller
// takes ownership back. Returns false if the object is not in the group.
func (m *Manager) RemoveFromGroup(g Group, r object.Renderable) bool {
	grp, ok := m.groups[g]
	if !ok || m.owner[r] != g {
		return false
	}
	for i, c := range grp.children {
		if c == r {
			grp.children = append(grp.children[:i], grp.children[i+1:]...)
			grp.count--
			delete(m.owner, r)
			return true
		}
	}
	return false
}

// ClearGroup disposes every child's geometry and material, then detaches
// them. Removed objects must not be reused afterward.
func (m *Manager) ClearGroup(g Group) {
	grp, ok := m.groups[g]
	if !ok {
		return
	}
	for _, c := range grp.children {
		c.Dispose()
		delete(m.owner, c)
	}
	if len(grp.children) > 0 {
		m.log.Debug("group cleared", zap.String("group", string(g)), zap.Int("objects", len(grp.children)))
	}
	grp.children = nil
	grp.count = 0
}

// GroupInfo is a read-only view of one group.
type GroupInfo struct {
	Name     Group
	Children []object.Renderable
	Visible  bool
	Count    int
}

// GetGroup returns a snapshot of a group: children, visibility, and
// count. The second return is false for unknown group names.
func (m *Manager) GetGroup(g Group) (GroupInfo, bool) {
	grp, ok := m.groups[g]
	if !ok {
		return GroupInfo{}, false
	}
	children := make([]object.Renderable, len(grp.children))
	copy(children, grp.children)
	return GroupInfo{Name: g, Children: children, Visible: grp.visible, Count: grp.count}, true
}

// GetGroupObjects returns a copy of the group's child list.
func (m *Manager) GetGroupObjects(g Group) []object.Renderable {
	grp, ok := m.groups[g]
	if !ok {
		return nil
	}
	out := make([]object.Renderable, len(grp.children))
	copy(out, grp.children)
	return out
}

// SetGroupVisible toggles whole-group visibility. Per-object visibility
// (owned by culling) is left untouched.
func (m *Manager) SetGroupVisible(g Group, visible bool) {
	if grp, ok := m.groups[g]; ok {
		grp.visible = visible
	}
}

// IsGroupVisible reports whole-group visibility.
func (m *Manager) IsGroupVisible(g Group) bool {
	grp, ok := m.groups[g]
	return ok && grp.visible
}

// GetGroupStats returns per-group object and visible counts.
func (m *Manager) GetGroupStats() map[Group]Stats {
	out := make(map[Group]Stats, len(m.groups))
	for name, grp := range m.groups {
		s := Stats{Objects: grp.count}
		for _, c := range grp.children {
			if c.IsVisible() {
				s.Visible++
			}
		}
		out[name] = s
	}
	return out
}

// GetTotalObjectCount returns the number of objects across all groups.
func (m *Manager) GetTotalObjectCount() int {
	total := 0
	for _, grp := range m.groups {
		total += grp.count
	}
	return total
}

// TransformGroup applies a transform to every child of a group.
func (m *Manager) TransformGroup(g Group, t math.Mat4) {
	grp, ok := m.groups[g]
	if !ok {
		return
	}
	for _, c := range grp.children {
		c.ApplyTransform(t)
	}
}

// TraverseGroup visits every child of a group in insertion order.
func (m *Manager) TraverseGroup(g Group, fn func(object.Renderable)) {
	grp, ok := m.groups[g]
	if !ok {
		return
	}
	for _, c := range grp.children {
		fn(c)
	}
}

// Dispose clears every group. Idempotent.
func (m *Manager) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	for _, g := range Groups {
		m.ClearGroup(g)
	}
}
