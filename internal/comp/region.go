package comp

import (
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// newRegion creates a server-side region covering rects. The caller owns it.
func (m *Manager) newRegion(rects ...xproto.Rectangle) (xfixes.Region, error) {
	id, err := m.srv.NewID()
	if err != nil {
		return 0, allocError("region", err)
	}
	r := xfixes.Region(id)
	m.srv.CreateRegion(r, rects)
	return r, nil
}

// copyRegion returns a new region with the contents of src.
func (m *Manager) copyRegion(src xfixes.Region) (xfixes.Region, error) {
	r, err := m.newRegion()
	if err != nil {
		return 0, err
	}
	m.srv.CopyRegion(src, r)
	return r, nil
}

// surfaceRegion returns a new region covering the whole root surface.
func (m *Manager) surfaceRegion() (xfixes.Region, error) {
	return m.newRegion(xproto.Rectangle{Width: m.width, Height: m.height})
}

// addDamage merges r into the pending repaint region and takes ownership
// of it.
func (m *Manager) addDamage(r xfixes.Region) {
	switch {
	case r == 0 || r == m.damage:
	case m.damage == 0:
		m.damage = r
	default:
		m.srv.UnionRegion(m.damage, r, m.damage)
		m.srv.DestroyRegion(r)
	}
}

// damageSurface queues a repaint of the whole root surface.
func (m *Manager) damageSurface() error {
	r, err := m.surfaceRegion()
	if err != nil {
		return err
	}
	m.addDamage(r)
	return nil
}

// PendingDamage returns the region awaiting repaint, zero when there is none.
func (m *Manager) PendingDamage() xfixes.Region {
	return m.damage
}
