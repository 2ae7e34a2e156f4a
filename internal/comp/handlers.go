package comp

import (
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// AddWindow registers a new child of the root as the topmost window. Windows
// that are already known, or that vanish before their attributes can be
// read, are skipped.
func (m *Manager) AddWindow(id xproto.Window) error {
	if m.windows.Find(id) != nil {
		return nil
	}
	attrs, err := m.srv.WindowAttributes(id)
	if err != nil {
		m.log.Debug("skipping window", "window", id, "error", err)
		return nil
	}

	w := &Window{ID: id, Attributes: attrs, Opacity: Opaque}
	w.ShapeBounds = w.geometry()
	if w.Class != xproto.WindowClassInputOnly {
		did, err := m.srv.NewID()
		if err != nil {
			return allocError("damage", err)
		}
		w.damage = damage.Damage(did)
		m.expect(m.srv.CreateDamage(w.damage, id))
		if m.shape {
			m.expect(m.srv.SelectShapeInput(id, true))
		}
	}
	m.windows.InsertFront(w)
	m.clipChanged = true
	m.log.Debug("window added", "window", id, "viewable", w.MapState == xproto.MapStateViewable)

	if w.MapState == xproto.MapStateViewable {
		return m.MapWindow(id)
	}
	return nil
}

// MapWindow marks a window viewable and refreshes its opacity. Property
// changes are only delivered while mapped, so they are subscribed here.
func (m *Manager) MapWindow(id xproto.Window) error {
	w := m.windows.Find(id)
	if w == nil {
		return nil
	}
	w.MapState = xproto.MapStateViewable
	m.expect(m.srv.SelectInput(id, xproto.EventMaskPropertyChange))
	if err := m.determineMode(w); err != nil {
		return err
	}
	w.Damaged = false
	return nil
}

// UnmapWindow releases the resources of a window that is no longer visible.
func (m *Manager) UnmapWindow(id xproto.Window) {
	w := m.windows.Find(id)
	if w == nil {
		return
	}
	w.MapState = xproto.MapStateUnmapped
	m.finishUnmap(w)
}

// DestroyWindow unregisters a window and frees everything it holds. gone is
// set when the server has already destroyed the window, in which case the
// unmap teardown runs first.
func (m *Manager) DestroyWindow(id xproto.Window, gone bool) error {
	w := m.windows.Find(id)
	if w == nil {
		return nil
	}
	if gone {
		m.finishUnmap(w)
	}
	m.windows.Remove(id)
	m.clipChanged = true

	m.freePicture(&w.picture, true)
	m.freePicture(&w.alphaPicture, false)
	m.destroyDamage(&w.damage)
	m.freePixmap(&w.pixmap, true)
	m.destroyRegion(&w.borderSize, true)
	m.destroyRegion(&w.extents, false)
	m.destroyRegion(&w.borderClip, false)
	m.log.Debug("window removed", "window", id, "gone", gone)
	return nil
}

// Reparent treats a window moving under the root as created and a window
// moving away as destroyed. The latter still exists on the server.
func (m *Manager) Reparent(e xproto.ReparentNotifyEvent) error {
	if e.Parent == m.root {
		return m.AddWindow(e.Window)
	}
	return m.DestroyWindow(e.Window, false)
}

// Configure tracks geometry and stacking changes. The old and new extents
// are both queued for repaint.
func (m *Manager) Configure(e xproto.ConfigureNotifyEvent) error {
	if e.Window == m.root {
		m.freePicture(&m.rootBuffer, false)
		m.width, m.height = e.Width, e.Height
		return m.damageSurface()
	}
	w := m.windows.Find(e.Window)
	if w == nil {
		return nil
	}

	r, err := m.newRegion()
	if err != nil {
		return err
	}
	if w.extents != 0 {
		m.srv.CopyRegion(w.extents, r)
	}
	if w.Width != e.Width || w.Height != e.Height {
		m.freePixmap(&w.pixmap, true)
		m.freePicture(&w.picture, true)
	}

	w.ShapeBounds.X += e.X - w.X
	w.ShapeBounds.Y += e.Y - w.Y
	if !w.Shaped {
		w.ShapeBounds.Width, w.ShapeBounds.Height = e.Width, e.Height
	}
	w.X, w.Y = e.X, e.Y
	w.Width, w.Height = e.Width, e.Height
	w.BorderWidth = e.BorderWidth
	w.OverrideRedirect = e.OverrideRedirect
	m.windows.Restack(w, e.AboveSibling)

	ext, err := m.windowExtents(w)
	if err != nil {
		m.srv.DestroyRegion(r)
		return err
	}
	m.srv.UnionRegion(r, ext, r)
	m.srv.DestroyRegion(ext)
	m.addDamage(r)
	m.clipChanged = true
	return nil
}

// Circulate raises a window to the top or lowers it to the bottom.
func (m *Manager) Circulate(e xproto.CirculateNotifyEvent) {
	w := m.windows.Find(e.Window)
	if w == nil {
		return
	}
	below := xproto.Window(xproto.WindowNone)
	if e.Place == xproto.PlaceOnTop {
		below = m.windows.Top().ID
	}
	m.windows.Restack(w, below)
	m.clipChanged = true
}

// DamageNotify collects the area a window changed. The first report after a
// map repaints the whole window; later ones use the exact parts.
func (m *Manager) DamageNotify(e damage.NotifyEvent) error {
	w := m.windows.Find(xproto.Window(e.Drawable))
	if w == nil {
		return nil
	}
	var parts xfixes.Region
	if !w.Damaged {
		r, err := m.windowExtents(w)
		if err != nil {
			return err
		}
		parts = r
		m.expect(m.srv.SubtractDamage(w.damage, 0))
	} else {
		r, err := m.newRegion()
		if err != nil {
			return err
		}
		parts = r
		m.expect(m.srv.SubtractDamage(w.damage, parts))
		x, y := w.contentOrigin()
		m.srv.TranslateRegion(parts, x, y)
	}
	m.addDamage(parts)
	w.Damaged = true
	return nil
}

// ShapeNotify follows bounding and clip shape changes. The union of the old
// and new shape bounds is repainted at once rather than at the next flush.
func (m *Manager) ShapeNotify(e shape.NotifyEvent) error {
	if e.ShapeKind != shape.SkBounding && e.ShapeKind != shape.SkClip {
		return nil
	}
	w := m.windows.Find(e.AffectedWindow)
	if w == nil {
		return nil
	}
	m.clipChanged = true

	old, err := m.newRegion(w.ShapeBounds)
	if err != nil {
		return err
	}
	w.Shaped = e.Shaped
	if e.Shaped {
		w.ShapeBounds = xproto.Rectangle{
			X:      w.X + e.ExtentsX,
			Y:      w.Y + e.ExtentsY,
			Width:  e.ExtentsWidth,
			Height: e.ExtentsHeight,
		}
	} else {
		w.ShapeBounds = w.geometry()
	}
	cur, err := m.newRegion(w.ShapeBounds)
	if err != nil {
		m.srv.DestroyRegion(old)
		return err
	}
	m.srv.UnionRegion(old, cur, old)
	m.srv.DestroyRegion(cur)
	return m.Paint(old)
}

// PropertyNotify reacts to opacity changes on windows and to a new wallpaper
// on the root.
func (m *Manager) PropertyNotify(e xproto.PropertyNotifyEvent) error {
	if e.Atom == m.atoms.Opacity {
		if w := m.windows.Find(e.Window); w != nil {
			return m.determineMode(w)
		}
		return nil
	}
	if e.Window != m.root || !m.isBackgroundAtom(e.Atom) {
		return nil
	}
	m.freePicture(&m.rootTile, false)
	return m.damageSurface()
}

func (m *Manager) isBackgroundAtom(atom xproto.Atom) bool {
	for _, a := range m.atoms.Background {
		if a == atom {
			return true
		}
	}
	return false
}

// Expose gathers exposed root rectangles until the last event of a series
// and then queues them as one region.
func (m *Manager) Expose(e xproto.ExposeEvent) error {
	if e.Window != m.root {
		return nil
	}
	m.expose = append(m.expose, xproto.Rectangle{
		X: int16(e.X), Y: int16(e.Y), Width: e.Width, Height: e.Height,
	})
	if e.Count != 0 {
		return nil
	}
	r, err := m.newRegion(m.expose...)
	m.expose = m.expose[:0]
	if err != nil {
		return err
	}
	m.addDamage(r)
	return nil
}
