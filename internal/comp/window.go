package comp

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// Opaque is the opacity property value of a fully opaque window.
const Opaque uint32 = 0xFFFFFFFF

// Window is a redirected child of the root window.
//
// Every server-side handle below is either zero (absent) or owned by this
// Window. Handles are only released through the Manager's free/destroy
// helpers, which clear the field in the same step.
type Window struct {
	ID xproto.Window
	Attributes

	// Solid is set when the window is fully opaque everywhere and can be
	// copied without blending.
	Solid bool
	// Damaged is set once the window has reported damage since it was mapped.
	Damaged bool
	Opacity uint32

	Shaped      bool
	ShapeBounds xproto.Rectangle

	damage       damage.Damage
	pixmap       xproto.Pixmap
	picture      render.Picture
	alphaPicture render.Picture
	borderSize   xfixes.Region
	extents      xfixes.Region
	borderClip   xfixes.Region
}

// Extents returns the window rectangle including its border, in root
// coordinates.
func (w *Window) Extents() xproto.Rectangle {
	return xproto.Rectangle{
		X:      w.X,
		Y:      w.Y,
		Width:  w.Width + 2*w.BorderWidth,
		Height: w.Height + 2*w.BorderWidth,
	}
}

func (w *Window) geometry() xproto.Rectangle {
	return xproto.Rectangle{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height}
}

// contentOrigin is where the window's own coordinate system starts on the
// root, inside the border.
func (w *Window) contentOrigin() (int16, int16) {
	return w.X + int16(w.BorderWidth), w.Y + int16(w.BorderWidth)
}

// onSurface reports whether any part of the window lies on a surface of the
// given size.
func (w *Window) onSurface(width, height uint16) bool {
	r := w.Extents()
	x, y := int(r.X), int(r.Y)
	return x+int(r.Width) > 0 && y+int(r.Height) > 0 && x < int(width) && y < int(height)
}

func (m *Manager) expect(seq uint64) {
	m.ignore.Add(seq)
}

// destroyRegion releases *r if present. mayFail marks regions derived from a
// window that can vanish under us.
func (m *Manager) destroyRegion(r *xfixes.Region, mayFail bool) {
	if *r == 0 {
		return
	}
	seq := m.srv.DestroyRegion(*r)
	if mayFail {
		m.expect(seq)
	}
	*r = 0
}

func (m *Manager) freePicture(p *render.Picture, mayFail bool) {
	if *p == 0 {
		return
	}
	seq := m.srv.FreePicture(*p)
	if mayFail {
		m.expect(seq)
	}
	*p = 0
}

func (m *Manager) freePixmap(p *xproto.Pixmap, mayFail bool) {
	if *p == 0 {
		return
	}
	seq := m.srv.FreePixmap(*p)
	if mayFail {
		m.expect(seq)
	}
	*p = 0
}

// destroyDamage always expects failure: the damage object goes away with its
// window.
func (m *Manager) destroyDamage(d *damage.Damage) {
	if *d == 0 {
		return
	}
	m.expect(m.srv.DestroyDamage(*d))
	*d = 0
}

// windowExtents returns a new region covering w including its border.
func (m *Manager) windowExtents(w *Window) (xfixes.Region, error) {
	return m.newRegion(w.Extents())
}

// borderSize returns a new region holding the bounding shape of w in root
// coordinates. Both requests fail if the window is already gone.
func (m *Manager) borderSize(w *Window) (xfixes.Region, error) {
	id, err := m.srv.NewID()
	if err != nil {
		return 0, allocError("border region", err)
	}
	r := xfixes.Region(id)
	m.expect(m.srv.CreateRegionFromWindow(r, w.ID))
	x, y := w.contentOrigin()
	m.expect(m.srv.TranslateRegion(r, x, y))
	return r, nil
}

// ensurePicture makes the window's content picture available for painting.
func (m *Manager) ensurePicture(w *Window) error {
	if w.picture != 0 {
		return nil
	}
	if w.pixmap == 0 {
		id, err := m.srv.NewID()
		if err != nil {
			return allocError("window pixmap", err)
		}
		w.pixmap = xproto.Pixmap(id)
		m.expect(m.srv.NameWindowPixmap(w.ID, w.pixmap))
	}
	format, ok := m.srv.VisualFormat(w.Visual)
	if !ok {
		format = Format{ID: m.rootFormat}
	}
	id, err := m.srv.NewID()
	if err != nil {
		return allocError("window picture", err)
	}
	w.picture = render.Picture(id)
	m.expect(m.srv.CreatePicture(w.picture, xproto.Drawable(w.pixmap), format.ID,
		render.CpSubwindowMode, []uint32{xproto.SubwindowModeIncludeInferiors}))
	return nil
}

// hasAlpha reports whether the window's visual carries an alpha channel.
// Input-only windows have no format and never blend.
func (m *Manager) hasAlpha(w *Window) bool {
	if w.Class == xproto.WindowClassInputOnly {
		return false
	}
	format, ok := m.srv.VisualFormat(w.Visual)
	return ok && format.Alpha
}

// opacityProperty reads the opacity property of id, defaulting to Opaque.
func (m *Manager) opacityProperty(id xproto.Window) uint32 {
	reply, err := m.srv.GetProperty(id, m.atoms.Opacity)
	if err != nil || reply == nil {
		return Opaque
	}
	if reply.Type != xproto.AtomCardinal || reply.Format != 32 || reply.ValueLen < 1 || len(reply.Value) < 4 {
		return Opaque
	}
	return xgb.Get32(reply.Value)
}

// determineMode recomputes opacity and solidity and queues a repaint of the
// window. Called on map (no property events arrive while unmapped) and on
// opacity property changes.
func (m *Manager) determineMode(w *Window) error {
	m.freePicture(&w.alphaPicture, false)
	w.Opacity = m.opacityProperty(w.ID)
	w.Solid = w.Opacity == Opaque && !m.hasAlpha(w)

	if w.MapState != xproto.MapStateViewable {
		return nil
	}
	var (
		r   xfixes.Region
		err error
	)
	if w.extents != 0 {
		r, err = m.copyRegion(w.extents)
	} else {
		r, err = m.windowExtents(w)
	}
	if err != nil {
		return err
	}
	m.addDamage(r)
	return nil
}

// finishUnmap releases everything a mapped window holds and schedules a
// repaint of the area it covered. The window itself stays registered.
func (m *Manager) finishUnmap(w *Window) {
	w.Damaged = false
	if w.extents != 0 {
		m.addDamage(w.extents)
		w.extents = 0
	}
	m.freePixmap(&w.pixmap, true)
	m.freePicture(&w.picture, true)

	// Stop property notifications.
	m.expect(m.srv.SelectInput(w.ID, 0))

	m.destroyRegion(&w.borderSize, true)
	m.destroyRegion(&w.borderClip, false)
	m.clipChanged = true
}

// alphaPicture returns a 1x1 repeating A8 picture holding opacity.
func (m *Manager) alphaPicture(opacity uint32) (render.Picture, error) {
	pid, err := m.srv.NewID()
	if err != nil {
		return 0, allocError("alpha pixmap", err)
	}
	pixmap := xproto.Pixmap(pid)
	m.srv.CreatePixmap(pixmap, 8, 1, 1)

	id, err := m.srv.NewID()
	if err != nil {
		m.srv.FreePixmap(pixmap)
		return 0, allocError("alpha picture", err)
	}
	picture := render.Picture(id)
	m.srv.CreatePicture(picture, xproto.Drawable(pixmap), m.srv.AlphaFormat(),
		render.CpRepeat, []uint32{render.RepeatNormal})
	m.srv.FillRectangle(render.PictOpSrc, picture,
		render.Color{Alpha: alphaLevel(opacity)},
		xproto.Rectangle{Width: 1, Height: 1})
	m.srv.FreePixmap(pixmap)
	return picture, nil
}

// alphaLevel scales a 32-bit opacity to a 16-bit colour channel.
func alphaLevel(opacity uint32) uint16 {
	return uint16(uint64(opacity) * 0xFFFF / uint64(Opaque))
}
