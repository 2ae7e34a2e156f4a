package comp

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// Paint recomposes region of the root surface and takes ownership of it.
// A zero region repaints the whole surface.
//
// Solid windows are copied top to bottom, each one removing its shape from
// the working region, so nothing below an opaque pixel is drawn. The
// background fills what is left and translucent windows are then blended
// bottom to top, each clipped to the part of the region it could be seen
// through when it was visited.
func (m *Manager) Paint(region xfixes.Region) error {
	if region == 0 {
		r, err := m.surfaceRegion()
		if err != nil {
			return err
		}
		region = r
	}
	if err := m.ensureRootBuffer(); err != nil {
		return err
	}
	m.srv.SetPictureClipRegion(m.rootPicture, region)

	var blend []*Window
	for _, w := range m.windows.windows {
		if !w.Damaged || !w.onSurface(m.width, m.height) {
			continue
		}
		if err := m.ensurePicture(w); err != nil {
			return err
		}
		if m.clipChanged {
			m.destroyRegion(&w.borderSize, true)
			m.destroyRegion(&w.extents, false)
			m.destroyRegion(&w.borderClip, false)
		}
		if w.borderSize == 0 {
			r, err := m.borderSize(w)
			if err != nil {
				return err
			}
			w.borderSize = r
		}
		if w.extents == 0 {
			r, err := m.windowExtents(w)
			if err != nil {
				return err
			}
			w.extents = r
		}

		if w.Solid {
			ext := w.Extents()
			m.srv.SetPictureClipRegion(m.rootBuffer, region)
			m.expect(m.srv.SubtractRegion(region, w.borderSize, region))
			m.expect(m.srv.Composite(render.PictOpSrc, w.picture, 0, m.rootBuffer,
				ext.X, ext.Y, ext.Width, ext.Height))
			continue
		}
		if w.borderClip == 0 {
			r, err := m.copyRegion(region)
			if err != nil {
				return err
			}
			m.expect(m.srv.IntersectRegion(r, w.borderSize, r))
			w.borderClip = r
		}
		blend = append(blend, w)
	}

	m.srv.SetPictureClipRegion(m.rootBuffer, region)
	if m.rootTile == 0 {
		tile, err := m.makeRootTile()
		if err != nil {
			return err
		}
		m.rootTile = tile
	}
	m.srv.Composite(render.PictOpSrc, m.rootTile, 0, m.rootBuffer, 0, 0, m.width, m.height)

	for i := len(blend) - 1; i >= 0; i-- {
		w := blend[i]
		m.srv.SetPictureClipRegion(m.rootBuffer, w.borderClip)
		if w.Opacity != Opaque && w.alphaPicture == 0 {
			p, err := m.alphaPicture(w.Opacity)
			if err != nil {
				return err
			}
			w.alphaPicture = p
		}
		ext := w.Extents()
		m.expect(m.srv.Composite(render.PictOpOver, w.picture, w.alphaPicture, m.rootBuffer,
			ext.X, ext.Y, ext.Width, ext.Height))
		m.destroyRegion(&w.borderClip, false)
	}

	m.srv.DestroyRegion(region)
	if m.rootBuffer != m.rootPicture {
		m.srv.SetPictureClipRegion(m.rootBuffer, 0)
		m.srv.Composite(render.PictOpSrc, m.rootBuffer, 0, m.rootPicture, 0, 0, m.width, m.height)
	}
	m.log.Debug("painted", "windows", m.windows.Len(), "blended", len(blend))
	return nil
}

// ensureRootBuffer creates the off-screen surface painting happens on.
func (m *Manager) ensureRootBuffer() error {
	if m.rootBuffer != 0 {
		return nil
	}
	pid, err := m.srv.NewID()
	if err != nil {
		return allocError("back buffer pixmap", err)
	}
	pixmap := xproto.Pixmap(pid)
	m.srv.CreatePixmap(pixmap, m.depth, m.width, m.height)

	id, err := m.srv.NewID()
	if err != nil {
		m.srv.FreePixmap(pixmap)
		return allocError("back buffer picture", err)
	}
	m.rootBuffer = render.Picture(id)
	m.srv.CreatePicture(m.rootBuffer, xproto.Drawable(pixmap), m.rootFormat, 0, nil)
	m.srv.FreePixmap(pixmap)
	return nil
}

// backgroundPixmap returns the wallpaper pixmap published on the root by the
// first background property that holds one.
func (m *Manager) backgroundPixmap() xproto.Pixmap {
	for _, atom := range m.atoms.Background {
		reply, err := m.srv.GetProperty(m.root, atom)
		if err != nil || reply == nil {
			continue
		}
		if reply.Type == m.atoms.Pixmap && reply.Format == 32 && reply.ValueLen == 1 && len(reply.Value) >= 4 {
			return xproto.Pixmap(xgb.Get32(reply.Value))
		}
	}
	return 0
}

// makeRootTile builds the repeating picture the background is painted from:
// the wallpaper pixmap when one is published, else a 1x1 fill of the
// configured colour.
func (m *Manager) makeRootTile() (render.Picture, error) {
	pixmap := m.backgroundPixmap()
	fill := pixmap == 0
	if fill {
		pid, err := m.srv.NewID()
		if err != nil {
			return 0, allocError("root tile pixmap", err)
		}
		pixmap = xproto.Pixmap(pid)
		m.srv.CreatePixmap(pixmap, m.depth, 1, 1)
	}

	id, err := m.srv.NewID()
	if err != nil {
		if fill {
			m.srv.FreePixmap(pixmap)
		}
		return 0, allocError("root tile", err)
	}
	tile := render.Picture(id)
	m.srv.CreatePicture(tile, xproto.Drawable(pixmap), m.rootFormat,
		render.CpRepeat, []uint32{render.RepeatNormal})
	if fill {
		m.srv.FillRectangle(render.PictOpSrc, tile, m.background, xproto.Rectangle{Width: 1, Height: 1})
		m.srv.FreePixmap(pixmap)
	}
	return tile, nil
}
