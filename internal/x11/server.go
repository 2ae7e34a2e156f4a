package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/glasspane/internal/comp"
	"github.com/1broseidon/glasspane/internal/ignore"
)

// ErrAnotherManager is returned when a compositing manager already owns the
// screen.
var ErrAnotherManager = errors.New("another compositing manager is already running")

// Server issues compositor requests on a live connection and keeps the
// widened sequence number of the last request sent.
//
// Every request the compositor makes after NewServer must go through a
// Server so that LastSequence stays exact.
type Server struct {
	c       *xgb.Conn
	root    xproto.Window
	formats *Formats
	errors  ErrorBases
	last    uint64
}

var _ comp.Server = (*Server)(nil)

// NewServer queries the picture formats and synchronizes the sequence
// counter with the connection.
func NewServer(conn *Connection) (*Server, error) {
	s := &Server{c: conn.Conn(), root: conn.Root, errors: conn.Errors}

	ck := render.QueryPictFormats(s.c)
	s.last = uint64(ck.Sequence)
	reply, err := ck.Reply()
	if err != nil {
		return nil, fmt.Errorf("query picture formats: %w", err)
	}
	s.formats = NewFormats(reply)
	if s.formats.Alpha() == 0 {
		return nil, errors.New("server has no 8-bit alpha picture format")
	}
	return s, nil
}

func (s *Server) track(seq uint16) uint64 {
	s.last = ignore.Issued(s.last, seq)
	return s.last
}

// NewID allocates a resource id.
func (s *Server) NewID() (uint32, error) {
	return s.c.NewId()
}

// LastSequence returns the widened sequence of the last request issued.
func (s *Server) LastSequence() uint64 {
	return s.last
}

// Sync waits for the server to process every request sent so far.
func (s *Server) Sync() {
	ck := xproto.GetInputFocus(s.c)
	s.track(ck.Sequence)
	ck.Reply()
}

// WindowAttributes combines the window's attributes with its geometry.
func (s *Server) WindowAttributes(w xproto.Window) (comp.Attributes, error) {
	ack := xproto.GetWindowAttributes(s.c, w)
	s.track(ack.Sequence)
	gck := xproto.GetGeometry(s.c, xproto.Drawable(w))
	s.track(gck.Sequence)

	attrs, err := ack.Reply()
	if err != nil {
		gck.Reply()
		return comp.Attributes{}, err
	}
	geom, err := gck.Reply()
	if err != nil {
		return comp.Attributes{}, err
	}
	return comp.Attributes{
		X:                geom.X,
		Y:                geom.Y,
		Width:            geom.Width,
		Height:           geom.Height,
		BorderWidth:      geom.BorderWidth,
		Visual:           attrs.Visual,
		Class:            attrs.Class,
		MapState:         attrs.MapState,
		OverrideRedirect: attrs.OverrideRedirect,
	}, nil
}

// GetProperty reads the first four bytes of a property of any type.
func (s *Server) GetProperty(w xproto.Window, prop xproto.Atom) (*xproto.GetPropertyReply, error) {
	ck := xproto.GetProperty(s.c, false, w, prop, xproto.GetPropertyTypeAny, 0, 4)
	s.track(ck.Sequence)
	return ck.Reply()
}

// VisualFormat returns the picture format of visual v.
func (s *Server) VisualFormat(v xproto.Visualid) (comp.Format, bool) {
	return s.formats.Lookup(v)
}

// AlphaFormat returns the 8-bit alpha format.
func (s *Server) AlphaFormat() render.Pictformat {
	return s.formats.Alpha()
}

// ErrorCode returns the numeric protocol code of err.
func (s *Server) ErrorCode(err xgb.Error) (byte, bool) {
	return s.errors.Code(err)
}

// The requests below are sent without waiting for a reply. Each returns the
// widened sequence number it was issued with.

// SelectInput replaces the core event mask selected on w.
func (s *Server) SelectInput(w xproto.Window, mask uint32) uint64 {
	return s.track(xproto.ChangeWindowAttributes(s.c, w, xproto.CwEventMask, []uint32{mask}).Sequence)
}

// SelectShapeInput enables or disables shape notifications for w.
func (s *Server) SelectShapeInput(w xproto.Window, enable bool) uint64 {
	return s.track(shape.SelectInput(s.c, w, enable).Sequence)
}

// CreateRegion creates region r covering rects.
func (s *Server) CreateRegion(r xfixes.Region, rects []xproto.Rectangle) uint64 {
	return s.track(xfixes.CreateRegion(s.c, r, rects).Sequence)
}

// CreateRegionFromWindow creates region r from the bounding shape of w.
func (s *Server) CreateRegionFromWindow(r xfixes.Region, w xproto.Window) uint64 {
	return s.track(xfixes.CreateRegionFromWindow(s.c, r, w, shape.SkBounding).Sequence)
}

// CopyRegion replaces dst with the contents of src.
func (s *Server) CopyRegion(src, dst xfixes.Region) uint64 {
	return s.track(xfixes.CopyRegion(s.c, src, dst).Sequence)
}

// UnionRegion stores a | b in dst.
func (s *Server) UnionRegion(a, b, dst xfixes.Region) uint64 {
	return s.track(xfixes.UnionRegion(s.c, a, b, dst).Sequence)
}

// SubtractRegion stores a - b in dst.
func (s *Server) SubtractRegion(a, b, dst xfixes.Region) uint64 {
	return s.track(xfixes.SubtractRegion(s.c, a, b, dst).Sequence)
}

// IntersectRegion stores a & b in dst.
func (s *Server) IntersectRegion(a, b, dst xfixes.Region) uint64 {
	return s.track(xfixes.IntersectRegion(s.c, a, b, dst).Sequence)
}

// TranslateRegion moves r by dx, dy.
func (s *Server) TranslateRegion(r xfixes.Region, dx, dy int16) uint64 {
	return s.track(xfixes.TranslateRegion(s.c, r, dx, dy).Sequence)
}

// DestroyRegion releases r.
func (s *Server) DestroyRegion(r xfixes.Region) uint64 {
	return s.track(xfixes.DestroyRegion(s.c, r).Sequence)
}

// SetPictureClipRegion clips p to r; zero removes the clip.
func (s *Server) SetPictureClipRegion(p render.Picture, r xfixes.Region) uint64 {
	return s.track(xfixes.SetPictureClipRegion(s.c, p, r, 0, 0).Sequence)
}

// CreateDamage starts damage tracking on w, reporting non-empty changes.
func (s *Server) CreateDamage(d damage.Damage, w xproto.Window) uint64 {
	return s.track(damage.Create(s.c, d, xproto.Drawable(w), damage.ReportLevelNonEmpty).Sequence)
}

// SubtractDamage moves the accumulated damage into parts, or discards it
// when parts is zero.
func (s *Server) SubtractDamage(d damage.Damage, parts xfixes.Region) uint64 {
	return s.track(damage.Subtract(s.c, d, 0, parts).Sequence)
}

// DestroyDamage stops damage tracking for d.
func (s *Server) DestroyDamage(d damage.Damage) uint64 {
	return s.track(damage.Destroy(s.c, d).Sequence)
}

// NameWindowPixmap binds p to the off-screen contents of w.
func (s *Server) NameWindowPixmap(w xproto.Window, p xproto.Pixmap) uint64 {
	return s.track(composite.NameWindowPixmap(s.c, w, p).Sequence)
}

// CreatePixmap creates a pixmap on the root's screen.
func (s *Server) CreatePixmap(p xproto.Pixmap, depth byte, width, height uint16) uint64 {
	return s.track(xproto.CreatePixmap(s.c, depth, p, xproto.Drawable(s.root), width, height).Sequence)
}

// FreePixmap releases p.
func (s *Server) FreePixmap(p xproto.Pixmap) uint64 {
	return s.track(xproto.FreePixmap(s.c, p).Sequence)
}

// CreatePicture creates picture p on drawable d.
func (s *Server) CreatePicture(p render.Picture, d xproto.Drawable, format render.Pictformat, mask uint32, values []uint32) uint64 {
	return s.track(render.CreatePicture(s.c, p, d, format, mask, values).Sequence)
}

// FreePicture releases p.
func (s *Server) FreePicture(p render.Picture) uint64 {
	return s.track(render.FreePicture(s.c, p).Sequence)
}

// FillRectangle fills rect of p with color.
func (s *Server) FillRectangle(op byte, p render.Picture, color render.Color, rect xproto.Rectangle) uint64 {
	return s.track(render.FillRectangles(s.c, op, p, color, []xproto.Rectangle{rect}).Sequence)
}

// Composite combines src through mask onto dst at x, y.
func (s *Server) Composite(op byte, src, mask, dst render.Picture, x, y int16, width, height uint16) uint64 {
	return s.track(render.Composite(s.c, op, src, mask, dst, 0, 0, 0, 0, x, y, width, height).Sequence)
}

// Redirect takes over painting of the root's children and calls adopt with
// the children that already exist, in bottom-to-top order. The server is
// grabbed throughout so no window can appear unnoticed.
func (s *Server) Redirect(adopt func([]xproto.Window) error) error {
	s.track(xproto.GrabServer(s.c).Sequence)
	defer func() {
		s.track(xproto.UngrabServer(s.c).Sequence)
		s.Sync()
	}()

	rck := composite.RedirectSubwindowsChecked(s.c, s.root, composite.RedirectManual)
	s.track(rck.Sequence)
	if err := rck.Check(); err != nil {
		var access xproto.AccessError
		if errors.As(err, &access) {
			return ErrAnotherManager
		}
		return fmt.Errorf("redirect subwindows: %w", err)
	}

	s.SelectInput(s.root, xproto.EventMaskSubstructureNotify|xproto.EventMaskExposure|
		xproto.EventMaskStructureNotify|xproto.EventMaskPropertyChange)

	tck := xproto.QueryTree(s.c, s.root)
	s.track(tck.Sequence)
	tree, err := tck.Reply()
	if err != nil {
		return fmt.Errorf("query tree: %w", err)
	}
	return adopt(tree.Children)
}
