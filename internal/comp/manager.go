// Package comp is the compositing core: it mirrors the stacking order of the
// root's children, accumulates damage, and repaints the root surface from the
// redirected window contents.
//
// All state lives in a Manager and is only touched from the goroutine that
// drives it. Requests are fire-and-forget; a request that may legitimately
// fail because its window vanished is registered with the ignore tracker so
// the resulting error is dropped.
package comp

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/glasspane/internal/ignore"
)

// Atoms are the property names the compositor reads.
type Atoms struct {
	Opacity xproto.Atom
	// Background lists root properties that may hold the wallpaper pixmap,
	// in order of preference.
	Background []xproto.Atom
	// Pixmap is the property type marking a valid background payload.
	Pixmap xproto.Atom
}

// Options configures a Manager.
type Options struct {
	Root          xproto.Window
	Width, Height uint16
	Depth         byte
	Visual        xproto.Visualid
	Atoms         Atoms
	// Shape enables shape-change tracking for new windows.
	Shape bool
	// Background fills the root tile when no wallpaper property is set.
	Background render.Color
	Logger     *slog.Logger
}

// Manager is the compositing context.
type Manager struct {
	srv Server
	log *slog.Logger

	root          xproto.Window
	rootFormat    render.Pictformat
	width, height uint16
	depth         byte
	atoms         Atoms
	shape         bool
	background    render.Color

	windows Registry
	ignore  ignore.Tracker

	damage      xfixes.Region
	clipChanged bool
	expose      []xproto.Rectangle

	rootPicture render.Picture
	rootBuffer  render.Picture
	rootTile    render.Picture
}

// New creates a Manager and the picture for the visible root surface.
func New(srv Server, opts Options) (*Manager, error) {
	format, ok := srv.VisualFormat(opts.Visual)
	if !ok {
		return nil, fmt.Errorf("no picture format for root visual 0x%x", uint32(opts.Visual))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m := &Manager{
		srv:         srv,
		log:         logger,
		root:        opts.Root,
		rootFormat:  format.ID,
		width:       opts.Width,
		height:      opts.Height,
		depth:       opts.Depth,
		atoms:       opts.Atoms,
		shape:       opts.Shape,
		background:  opts.Background,
		clipChanged: true,
	}

	id, err := srv.NewID()
	if err != nil {
		return nil, allocError("root picture", err)
	}
	m.rootPicture = render.Picture(id)
	srv.CreatePicture(m.rootPicture, xproto.Drawable(opts.Root), format.ID,
		render.CpSubwindowMode, []uint32{xproto.SubwindowModeIncludeInferiors})
	return m, nil
}

// Windows returns the registered windows, topmost first.
func (m *Manager) Windows() []*Window {
	return m.windows.Windows()
}

// Find returns the registered window with the given id, or nil.
func (m *Manager) Find(id xproto.Window) *Window {
	return m.windows.Find(id)
}

// Size returns the current root surface size.
func (m *Manager) Size() (uint16, uint16) {
	return m.width, m.height
}

// Adopt registers windows that existed before the manager started. children
// must be in bottom-to-top stacking order, as the server reports them.
func (m *Manager) Adopt(children []xproto.Window) error {
	for _, id := range children {
		if err := m.AddWindow(id); err != nil {
			return err
		}
	}
	m.log.Debug("adopted existing windows", "requested", len(children), "registered", m.windows.Len())
	return nil
}

// Dispatch routes one event to its handler.
func (m *Manager) Dispatch(ev xgb.Event) error {
	if seq, ok := sequenceOf(ev); ok {
		m.ignore.Discard(ignore.Received(m.srv.LastSequence(), seq))
	}

	switch e := ev.(type) {
	case xproto.CreateNotifyEvent:
		return m.AddWindow(e.Window)
	case xproto.ConfigureNotifyEvent:
		return m.Configure(e)
	case xproto.DestroyNotifyEvent:
		return m.DestroyWindow(e.Window, true)
	case xproto.CirculateNotifyEvent:
		m.Circulate(e)
	case xproto.MapNotifyEvent:
		return m.MapWindow(e.Window)
	case xproto.UnmapNotifyEvent:
		m.UnmapWindow(e.Window)
	case xproto.ReparentNotifyEvent:
		return m.Reparent(e)
	case xproto.ExposeEvent:
		return m.Expose(e)
	case xproto.PropertyNotifyEvent:
		return m.PropertyNotify(e)
	case damage.NotifyEvent:
		return m.DamageNotify(e)
	case shape.NotifyEvent:
		return m.ShapeNotify(e)
	}
	return nil
}

// HandleError drops errors the manager expected and logs the rest. Reported
// errors are never fatal.
func (m *Manager) HandleError(err xgb.Error) {
	seq := ignore.Received(m.srv.LastSequence(), err.SequenceId())
	if m.ignore.Match(seq) {
		return
	}
	code, known := m.srv.ErrorCode(err)
	m.log.Error("protocol error", errorAttrs(err, code, known, seq)...)
}

// Flush repaints the pending damage, if any, then clears it together with
// the clip invalidation flag.
func (m *Manager) Flush() error {
	if m.damage == 0 {
		return nil
	}
	r := m.damage
	m.damage = 0
	if err := m.Paint(r); err != nil {
		return err
	}
	m.srv.Sync()
	m.clipChanged = false
	return nil
}

// Run pumps events from src until the connection closes or a handler fails.
// Damage is flushed whenever no further event is queued.
func (m *Manager) Run(src EventSource) error {
	for {
		ev, xerr := src.NextEvent()
		switch {
		case ev == nil && xerr == nil:
			return ErrConnectionClosed
		case xerr != nil:
			m.HandleError(xerr)
		default:
			if err := m.Dispatch(ev); err != nil {
				return err
			}
		}
		if src.Queued() == 0 {
			if err := m.Flush(); err != nil {
				return err
			}
		}
	}
}

// sequenceOf extracts the sequence number carried by the events the manager
// handles.
func sequenceOf(ev xgb.Event) (uint16, bool) {
	switch e := ev.(type) {
	case xproto.CreateNotifyEvent:
		return e.Sequence, true
	case xproto.ConfigureNotifyEvent:
		return e.Sequence, true
	case xproto.DestroyNotifyEvent:
		return e.Sequence, true
	case xproto.CirculateNotifyEvent:
		return e.Sequence, true
	case xproto.MapNotifyEvent:
		return e.Sequence, true
	case xproto.UnmapNotifyEvent:
		return e.Sequence, true
	case xproto.ReparentNotifyEvent:
		return e.Sequence, true
	case xproto.ExposeEvent:
		return e.Sequence, true
	case xproto.PropertyNotifyEvent:
		return e.Sequence, true
	case damage.NotifyEvent:
		return e.Sequence, true
	case shape.NotifyEvent:
		return e.Sequence, true
	}
	return 0, false
}
