package comp

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// Attributes mirrors the server's view of a window.
type Attributes struct {
	X, Y             int16
	Width, Height    uint16
	BorderWidth      uint16
	Visual           xproto.Visualid
	Class            uint16
	MapState         byte
	OverrideRedirect bool
}

// Format describes the picture format matching a visual.
type Format struct {
	ID render.Pictformat
	// Alpha is set when the format is direct and carries an alpha mask.
	Alpha bool
}

// Server is the display connection as seen by the compositor.
//
// Requests without a reply return the widened sequence number they were
// issued with. The compositor registers that number with its ignore tracker
// before it looks at any further event or error.
type Server interface {
	NewID() (uint32, error)
	LastSequence() uint64
	Sync()

	WindowAttributes(w xproto.Window) (Attributes, error)
	GetProperty(w xproto.Window, prop xproto.Atom) (*xproto.GetPropertyReply, error)
	VisualFormat(v xproto.Visualid) (Format, bool)
	AlphaFormat() render.Pictformat
	// ErrorCode returns the numeric protocol code of err, with extension
	// errors offset by the extension's first error code.
	ErrorCode(err xgb.Error) (byte, bool)

	SelectInput(w xproto.Window, mask uint32) uint64
	SelectShapeInput(w xproto.Window, enable bool) uint64

	CreateRegion(r xfixes.Region, rects []xproto.Rectangle) uint64
	CreateRegionFromWindow(r xfixes.Region, w xproto.Window) uint64
	CopyRegion(src, dst xfixes.Region) uint64
	UnionRegion(a, b, dst xfixes.Region) uint64
	SubtractRegion(a, b, dst xfixes.Region) uint64
	IntersectRegion(a, b, dst xfixes.Region) uint64
	TranslateRegion(r xfixes.Region, dx, dy int16) uint64
	DestroyRegion(r xfixes.Region) uint64
	SetPictureClipRegion(p render.Picture, r xfixes.Region) uint64

	CreateDamage(d damage.Damage, w xproto.Window) uint64
	SubtractDamage(d damage.Damage, parts xfixes.Region) uint64
	DestroyDamage(d damage.Damage) uint64

	NameWindowPixmap(w xproto.Window, p xproto.Pixmap) uint64
	CreatePixmap(p xproto.Pixmap, depth byte, width, height uint16) uint64
	FreePixmap(p xproto.Pixmap) uint64
	CreatePicture(p render.Picture, d xproto.Drawable, format render.Pictformat, mask uint32, values []uint32) uint64
	FreePicture(p render.Picture) uint64
	FillRectangle(op byte, p render.Picture, color render.Color, rect xproto.Rectangle) uint64
	Composite(op byte, src, mask, dst render.Picture, x, y int16, width, height uint16) uint64
}

// EventSource delivers events and asynchronous errors one at a time.
type EventSource interface {
	// NextEvent blocks until an event or error is available. Both results
	// being nil means the connection was closed.
	NextEvent() (xgb.Event, xgb.Error)
	// Queued reports how many events can be read without blocking.
	Queued() int
}
