package comp

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

const (
	testWidth  = 64
	testHeight = 48

	rootWindow xproto.Window   = 1
	rootVisual xproto.Visualid = 0x21
	argbVisual xproto.Visualid = 0x22

	rootFormat  render.Pictformat = 0x31
	argbFormat  render.Pictformat = 0x32
	alphaFormat render.Pictformat = 0x33

	opacityAtom  xproto.Atom = 300
	rootpmapAtom xproto.Atom = 301
	setrootAtom  xproto.Atom = 302
)

type point struct{ x, y int }

// pixels models a server-side region as the set of pixels it covers.
type pixels map[point]struct{}

func rectPixels(rects ...xproto.Rectangle) pixels {
	p := pixels{}
	for _, r := range rects {
		for x := int(r.X); x < int(r.X)+int(r.Width); x++ {
			for y := int(r.Y); y < int(r.Y)+int(r.Height); y++ {
				p[point{x, y}] = struct{}{}
			}
		}
	}
	return p
}

func (p pixels) clone() pixels {
	out := make(pixels, len(p))
	for k := range p {
		out[k] = struct{}{}
	}
	return out
}

func (p pixels) has(x, y int) bool {
	_, ok := p[point{x, y}]
	return ok
}

func (p pixels) equal(q pixels) bool {
	if len(p) != len(q) {
		return false
	}
	for k := range p {
		if _, ok := q[k]; !ok {
			return false
		}
	}
	return true
}

// covers reports whether every pixel of r is in p.
func (p pixels) covers(r xproto.Rectangle) bool {
	for k := range rectPixels(r) {
		if _, ok := p[k]; !ok {
			return false
		}
	}
	return true
}

// overlaps reports whether any pixel of r is in p.
func (p pixels) overlaps(r xproto.Rectangle) bool {
	for k := range rectPixels(r) {
		if _, ok := p[k]; ok {
			return true
		}
	}
	return false
}

type fakeWindow struct {
	attrs Attributes
	alive bool
	props map[xproto.Atom]*xproto.GetPropertyReply
	// shape is the bounding shape in window coordinates; nil means the
	// rectangle including the border.
	shape      []xproto.Rectangle
	damage     pixels
	eventMask  uint32
	shapeInput bool
}

type fakePicture struct {
	drawable xproto.Drawable
	format   render.Pictformat
	repeat   bool
	clip     pixels
	fill     *render.Color
}

type compositeCall struct {
	op            byte
	src, mask     render.Picture
	dst           render.Picture
	x, y          int16
	width, height uint16
	// clip is the destination clip at the time of the call; nil means
	// unclipped.
	clip pixels
}

type fakeError struct {
	NiceName string
	seq      uint64
	bad      uint32
}

func (e fakeError) SequenceId() uint16 { return uint16(e.seq) }
func (e fakeError) BadId() uint32      { return e.bad }
func (e fakeError) Error() string {
	return fmt.Sprintf("%sError {Sequence: %d, BadValue: %d}", e.NiceName, uint16(e.seq), e.bad)
}

// fakeServer is an in-memory display. Requests against resources that do
// not exist produce asynchronous errors the way a real server would.
type fakeServer struct {
	nextID uint32
	seq    uint64
	syncs  int

	windows  map[xproto.Window]*fakeWindow
	regions  map[xfixes.Region]pixels
	damages  map[damage.Damage]xproto.Window
	pixmaps  map[xproto.Pixmap]xproto.Window
	pictures map[render.Picture]*fakePicture
	formats  map[xproto.Visualid]Format

	composites []compositeCall
	errors     []fakeError
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		nextID: 0x400000,
		windows: map[xproto.Window]*fakeWindow{
			rootWindow: {
				attrs: Attributes{Width: testWidth, Height: testHeight, Visual: rootVisual,
					Class: xproto.WindowClassInputOutput, MapState: xproto.MapStateViewable},
				alive: true,
				props: map[xproto.Atom]*xproto.GetPropertyReply{},
			},
		},
		regions:  map[xfixes.Region]pixels{},
		damages:  map[damage.Damage]xproto.Window{},
		pixmaps:  map[xproto.Pixmap]xproto.Window{},
		pictures: map[render.Picture]*fakePicture{},
		formats: map[xproto.Visualid]Format{
			rootVisual: {ID: rootFormat},
			argbVisual: {ID: argbFormat, Alpha: true},
		},
	}
}

// addWindow creates a window on the server without telling the manager.
func (f *fakeServer) addWindow(id xproto.Window, attrs Attributes) *fakeWindow {
	if attrs.Visual == 0 {
		attrs.Visual = rootVisual
	}
	if attrs.Class == 0 {
		attrs.Class = xproto.WindowClassInputOutput
	}
	w := &fakeWindow{attrs: attrs, alive: true, props: map[xproto.Atom]*xproto.GetPropertyReply{}}
	f.windows[id] = w
	return w
}

// kill destroys a window on the server. Its damage objects go with it.
func (f *fakeServer) kill(id xproto.Window) {
	if w, ok := f.windows[id]; ok {
		w.alive = false
	}
	for d, owner := range f.damages {
		if owner == id {
			delete(f.damages, d)
		}
	}
}

func (f *fakeServer) setCardinal(id xproto.Window, atom xproto.Atom, v uint32) {
	buf := make([]byte, 4)
	xgb.Put32(buf, v)
	f.windows[id].props[atom] = &xproto.GetPropertyReply{
		Format: 32, Type: xproto.AtomCardinal, ValueLen: 1, Value: buf,
	}
}

func (f *fakeServer) setPixmapProperty(atom xproto.Atom, p xproto.Pixmap) {
	buf := make([]byte, 4)
	xgb.Put32(buf, uint32(p))
	f.windows[rootWindow].props[atom] = &xproto.GetPropertyReply{
		Format: 32, Type: xproto.AtomPixmap, ValueLen: 1, Value: buf,
	}
}

// damageContents records drawing inside a window, in window coordinates.
func (f *fakeServer) damageContents(id xproto.Window, rects ...xproto.Rectangle) {
	w := f.windows[id]
	if w.damage == nil {
		w.damage = pixels{}
	}
	for k := range rectPixels(rects...) {
		w.damage[k] = struct{}{}
	}
}

// deliver hands every pending asynchronous error to the manager.
func (f *fakeServer) deliver(m *Manager) {
	errs := f.errors
	f.errors = nil
	for _, err := range errs {
		m.HandleError(err)
	}
}

// pictureSource returns the window whose named pixmap backs p.
func (f *fakeServer) pictureSource(p render.Picture) xproto.Window {
	pic, ok := f.pictures[p]
	if !ok {
		return 0
	}
	return f.pixmaps[xproto.Pixmap(pic.drawable)]
}

func (f *fakeServer) compositesFrom(src render.Picture) []compositeCall {
	var out []compositeCall
	for _, c := range f.composites {
		if c.src == src {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeServer) issue() uint64 {
	f.seq++
	return f.seq
}

func (f *fakeServer) fail(seq uint64, name string, bad uint32) {
	f.errors = append(f.errors, fakeError{NiceName: name, seq: seq, bad: bad})
}

func (f *fakeServer) live(seq uint64, id xproto.Window) (*fakeWindow, bool) {
	w, ok := f.windows[id]
	if !ok || !w.alive {
		f.fail(seq, "Window", uint32(id))
		return nil, false
	}
	return w, true
}

func (f *fakeServer) region(seq uint64, r xfixes.Region) (pixels, bool) {
	p, ok := f.regions[r]
	if !ok {
		f.fail(seq, "Region", uint32(r))
	}
	return p, ok
}

func (f *fakeServer) picture(seq uint64, p render.Picture) (*fakePicture, bool) {
	pic, ok := f.pictures[p]
	if !ok {
		f.fail(seq, "Picture", uint32(p))
	}
	return pic, ok
}

func (f *fakeServer) NewID() (uint32, error) {
	f.nextID++
	return f.nextID, nil
}

func (f *fakeServer) LastSequence() uint64 { return f.seq }

func (f *fakeServer) Sync() { f.syncs++ }

func (f *fakeServer) WindowAttributes(id xproto.Window) (Attributes, error) {
	f.issue()
	w, ok := f.windows[id]
	if !ok || !w.alive {
		return Attributes{}, errors.New("BadWindow")
	}
	return w.attrs, nil
}

func (f *fakeServer) GetProperty(id xproto.Window, prop xproto.Atom) (*xproto.GetPropertyReply, error) {
	f.issue()
	w, ok := f.windows[id]
	if !ok || !w.alive {
		return nil, errors.New("BadWindow")
	}
	if reply, ok := w.props[prop]; ok {
		return reply, nil
	}
	return &xproto.GetPropertyReply{}, nil
}

func (f *fakeServer) VisualFormat(v xproto.Visualid) (Format, bool) {
	format, ok := f.formats[v]
	return format, ok
}

func (f *fakeServer) AlphaFormat() render.Pictformat { return alphaFormat }

// Extension error bases of the fake display.
const (
	fakeXFixesError = 140
	fakeDamageError = 150
	fakeRenderError = 160
)

func (f *fakeServer) ErrorCode(err xgb.Error) (byte, bool) {
	e, ok := err.(fakeError)
	if !ok {
		return 0, false
	}
	switch e.NiceName {
	case "Window":
		return xproto.BadWindow, true
	case "Pixmap":
		return xproto.BadPixmap, true
	case "Drawable":
		return xproto.BadDrawable, true
	case "Region":
		return fakeXFixesError + xfixes.BadBadRegion, true
	case "Damage":
		return fakeDamageError + damage.BadBadDamage, true
	case "Picture":
		return fakeRenderError + render.BadPicture, true
	}
	return 0, false
}

func (f *fakeServer) SelectInput(id xproto.Window, mask uint32) uint64 {
	seq := f.issue()
	if w, ok := f.live(seq, id); ok {
		w.eventMask = mask
	}
	return seq
}

func (f *fakeServer) SelectShapeInput(id xproto.Window, enable bool) uint64 {
	seq := f.issue()
	if w, ok := f.live(seq, id); ok {
		w.shapeInput = enable
	}
	return seq
}

func (f *fakeServer) CreateRegion(r xfixes.Region, rects []xproto.Rectangle) uint64 {
	seq := f.issue()
	f.regions[r] = rectPixels(rects...)
	return seq
}

func (f *fakeServer) CreateRegionFromWindow(r xfixes.Region, id xproto.Window) uint64 {
	seq := f.issue()
	w, ok := f.live(seq, id)
	if !ok {
		return seq
	}
	if w.shape != nil {
		f.regions[r] = rectPixels(w.shape...)
		return seq
	}
	bw := int16(w.attrs.BorderWidth)
	f.regions[r] = rectPixels(xproto.Rectangle{
		X: -bw, Y: -bw,
		Width:  w.attrs.Width + 2*w.attrs.BorderWidth,
		Height: w.attrs.Height + 2*w.attrs.BorderWidth,
	})
	return seq
}

func (f *fakeServer) CopyRegion(src, dst xfixes.Region) uint64 {
	seq := f.issue()
	p, ok := f.region(seq, src)
	if !ok {
		return seq
	}
	if _, ok := f.region(seq, dst); ok {
		f.regions[dst] = p.clone()
	}
	return seq
}

func (f *fakeServer) combine(a, b, dst xfixes.Region, op func(a, b pixels) pixels) uint64 {
	seq := f.issue()
	pa, ok := f.region(seq, a)
	if !ok {
		return seq
	}
	pb, ok := f.region(seq, b)
	if !ok {
		return seq
	}
	if _, ok := f.region(seq, dst); ok {
		f.regions[dst] = op(pa, pb)
	}
	return seq
}

func (f *fakeServer) UnionRegion(a, b, dst xfixes.Region) uint64 {
	return f.combine(a, b, dst, func(a, b pixels) pixels {
		out := a.clone()
		for k := range b {
			out[k] = struct{}{}
		}
		return out
	})
}

func (f *fakeServer) SubtractRegion(a, b, dst xfixes.Region) uint64 {
	return f.combine(a, b, dst, func(a, b pixels) pixels {
		out := pixels{}
		for k := range a {
			if _, ok := b[k]; !ok {
				out[k] = struct{}{}
			}
		}
		return out
	})
}

func (f *fakeServer) IntersectRegion(a, b, dst xfixes.Region) uint64 {
	return f.combine(a, b, dst, func(a, b pixels) pixels {
		out := pixels{}
		for k := range a {
			if _, ok := b[k]; ok {
				out[k] = struct{}{}
			}
		}
		return out
	})
}

func (f *fakeServer) TranslateRegion(r xfixes.Region, dx, dy int16) uint64 {
	seq := f.issue()
	if p, ok := f.region(seq, r); ok {
		out := pixels{}
		for k := range p {
			out[point{k.x + int(dx), k.y + int(dy)}] = struct{}{}
		}
		f.regions[r] = out
	}
	return seq
}

func (f *fakeServer) DestroyRegion(r xfixes.Region) uint64 {
	seq := f.issue()
	if _, ok := f.region(seq, r); ok {
		delete(f.regions, r)
	}
	return seq
}

func (f *fakeServer) SetPictureClipRegion(p render.Picture, r xfixes.Region) uint64 {
	seq := f.issue()
	pic, ok := f.picture(seq, p)
	if !ok {
		return seq
	}
	if r == 0 {
		pic.clip = nil
		return seq
	}
	if clip, ok := f.region(seq, r); ok {
		pic.clip = clip.clone()
	}
	return seq
}

func (f *fakeServer) CreateDamage(d damage.Damage, id xproto.Window) uint64 {
	seq := f.issue()
	if _, ok := f.live(seq, id); ok {
		f.damages[d] = id
	}
	return seq
}

func (f *fakeServer) SubtractDamage(d damage.Damage, parts xfixes.Region) uint64 {
	seq := f.issue()
	owner, ok := f.damages[d]
	if !ok {
		f.fail(seq, "Damage", uint32(d))
		return seq
	}
	w := f.windows[owner]
	if parts != 0 {
		if _, ok := f.region(seq, parts); ok {
			f.regions[parts] = w.damage.clone()
		}
	}
	w.damage = nil
	return seq
}

func (f *fakeServer) DestroyDamage(d damage.Damage) uint64 {
	seq := f.issue()
	if _, ok := f.damages[d]; !ok {
		f.fail(seq, "Damage", uint32(d))
		return seq
	}
	delete(f.damages, d)
	return seq
}

func (f *fakeServer) NameWindowPixmap(id xproto.Window, p xproto.Pixmap) uint64 {
	seq := f.issue()
	if _, ok := f.live(seq, id); ok {
		f.pixmaps[p] = id
	}
	return seq
}

func (f *fakeServer) CreatePixmap(p xproto.Pixmap, depth byte, width, height uint16) uint64 {
	seq := f.issue()
	f.pixmaps[p] = 0
	return seq
}

func (f *fakeServer) FreePixmap(p xproto.Pixmap) uint64 {
	seq := f.issue()
	if _, ok := f.pixmaps[p]; !ok {
		f.fail(seq, "Pixmap", uint32(p))
		return seq
	}
	delete(f.pixmaps, p)
	return seq
}

func (f *fakeServer) CreatePicture(p render.Picture, d xproto.Drawable, format render.Pictformat, mask uint32, values []uint32) uint64 {
	seq := f.issue()
	_, isPixmap := f.pixmaps[xproto.Pixmap(d)]
	w, isWindow := f.windows[xproto.Window(d)]
	if !isPixmap && !(isWindow && w.alive) {
		f.fail(seq, "Drawable", uint32(d))
		return seq
	}
	pic := &fakePicture{drawable: d, format: format}
	if mask == render.CpRepeat && len(values) == 1 {
		pic.repeat = values[0] == render.RepeatNormal
	}
	f.pictures[p] = pic
	return seq
}

func (f *fakeServer) FreePicture(p render.Picture) uint64 {
	seq := f.issue()
	if _, ok := f.picture(seq, p); ok {
		delete(f.pictures, p)
	}
	return seq
}

func (f *fakeServer) FillRectangle(op byte, p render.Picture, color render.Color, rect xproto.Rectangle) uint64 {
	seq := f.issue()
	if pic, ok := f.picture(seq, p); ok {
		c := color
		pic.fill = &c
	}
	return seq
}

func (f *fakeServer) Composite(op byte, src, mask, dst render.Picture, x, y int16, width, height uint16) uint64 {
	seq := f.issue()
	if _, ok := f.picture(seq, src); !ok {
		return seq
	}
	if mask != 0 {
		if _, ok := f.picture(seq, mask); !ok {
			return seq
		}
	}
	d, ok := f.picture(seq, dst)
	if !ok {
		return seq
	}
	call := compositeCall{op: op, src: src, mask: mask, dst: dst, x: x, y: y, width: width, height: height}
	if d.clip != nil {
		call.clip = d.clip.clone()
	}
	f.composites = append(f.composites, call)
	return seq
}

// sliceSource replays a fixed list of events and errors.
type sliceSource struct {
	items []sourceItem
}

type sourceItem struct {
	ev  xgb.Event
	err xgb.Error
}

func (s *sliceSource) NextEvent() (xgb.Event, xgb.Error) {
	if len(s.items) == 0 {
		return nil, nil
	}
	it := s.items[0]
	s.items = s.items[1:]
	return it.ev, it.err
}

func (s *sliceSource) Queued() int { return len(s.items) }

type testEnv struct {
	t   *testing.T
	m   *Manager
	f   *fakeServer
	log *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	f := newFakeServer()
	var buf bytes.Buffer
	m, err := New(f, Options{
		Root:   rootWindow,
		Width:  testWidth,
		Height: testHeight,
		Depth:  24,
		Visual: rootVisual,
		Atoms: Atoms{
			Opacity:    opacityAtom,
			Background: []xproto.Atom{rootpmapAtom, setrootAtom},
			Pixmap:     xproto.AtomPixmap,
		},
		Shape:      true,
		Background: render.Color{Red: 0x2000, Green: 0x4000, Blue: 0x6000, Alpha: 0xFFFF},
		Logger:     slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{t: t, m: m, f: f, log: &buf}
}

// create makes a window on the server and announces it to the manager.
func (e *testEnv) create(id xproto.Window, attrs Attributes) *Window {
	e.t.Helper()
	e.f.addWindow(id, attrs)
	e.dispatch(xproto.CreateNotifyEvent{Parent: rootWindow, Window: id})
	return e.m.Find(id)
}

// mapped creates a viewable window and reports its first damage.
func (e *testEnv) mapped(id xproto.Window, rect xproto.Rectangle, visual xproto.Visualid) *Window {
	e.t.Helper()
	w := e.create(id, Attributes{
		X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height,
		Visual: visual, MapState: xproto.MapStateViewable,
	})
	if w == nil {
		e.t.Fatalf("window %d was not registered", id)
	}
	e.damage(w)
	return w
}

func (e *testEnv) damage(w *Window) {
	e.t.Helper()
	e.dispatch(damage.NotifyEvent{Drawable: xproto.Drawable(w.ID), Damage: w.damage})
}

func (e *testEnv) dispatch(ev xgb.Event) {
	e.t.Helper()
	if err := e.m.Dispatch(ev); err != nil {
		e.t.Fatalf("Dispatch(%T) error = %v", ev, err)
	}
}

func (e *testEnv) flush() {
	e.t.Helper()
	if err := e.m.Flush(); err != nil {
		e.t.Fatalf("Flush() error = %v", err)
	}
}

// pending returns the pixels of the pending damage region.
func (e *testEnv) pending() pixels {
	if e.m.PendingDamage() == 0 {
		return pixels{}
	}
	return e.f.regions[e.m.PendingDamage()]
}

// assertNoReportedErrors delivers outstanding errors and fails if any of
// them was reported instead of suppressed.
func (e *testEnv) assertNoReportedErrors() {
	e.t.Helper()
	e.f.deliver(e.m)
	if strings.Contains(e.log.String(), "protocol error") {
		e.t.Errorf("unexpected protocol error reported:\n%s", e.log.String())
	}
}
