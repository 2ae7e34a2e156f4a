package comp

import "github.com/BurntSushi/xgb/xproto"

// Registry holds the known windows in stacking order, topmost first.
type Registry struct {
	windows []*Window
}

// Len returns the number of registered windows.
func (r *Registry) Len() int {
	return len(r.windows)
}

// Windows returns a copy of the stacking order, topmost first.
func (r *Registry) Windows() []*Window {
	out := make([]*Window, len(r.windows))
	copy(out, r.windows)
	return out
}

// Top returns the topmost window, or nil.
func (r *Registry) Top() *Window {
	if len(r.windows) == 0 {
		return nil
	}
	return r.windows[0]
}

// Find returns the window with the given id, or nil.
func (r *Registry) Find(id xproto.Window) *Window {
	if i := r.index(id); i >= 0 {
		return r.windows[i]
	}
	return nil
}

// InsertFront registers w as the topmost window.
func (r *Registry) InsertFront(w *Window) {
	r.windows = append(r.windows, nil)
	copy(r.windows[1:], r.windows)
	r.windows[0] = w
}

// Remove unregisters the window with the given id and returns it.
func (r *Registry) Remove(id xproto.Window) *Window {
	i := r.index(id)
	if i < 0 {
		return nil
	}
	w := r.windows[i]
	r.windows = append(r.windows[:i], r.windows[i+1:]...)
	return w
}

// Successor returns the id of the window directly below w, or
// xproto.WindowNone when w is bottommost or unknown.
func (r *Registry) Successor(w *Window) xproto.Window {
	i := r.index(w.ID)
	if i < 0 || i+1 >= len(r.windows) {
		return xproto.WindowNone
	}
	return r.windows[i+1].ID
}

// Restack moves w directly above the window identified by below, or to the
// bottom when below is xproto.WindowNone or unknown. It reports whether the
// order changed.
func (r *Registry) Restack(w *Window, below xproto.Window) bool {
	i := r.index(w.ID)
	if i < 0 || below == w.ID || r.Successor(w) == below {
		return false
	}
	r.windows = append(r.windows[:i], r.windows[i+1:]...)

	j := len(r.windows)
	if below != xproto.WindowNone {
		if k := r.index(below); k >= 0 {
			j = k
		}
	}
	r.windows = append(r.windows, nil)
	copy(r.windows[j+1:], r.windows[j:])
	r.windows[j] = w
	return j != i
}

func (r *Registry) index(id xproto.Window) int {
	for i, w := range r.windows {
		if w.ID == id {
			return i
		}
	}
	return -1
}
