package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// ManagerName is set as the title of the selection owner window.
const ManagerName = "glasspane"

// SelectionName returns the compositing manager selection for a screen.
func SelectionName(screen int) string {
	return fmt.Sprintf("_NET_WM_CM_S%d", screen)
}

// AcquireSelection claims the compositing manager selection of the default
// screen with a small unmapped window. It fails with ErrAnotherManager if
// the selection already has an owner.
func (c *Connection) AcquireSelection() (xproto.Window, error) {
	name := SelectionName(c.Screen)
	atom, err := xprop.Atm(c.XUtil, name)
	if err != nil {
		return 0, fmt.Errorf("intern %s: %w", name, err)
	}

	owner, err := xproto.GetSelectionOwner(c.Conn(), atom).Reply()
	if err != nil {
		return 0, fmt.Errorf("get %s owner: %w", name, err)
	}
	if owner.Owner != xproto.WindowNone {
		return 0, fmt.Errorf("%w: %s is owned by %s", ErrAnotherManager, name, c.windowName(owner.Owner))
	}

	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("allocate selection window: %w", err)
	}
	if err := win.CreateChecked(c.Root, -1, -1, 1, 1, 0); err != nil {
		return 0, fmt.Errorf("create selection window: %w", err)
	}
	// Titles are advisory; failing to set them is not fatal.
	ewmh.WmNameSet(c.XUtil, win.Id, ManagerName)
	icccm.WmNameSet(c.XUtil, win.Id, ManagerName)

	xproto.SetSelectionOwner(c.Conn(), win.Id, atom, xproto.TimeCurrentTime)
	return win.Id, nil
}

// windowName describes a window for diagnostics.
func (c *Connection) windowName(w xproto.Window) string {
	if name, err := ewmh.WmNameGet(c.XUtil, w); err == nil && name != "" {
		return fmt.Sprintf("%q (0x%x)", name, uint32(w))
	}
	if name, err := icccm.WmNameGet(c.XUtil, w); err == nil && name != "" {
		return fmt.Sprintf("%q (0x%x)", name, uint32(w))
	}
	return fmt.Sprintf("window 0x%x", uint32(w))
}
