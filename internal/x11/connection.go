package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil  *xgbutil.XUtil
	Root   xproto.Window
	Screen int
	// Shape is set when the shape extension is available.
	Shape bool
	// Errors holds the first error code of each extension in use.
	Errors ErrorBases
}

// NewConnection connects to display, or to $DISPLAY when display is empty.
func NewConnection(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("cannot open display: %w", err)
	}
	return &Connection{
		XUtil:  xu,
		Root:   xu.RootWin(),
		Screen: xu.Conn().DefaultScreen,
	}, nil
}

// Conn returns the underlying protocol connection.
func (c *Connection) Conn() *xgb.Conn {
	return c.XUtil.Conn()
}

// ScreenInfo returns the setup information of the default screen.
func (c *Connection) ScreenInfo() *xproto.ScreenInfo {
	return c.XUtil.Screen()
}

// InitExtensions negotiates the extensions compositing depends on. Render,
// composite 0.2, damage and xfixes 2.0 are required; shape is optional.
func (c *Connection) InitExtensions() error {
	conn := c.Conn()

	var err error
	if err = render.Init(conn); err != nil {
		return fmt.Errorf("no render extension: %w", err)
	}
	if _, err := render.QueryVersion(conn, 0, 11).Reply(); err != nil {
		return fmt.Errorf("render version query failed: %w", err)
	}
	if c.Errors.Render, err = c.firstError("RENDER"); err != nil {
		return err
	}

	if err := composite.Init(conn); err != nil {
		return fmt.Errorf("no composite extension: %w", err)
	}
	cv, err := composite.QueryVersion(conn, 0, 2).Reply()
	if err != nil {
		return fmt.Errorf("composite version query failed: %w", err)
	}
	if cv.MajorVersion == 0 && cv.MinorVersion < 2 {
		return fmt.Errorf("composite extension version %d.%d is too old", cv.MajorVersion, cv.MinorVersion)
	}

	if err := damage.Init(conn); err != nil {
		return fmt.Errorf("no damage extension: %w", err)
	}
	if _, err := damage.QueryVersion(conn, 1, 1).Reply(); err != nil {
		return fmt.Errorf("damage version query failed: %w", err)
	}
	if c.Errors.Damage, err = c.firstError("DAMAGE"); err != nil {
		return err
	}

	if err := xfixes.Init(conn); err != nil {
		return fmt.Errorf("no XFixes extension: %w", err)
	}
	xv, err := xfixes.QueryVersion(conn, 2, 0).Reply()
	if err != nil {
		return fmt.Errorf("XFixes version query failed: %w", err)
	}
	if xv.MajorVersion < 2 {
		return fmt.Errorf("XFixes extension version %d.%d is too old", xv.MajorVersion, xv.MinorVersion)
	}
	if c.Errors.XFixes, err = c.firstError("XFIXES"); err != nil {
		return err
	}

	if err := shape.Init(conn); err == nil {
		if _, err := shape.QueryVersion(conn).Reply(); err == nil {
			c.Shape = true
		}
	}
	return nil
}

// firstError returns the base of the error codes assigned to extension name.
func (c *Connection) firstError(name string) (byte, error) {
	reply, err := xproto.QueryExtension(c.Conn(), uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("query %s extension: %w", name, err)
	}
	if !reply.Present {
		return 0, fmt.Errorf("%s extension not present", name)
	}
	return reply.FirstError, nil
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
