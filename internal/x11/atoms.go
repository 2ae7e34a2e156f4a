package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/1broseidon/glasspane/internal/comp"
)

// Root properties that may hold the wallpaper pixmap, in order of preference.
var backgroundProperties = []string{"_XROOTPMAP_ID", "_XSETROOT_ID"}

// InternAtoms resolves the property names the compositor watches.
func (c *Connection) InternAtoms(opacityProperty string) (comp.Atoms, error) {
	atoms := comp.Atoms{Pixmap: xproto.AtomPixmap}

	var err error
	if atoms.Opacity, err = xprop.Atm(c.XUtil, opacityProperty); err != nil {
		return comp.Atoms{}, fmt.Errorf("intern %s: %w", opacityProperty, err)
	}
	for _, name := range backgroundProperties {
		a, err := xprop.Atm(c.XUtil, name)
		if err != nil {
			return comp.Atoms{}, fmt.Errorf("intern %s: %w", name, err)
		}
		atoms.Background = append(atoms.Background, a)
	}
	return atoms, nil
}
