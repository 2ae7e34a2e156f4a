package x11

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// ErrorBases are the first error codes the server assigned to extensions.
type ErrorBases struct {
	XFixes byte
	Damage byte
	Render byte
}

// Code returns the numeric protocol code of err. Extension errors are
// offset by the extension's base; unknown error types report false.
func (b ErrorBases) Code(err xgb.Error) (byte, bool) {
	switch err.(type) {
	case xproto.RequestError:
		return xproto.BadRequest, true
	case xproto.ValueError:
		return xproto.BadValue, true
	case xproto.WindowError:
		return xproto.BadWindow, true
	case xproto.PixmapError:
		return xproto.BadPixmap, true
	case xproto.AtomError:
		return xproto.BadAtom, true
	case xproto.CursorError:
		return xproto.BadCursor, true
	case xproto.FontError:
		return xproto.BadFont, true
	case xproto.MatchError:
		return xproto.BadMatch, true
	case xproto.DrawableError:
		return xproto.BadDrawable, true
	case xproto.AccessError:
		return xproto.BadAccess, true
	case xproto.AllocError:
		return xproto.BadAlloc, true
	case xproto.ColormapError:
		return xproto.BadColormap, true
	case xproto.GContextError:
		return xproto.BadGContext, true
	case xproto.IDChoiceError:
		return xproto.BadIDChoice, true
	case xproto.NameError:
		return xproto.BadName, true
	case xproto.LengthError:
		return xproto.BadLength, true
	case xproto.ImplementationError:
		return xproto.BadImplementation, true

	case xfixes.BadRegionError:
		return b.XFixes + xfixes.BadBadRegion, true
	case damage.BadDamageError:
		return b.Damage + damage.BadBadDamage, true
	case render.PictFormatError:
		return b.Render + render.BadPictFormat, true
	case render.PictureError:
		return b.Render + render.BadPicture, true
	case render.PictOpError:
		return b.Render + render.BadPictOp, true
	case render.GlyphSetError:
		return b.Render + render.BadGlyphSet, true
	case render.GlyphError:
		return b.Render + render.BadGlyph, true
	}
	return 0, false
}
