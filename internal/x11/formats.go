package x11

import (
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/glasspane/internal/comp"
)

// Formats indexes the server's picture formats by visual.
type Formats struct {
	visuals map[xproto.Visualid]comp.Format
	alpha   render.Pictformat
}

// NewFormats builds the index from a QueryPictFormats reply.
func NewFormats(reply *render.QueryPictFormatsReply) *Formats {
	info := make(map[render.Pictformat]render.Pictforminfo, len(reply.Formats))
	f := &Formats{visuals: make(map[xproto.Visualid]comp.Format)}
	for _, pf := range reply.Formats {
		info[pf.Id] = pf
		if f.alpha == 0 && isA8(pf) {
			f.alpha = pf.Id
		}
	}
	for _, screen := range reply.Screens {
		for _, depth := range screen.Depths {
			for _, v := range depth.Visuals {
				pf, ok := info[v.Format]
				if !ok {
					continue
				}
				f.visuals[v.Visual] = comp.Format{
					ID:    pf.Id,
					Alpha: pf.Type == render.PictTypeDirect && pf.Direct.AlphaMask != 0,
				}
			}
		}
	}
	return f
}

func isA8(pf render.Pictforminfo) bool {
	d := pf.Direct
	return pf.Type == render.PictTypeDirect && pf.Depth == 8 &&
		d.AlphaMask == 0xff && d.RedMask == 0 && d.GreenMask == 0 && d.BlueMask == 0
}

// Lookup returns the format matching visual v.
func (f *Formats) Lookup(v xproto.Visualid) (comp.Format, bool) {
	format, ok := f.visuals[v]
	return format, ok
}

// Alpha returns the 8-bit alpha-only format, or 0 if the server has none.
func (f *Formats) Alpha() render.Pictformat {
	return f.alpha
}
