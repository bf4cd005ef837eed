package x11

import "github.com/BurntSushi/xgb/xproto"

// Visual describes one visual of the connection's screen.
type Visual struct {
	ID    xproto.Visualid
	Depth byte
	Class byte
	// Alpha reports whether the visual carries bits beyond its RGB masks,
	// which compositors treat as per-pixel alpha.
	Alpha bool
}

// Visuals lists the visuals of the selected screen, keyed by id.
func (c *Connection) Visuals() map[xproto.Visualid]Visual {
	screen := c.XUtil.Setup().Roots[c.Screen]
	out := make(map[xproto.Visualid]Visual)
	for _, d := range screen.AllowedDepths {
		for _, v := range d.Visuals {
			out[v.VisualId] = Visual{
				ID:    v.VisualId,
				Depth: d.Depth,
				Class: v.Class,
				Alpha: hasAlpha(d.Depth, v.RedMask|v.GreenMask|v.BlueMask),
			}
		}
	}
	return out
}

func hasAlpha(depth byte, rgbMask uint32) bool {
	bits := 0
	for m := rgbMask; m != 0; m &= m - 1 {
		bits++
	}
	return int(depth) > bits
}
