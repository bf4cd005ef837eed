package x11

import "fmt"

// XlibError is an X error delivered to glkit's Xlib error handler. It
// satisfies xgb.Error, so Xlib requests bracket and map the same way as
// requests on an xgb connection.
type XlibError struct {
	Name     string
	Code     uint8
	Request  uint8
	Minor    uint8
	Serial   uint64
	Resource uint64
}

func (e XlibError) SequenceId() uint16 { return uint16(e.Serial) }
func (e XlibError) BadId() uint32      { return uint32(e.Resource) }

func (e XlibError) Error() string {
	return fmt.Sprintf("%s {Code: %d, Request: %d.%d, Serial: %d, Resource: 0x%x}",
		e.Name, e.Code, e.Request, e.Minor, e.Serial, e.Resource)
}

var coreErrorNames = [...]string{
	1:  "BadRequest",
	2:  "BadValue",
	3:  "BadWindow",
	4:  "BadPixmap",
	5:  "BadAtom",
	6:  "BadCursor",
	7:  "BadFont",
	8:  "BadMatch",
	9:  "BadDrawable",
	10: "BadAccess",
	11: "BadAlloc",
	12: "BadColormap",
	13: "BadGContext",
	14: "BadIDChoice",
	15: "BadName",
	16: "BadLength",
	17: "BadImplementation",
}

// GLX errors in protocol order, offset from the extension's first error.
var glxErrorNames = [...]string{
	"BadContext",
	"BadContextState",
	"BadDrawable",
	"BadPixmap",
	"BadContextTag",
	"BadCurrentWindow",
	"BadRenderRequest",
	"BadLargeRequest",
	"UnsupportedPrivateRequest",
	"BadFBConfig",
	"BadPbuffer",
	"BadCurrentDrawable",
	"BadWindow",
	"GLXBadProfileARB",
}

// xlibErrorName names an Xlib error code the way xgb names the same error.
// glxBase is the GLX extension's first error code, or 0 when the server has
// no GLX.
func xlibErrorName(code uint8, glxBase int) string {
	if int(code) < len(coreErrorNames) && coreErrorNames[code] != "" {
		return coreErrorNames[code]
	}
	if glxBase > 0 {
		if off := int(code) - glxBase; off >= 0 && off < len(glxErrorNames) {
			return glxErrorNames[off]
		}
	}
	return fmt.Sprintf("XError%d", code)
}
