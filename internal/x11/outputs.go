package x11

import (
	"github.com/BurntSushi/xgb/randr"
	"github.com/pkg/errors"

	"github.com/tilde-wm/tilde/internal/geometry"
	"github.com/tilde-wm/tilde/internal/wm"
)

// Outputs queries RandR for every CRTC. Disabled CRTCs come back with
// zero geometry; the manager skips them but uses the zero size as the
// removal signal on change events, so they are reported rather than
// filtered here.
func (c *Connection) Outputs() ([]wm.OutputInfo, error) {
	resources, err := randr.GetScreenResourcesCurrent(c.xu.Conn(), c.root).Reply()
	if err != nil {
		return nil, errors.Wrap(err, "getting screen resources")
	}

	var outputs []wm.OutputInfo
	for _, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.xu.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			return nil, errors.Wrapf(err, "querying crtc %d", crtc)
		}
		outputs = append(outputs, wm.OutputInfo{
			ID: crtc,
			Geom: geometry.Viewport{
				X:      int(info.X),
				Y:      int(info.Y),
				Width:  int(info.Width),
				Height: int(info.Height),
			},
		})
	}
	return outputs, nil
}
