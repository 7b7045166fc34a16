package client

import (
	"go.uber.org/zap"

	"protect-cli/pkg/models"
)

// EnableRTSP switches RTSP on for every channel of the given camera and
// returns the controller-confirmed state. It never assumes the local
// mutation took effect.
//
// Non-admin sessions and non-camera device kinds get the device back
// unchanged with no network call, as does a camera whose channels are all
// already enabled.
func (c *ProtectClient) EnableRTSP(device models.Camera) (models.Camera, error) {
	if err := c.Login(); err != nil {
		return device, err
	}
	if device.ModelKey != "camera" {
		return device, nil
	}
	if !c.IsAdmin() {
		c.log.Warn("cannot enable RTSP: account lacks camera write permission",
			zap.String("name", device.Name),
			zap.String("mac", device.MAC),
		)
		return device, nil
	}
	if device.AllChannelsRTSPEnabled() {
		return device, nil
	}

	channels := make([]models.Channel, len(device.Channels))
	copy(channels, device.Channels)
	for i := range channels {
		channels[i].IsRTSPEnabled = true
	}

	updated, err := c.patchCamera(device.ID, map[string]any{"channels": channels})
	if err != nil {
		if isPermissionError(err) {
			// The most actionable explanation, not a generic failure: the
			// account's role is insufficient. Hand back the best-known
			// state — whatever channels were already enabled stay usable.
			c.log.Error("controller refused RTSP change: the account needs the administrator role",
				zap.String("name", device.Name),
				zap.String("mac", device.MAC),
			)
			return device, nil
		}
		return device, err
	}
	return updated, nil
}

// UpdateCamera applies an arbitrary partial configuration payload to the
// camera and returns the controller-confirmed object. Requires an admin
// session.
func (c *ProtectClient) UpdateCamera(device models.Camera, payload any) (models.Camera, error) {
	if err := c.Login(); err != nil {
		return device, err
	}
	if !c.IsAdmin() {
		return device, ErrNotAdmin
	}
	return c.patchCamera(device.ID, payload)
}

// patchCamera issues a partial update of a camera's configuration and
// decodes the controller's view of the result.
func (c *ProtectClient) patchCamera(id string, payload any) (models.Camera, error) {
	var out models.Camera
	err := c.do("patch camera", func() error {
		resp, err := c.req().
			SetBody(payload).
			SetResult(&out).
			Patch(c.cameraURL(c.Family(), id))
		if err != nil {
			if resp != nil && resp.StatusCode() != 0 {
				return &DecodeError{Op: "patch camera", Err: err}
			}
			return err
		}
		if resp.IsError() {
			return &APIError{StatusCode: resp.StatusCode(), Op: "patch camera", Body: resp.String()}
		}
		return nil
	})
	return out, err
}
