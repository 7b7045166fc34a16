package client

import (
	"errors"

	"go.uber.org/zap"

	"protect-cli/pkg/models"
)

// RefreshDevices synchronizes the client with the controller: it ensures an
// authenticated session, fetches the full bootstrap snapshot, diffs the
// camera inventory against the previous one, recomputes admin status, and
// keeps the realtime listener running on controllers that have one.
//
// The snapshot is replaced only after the whole fetch and parse succeed; a
// partial failure leaves the previous inventory intact. Callers drive retry
// by invoking this again on their own schedule.
func (c *ProtectClient) RefreshDevices() error {
	if err := c.Login(); err != nil {
		return err
	}
	family := c.Family()

	var boot models.Bootstrap
	err := c.do("bootstrap", func() error {
		resp, err := c.req().SetResult(&boot).Get(c.bootstrapURL(family))
		if err != nil {
			// A response arrived but the body would not decode.
			if resp != nil && resp.StatusCode() != 0 {
				return &DecodeError{Op: "bootstrap", Err: err}
			}
			return err
		}
		if resp.IsError() {
			return &APIError{StatusCode: resp.StatusCode(), Op: "bootstrap", Body: resp.String()}
		}
		// A 200 without a camera list is not a snapshot. The most likely
		// cause on a reachable host is a stale session, so this counts as a
		// decode failure and clears it.
		if boot.Cameras == nil {
			return &DecodeError{Op: "bootstrap", Err: errors.New("response body lacks a camera list")}
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	prev := c.bootstrap
	c.bootstrap = &boot

	firstRun := !c.adminKnown
	wasAdmin := c.isAdmin
	admin := deriveAdmin(&boot)
	c.isAdmin = admin
	c.adminKnown = true

	alreadyConnected := c.connected
	c.connected = true
	c.mu.Unlock()

	if !alreadyConnected {
		c.log.Info("connected to controller",
			zap.String("name", boot.NVR.Name),
			zap.String("address", c.cfg.Address),
			zap.String("mac", boot.NVR.MAC),
			zap.String("version", boot.NVR.Version),
		)
		if c.cfg.Hooks.Connected != nil {
			c.cfg.Hooks.Connected(boot.NVR)
		}
	}

	var prevCams []models.Camera
	if prev != nil {
		prevCams = prev.Cameras
	}
	discovered, removed := diffCameras(prevCams, boot.Cameras)
	for _, cam := range removed {
		c.log.Info("camera removed",
			zap.String("name", cam.Name),
			zap.String("model", cam.Type),
			zap.String("mac", cam.MAC),
			zap.String("host", cam.Host),
		)
		if c.cfg.Hooks.DeviceRemoved != nil {
			c.cfg.Hooks.DeviceRemoved(cam)
		}
	}
	for _, cam := range discovered {
		if !cam.IsManaged {
			continue
		}
		c.log.Info("camera discovered",
			zap.String("name", cam.Name),
			zap.String("model", cam.Type),
			zap.String("mac", cam.MAC),
			zap.String("host", cam.Host),
		)
		if c.cfg.Hooks.DeviceDiscovered != nil {
			c.cfg.Hooks.DeviceDiscovered(cam)
		}
	}

	if firstRun {
		c.log.Info("controller account capability", zap.Bool("admin", admin))
	} else if admin != wasAdmin {
		c.log.Warn("controller account capability changed", zap.Bool("admin", admin))
		if c.cfg.Hooks.RoleChanged != nil {
			c.cfg.Hooks.RoleChanged(admin)
		}
	}

	// Only the unified OS exposes a realtime feed; for legacy controllers
	// the bootstrap poll is the whole story.
	if family == FamilyUnifiOS {
		c.ensureListener(boot.LastUpdateID)
	}
	return nil
}

// diffCameras splits the new inventory against the previous one by MAC.
// Order follows the controller's listing order.
func diffCameras(prev, next []models.Camera) (discovered, removed []models.Camera) {
	prevByMAC := make(map[string]models.Camera, len(prev))
	for _, cam := range prev {
		prevByMAC[cam.MAC] = cam
	}
	nextByMAC := make(map[string]bool, len(next))
	for _, cam := range next {
		nextByMAC[cam.MAC] = true
		if _, ok := prevByMAC[cam.MAC]; !ok {
			discovered = append(discovered, cam)
		}
	}
	for _, cam := range prev {
		if !nextByMAC[cam.MAC] {
			removed = append(removed, cam)
		}
	}
	return discovered, removed
}
