package models

// Camera represents a single camera entry from the controller bootstrap.
// MAC is the stable identity used when comparing inventories across
// refreshes; the controller reuses IDs but never MACs.
type Camera struct {
	ID              string    `json:"id"`
	MAC             string    `json:"mac"`
	ModelKey        string    `json:"modelKey"` // "camera" for camera devices
	Name            string    `json:"name"`
	Type            string    `json:"type"`
	Host            string    `json:"host"`
	State           string    `json:"state"` // e.g. "CONNECTED"
	FirmwareVersion string    `json:"firmwareVersion"`
	IsManaged       bool      `json:"isManaged"`
	Channels        []Channel `json:"channels"`
}

// Channel is one video stream on a camera. RTSP state is only ever taken
// from a controller response, never inferred locally.
type Channel struct {
	ID            int    `json:"id"`
	Name          string `json:"name,omitempty"`
	IsRTSPEnabled bool   `json:"isRtspEnabled"`
	RTSPAlias     string `json:"rtspAlias,omitempty"`
}

// AllChannelsRTSPEnabled reports whether every channel on the camera already
// has RTSP switched on. A camera with no channels counts as fully enabled.
func (c *Camera) AllChannelsRTSPEnabled() bool {
	for _, ch := range c.Channels {
		if !ch.IsRTSPEnabled {
			return false
		}
	}
	return true
}
