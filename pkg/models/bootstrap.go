package models

// Bootstrap is the controller's full-state snapshot: every adopted device,
// every user account, and the NVR's own identity. The client replaces its
// copy atomically on each successful fetch.
type Bootstrap struct {
	AuthUserID   string   `json:"authUserId"`
	LastUpdateID string   `json:"lastUpdateId"`
	AccessKey    string   `json:"accessKey,omitempty"`
	Cameras      []Camera `json:"cameras"`
	Users        []User   `json:"users"`
	NVR          NVR      `json:"nvr"`
}

// NVR carries the controller's own identity, surfaced on the one-time
// connected notification and in CLI output.
type NVR struct {
	ID              string `json:"id"`
	MAC             string `json:"mac"`
	Name            string `json:"name"`
	Host            string `json:"host"`
	Version         string `json:"version"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
}
