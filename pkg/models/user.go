package models

import "strings"

// User is a controller account as listed in the bootstrap. Permissions are
// raw "resourceType:capabilityList:scope" strings; AllPermissions includes
// entries inherited from groups.
type User struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Permissions    []string `json:"permissions"`
	AllPermissions []string `json:"allPermissions"`
}

// Permission is one parsed permission entry, e.g. "camera:read,write:all".
type Permission struct {
	Resource     string
	Capabilities []string
	Scope        string
}

// ParsePermission parses a raw permission string. Malformed entries report
// ok=false and are skipped by callers rather than treated as errors; the
// controller has been observed to ship entries with trailing fields.
func ParsePermission(raw string) (Permission, bool) {
	fields := strings.Split(raw, ":")
	if len(fields) < 3 {
		return Permission{}, false
	}
	p := Permission{
		Resource: strings.TrimSpace(fields[0]),
		Scope:    strings.TrimSpace(fields[2]),
	}
	if p.Resource == "" {
		return Permission{}, false
	}
	for _, capability := range strings.Split(fields[1], ",") {
		if capability = strings.TrimSpace(capability); capability != "" {
			p.Capabilities = append(p.Capabilities, capability)
		}
	}
	return p, true
}

// Allows reports whether the permission grants the given capability.
func (p Permission) Allows(capability string) bool {
	for _, c := range p.Capabilities {
		if strings.EqualFold(c, capability) {
			return true
		}
	}
	return false
}

// CanWrite reports whether any of the user's permission entries grant write
// access to the given resource type.
func (u *User) CanWrite(resource string) bool {
	for _, list := range [][]string{u.AllPermissions, u.Permissions} {
		for _, raw := range list {
			p, ok := ParsePermission(raw)
			if !ok {
				continue
			}
			if strings.EqualFold(p.Resource, resource) && p.Allows("write") {
				return true
			}
		}
	}
	return false
}
