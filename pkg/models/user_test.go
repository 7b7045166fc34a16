package models

import "testing"

func TestParsePermission(t *testing.T) {
	tests := []struct {
		raw      string
		ok       bool
		resource string
		caps     int
		scope    string
	}{
		{"camera:read,write:all", true, "camera", 2, "all"},
		{"camera:read:all", true, "camera", 1, "all"},
		{"liveview:read,create,write,delete:user", true, "liveview", 4, "user"},
		{"camera:read,write:all:extra", true, "camera", 2, "all"},
		{"camera:read", false, "", 0, ""},
		{"", false, "", 0, ""},
		{":read:all", false, "", 0, ""},
	}

	for _, tc := range tests {
		p, ok := ParsePermission(tc.raw)
		if ok != tc.ok {
			t.Errorf("ParsePermission(%q) ok = %v, want %v", tc.raw, ok, tc.ok)
			continue
		}
		if !ok {
			continue
		}
		if p.Resource != tc.resource {
			t.Errorf("ParsePermission(%q).Resource = %q, want %q", tc.raw, p.Resource, tc.resource)
		}
		if len(p.Capabilities) != tc.caps {
			t.Errorf("ParsePermission(%q) capabilities = %v, want %d entries", tc.raw, p.Capabilities, tc.caps)
		}
		if p.Scope != tc.scope {
			t.Errorf("ParsePermission(%q).Scope = %q, want %q", tc.raw, p.Scope, tc.scope)
		}
	}
}

func TestUserCanWrite(t *testing.T) {
	admin := User{ID: "u1", AllPermissions: []string{"camera:read,write:all"}}
	if !admin.CanWrite("camera") {
		t.Error("user with camera:read,write:all should have camera write access")
	}

	viewer := User{ID: "u2", AllPermissions: []string{"camera:read:all"}}
	if viewer.CanWrite("camera") {
		t.Error("user with camera:read:all should not have camera write access")
	}

	// Malformed entries are skipped, valid ones still count.
	mixed := User{ID: "u3", Permissions: []string{"garbage", "camera:write:all"}}
	if !mixed.CanWrite("camera") {
		t.Error("valid entry after malformed one should still grant access")
	}

	empty := User{ID: "u4"}
	if empty.CanWrite("camera") {
		t.Error("user without permissions should not have write access")
	}
}

func TestUserCanWriteLeavesSlicesIntact(t *testing.T) {
	// Decoded slices often carry spare capacity; scanning the two lists
	// must never spill entries into AllPermissions' backing array.
	backing := make([]string, 1, 4)
	backing[0] = "camera:read:all"
	u := User{
		ID:             "u1",
		AllPermissions: backing,
		Permissions:    []string{"camera:write:all"},
	}

	if !u.CanWrite("camera") {
		t.Fatal("camera:write:all in Permissions should grant write access")
	}

	spare := backing[:cap(backing)]
	for i := 1; i < len(spare); i++ {
		if spare[i] != "" {
			t.Errorf("backing slot %d = %q, want it untouched", i, spare[i])
		}
	}
	if len(u.AllPermissions) != 1 || u.AllPermissions[0] != "camera:read:all" {
		t.Errorf("AllPermissions = %v, want unchanged", u.AllPermissions)
	}
}

func TestCameraAllChannelsRTSPEnabled(t *testing.T) {
	cam := Camera{Channels: []Channel{{ID: 0, IsRTSPEnabled: true}, {ID: 1, IsRTSPEnabled: false}}}
	if cam.AllChannelsRTSPEnabled() {
		t.Error("camera with a disabled channel should not report fully enabled")
	}
	cam.Channels[1].IsRTSPEnabled = true
	if !cam.AllChannelsRTSPEnabled() {
		t.Error("camera with all channels enabled should report fully enabled")
	}
}
