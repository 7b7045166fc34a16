package client

import "protect-cli/pkg/models"

// deriveAdmin reports whether the bootstrap's authenticated user may write
// camera configuration. A missing user record or empty permission list
// means no: mutation stays gated off rather than guessing.
func deriveAdmin(boot *models.Bootstrap) bool {
	for i := range boot.Users {
		if boot.Users[i].ID == boot.AuthUserID {
			return boot.Users[i].CanWrite("camera")
		}
	}
	return false
}
