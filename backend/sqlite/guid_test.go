package sqlite

import "github.com/google/uuid"

// parseGUIDBytes is the inverse of guidBytes.
func parseGUIDBytes(b []byte) (uuid.UUID, bool) {
	var u uuid.UUID
	if len(b) != 16 {
		return u, false
	}
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:], b[8:])
	return u, true
}
