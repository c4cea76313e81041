package sqlite

import "github.com/google/uuid"

// guidBytes lays u out the way .NET's Guid.ToByteArray does: Data1, Data2 and
// Data3 little-endian, Data4 as-is.
func guidBytes(u uuid.UUID) []byte {
	b := make([]byte, 16)
	b[0], b[1], b[2], b[3] = u[3], u[2], u[1], u[0]
	b[4], b[5] = u[5], u[4]
	b[6], b[7] = u[7], u[6]
	copy(b[8:], u[8:])
	return b
}
