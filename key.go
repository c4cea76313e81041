package playstate

import (
	"github.com/google/uuid"
)

// Key identifies one record: a user and an item key within the caller's domain.
// Key is comparable and is used as-is in the in-process cache.
type Key struct {
	UserID uuid.UUID
	Item   string
}

// String renders "<uuid>/<item>". The uuid part is fixed width so the result is
// unambiguous for any item.
func (k Key) String() string {
	return k.UserID.String() + "/" + k.Item
}

func (k Key) valid() bool {
	return k.UserID != uuid.Nil && k.Item != ""
}

func newKey(op string, userID uuid.UUID, item string) (Key, error) {
	k := Key{UserID: userID, Item: item}
	if k.valid() {
		return k, nil
	}
	param := "item"
	if userID == uuid.Nil {
		param = "userID"
	}
	return Key{}, &ArgumentError{Op: op, Param: param, Err: ErrInvalidKey}
}
