package postgres

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// Cursors are opaque base64-wrapped ids; pages walk ascending id order.

func encodeCursor(id uuid.UUID) string {
	return base64.StdEncoding.EncodeToString([]byte(id.String()))
}

func decodeCursor(cursor string) (uuid.UUID, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(string(raw))
}
