package ws

import (
	"encoding/json"

	"github.com/google/uuid"
)

func newConnID() string {
	return uuid.NewString()
}

func encode(event any) ([]byte, error) {
	return json.Marshal(event)
}
