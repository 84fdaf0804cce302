package utils

import (
	"strings"

	"github.com/google/uuid"
)

// CreateToken returns an opaque 64 character random token.
func CreateToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
