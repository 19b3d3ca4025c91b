package storage

import (
	"errors"
	"fmt"
	"path"

	"github.com/google/uuid"
)

// FileName is the download name and the last segment of every plan key.
const FileName = "business_plan.txt"

var ErrNotFound = errors.New("plan not found")

// planKey scopes the plan file to its session so concurrent sessions never share a path.
func planKey(sessionID string) (string, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}
	return path.Join(sessionID, FileName), nil
}
