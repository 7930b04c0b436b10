//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os/user"
	"strings"
)

var errNoUsername = errors.New("current user has no name")

// DetectHeartbeatKey returns the login name of the current user, the default
// key a heartbeat is recorded under. Domain prefixes ("HOST\\name") are dropped.
func DetectHeartbeatKey() (string, error) {
	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}

	name := currentUser.Username
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}

	if name == "" {
		return "", errNoUsername
	}

	return name, nil
}
