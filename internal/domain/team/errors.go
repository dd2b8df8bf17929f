package team

import (
	"errors"
	"fmt"
)

var ErrUnknownTeam = errors.New("unknown team")

// UnknownTeamError reports a team string with no canonical mapping.
// Provider is empty when the lookup named no provider.
type UnknownTeamError struct {
	Sport    string
	Provider string
	Value    string
}

func (e *UnknownTeamError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("unknown team %q for sport %q", e.Value, e.Sport)
	}
	return fmt.Sprintf("unknown team %q for sport %q from provider %q", e.Value, e.Sport, e.Provider)
}

func (e *UnknownTeamError) Is(target error) bool {
	return target == ErrUnknownTeam
}
