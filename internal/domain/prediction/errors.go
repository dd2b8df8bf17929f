package prediction

import (
	"errors"
	"fmt"
)

var ErrClassificationContract = errors.New("classification contract violation")

// ContractViolationError is returned when a confidence is outside [0,100].
// Such values come from a scoring bug upstream and are never clamped.
type ContractViolationError struct {
	Index      int
	Player     string
	Source     string
	Confidence float64
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("prediction %d (%s from %s) has confidence %v outside [0,100]", e.Index, e.Player, e.Source, e.Confidence)
}

func (e *ContractViolationError) Is(target error) bool {
	return target == ErrClassificationContract
}
