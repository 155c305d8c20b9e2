package ai

import (
	"errors"
	"fmt"
)

var ErrOracleCall = errors.New("oracle call failed")

// OracleCallError wraps a failed request to the language model after all
// retries. Op names the pipeline step, e.g. "extract" or "answer".
type OracleCallError struct {
	Op  string
	Err error
}

func (e *OracleCallError) Error() string {
	return fmt.Sprintf("oracle %s: %v", e.Op, e.Err)
}

func (e *OracleCallError) Unwrap() error {
	return e.Err
}

func (e *OracleCallError) Is(target error) bool {
	return target == ErrOracleCall
}
