package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrSendRejected is returned when the initial send is refused by the gateway.
	ErrSendRejected = errors.New("transaction send rejected")

	// ErrSimulationFailed is returned when pre-flight simulation reports an error.
	ErrSimulationFailed = errors.New("transaction simulation failed")

	// ErrRecordNotFound is returned when a confirmed transaction cannot be fetched.
	ErrRecordNotFound = errors.New("transaction record not found")
)

// SimulationError carries the simulation error and program logs.
type SimulationError struct {
	Err  interface{}
	Logs []string
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSimulationFailed, describe(e.Err))
}

func (e *SimulationError) Unwrap() error {
	return ErrSimulationFailed
}

// describe renders an on-chain error value as JSON.
func describe(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
