package logrecord

import "errors"

var (
	ErrLogNotFound     = errors.New("log not found")
	ErrVehicleNotFound = errors.New("vehicle not found")
)
