// Package model defines the core domain models used throughout the application.
package model

import (
	"math"
	"time"
)

// RunState is a position in the training run lifecycle.
type RunState string

// Run state constants, in lifecycle order.
const (
	StateLoaded        RunState = "LOADED"
	StateSorted        RunState = "SORTED"
	StateSplit         RunState = "SPLIT"
	StateHealthChecked RunState = "HEALTH_CHECKED"
	StatePassed        RunState = "PASSED"
	StateFailed        RunState = "FAILED"
	StateFullTrain     RunState = "FULL_TRAIN"
	StatePackaged      RunState = "PACKAGED"
	StateAborted       RunState = "ABORTED"
)

// runTransitions lists the states reachable from each state. Any state may
// also move to ABORTED on error.
var runTransitions = map[RunState][]RunState{
	"":                 {StateLoaded},
	StateLoaded:        {StateSorted},
	StateSorted:        {StateSplit},
	StateSplit:         {StateHealthChecked},
	StateHealthChecked: {StatePassed, StateFailed},
	StatePassed:        {StateFullTrain},
	StateFailed:        {StateAborted},
	StateFullTrain:     {StatePackaged},
}

// CanTransition reports whether a run may move from one state to another.
func CanTransition(from, to RunState) bool {
	if to == StateAborted {
		return from != StatePackaged && from != StateAborted
	}
	for _, next := range runTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s RunState) IsTerminal() bool {
	return s == StatePackaged || s == StateAborted
}

// TrainingRun is one health-check evaluation, appended to the training
// history whether or not the model was promoted.
type TrainingRun struct {
	RunAt          time.Time
	ID             string
	MAE            float64
	MAPE           float64
	TrainingRows   int
	ValidationRows int
}

// NewTrainingRun rounds metrics the way they are reported: MAE to whole yen,
// MAPE to four decimal places.
func NewTrainingRun(id string, at time.Time, mae, mape float64, trainingRows, validationRows int) TrainingRun {
	return TrainingRun{
		ID:             id,
		RunAt:          at,
		MAE:            math.Round(mae),
		MAPE:           math.Round(mape*1e4) / 1e4,
		TrainingRows:   trainingRows,
		ValidationRows: validationRows,
	}
}
