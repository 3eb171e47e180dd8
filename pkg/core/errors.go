package core

import "fmt"

// NumericalError reports a NaN or Inf produced inside the shading core.
// It is fatal for the current call: the value signals an upstream modeling
// bug and is never clamped away. Index fields are -1 when not applicable.
type NumericalError struct {
	Stage string  // Computation that produced the value
	View  int     // Camera index in multi-view batches
	Point int     // Surface point index
	Lobe  int     // Light lobe index
	Value float64 // Offending value
}

// NewNumericalError creates an error with the view index unset
func NewNumericalError(stage string, point, lobe int, value float64) *NumericalError {
	return &NumericalError{Stage: stage, View: -1, Point: point, Lobe: lobe, Value: value}
}

func (e *NumericalError) Error() string {
	msg := fmt.Sprintf("numerical invariant violated in %s: value %v at point %d", e.Stage, e.Value, e.Point)
	if e.Lobe >= 0 {
		msg += fmt.Sprintf(" lobe %d", e.Lobe)
	}
	if e.View >= 0 {
		msg += fmt.Sprintf(" view %d", e.View)
	}
	return msg
}
