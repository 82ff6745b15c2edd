// Package pipeline runs the collection steps that fill a model.Snapshot.
//
// A collect run passes one snapshot through the system, network, processes
// and sysmon steps in order. Each step writes its own section. A step that
// cannot read its data records the failure in that section (for example
// NetworkInfo.Error) and returns nil, so one unavailable source never loses
// the rest of the snapshot. Steps that do return an error are recorded in
// Snapshot.StepErrors.
//
// The pipeline checks for cancellation between steps, so an interrupted
// collect stops promptly without leaving a half-running step behind.
package pipeline
