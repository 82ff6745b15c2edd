// Package collector gathers the host data that makes up a model.Snapshot.
//
// Host metrics, sockets and processes come from a Source. The default
// Source is backed by gopsutil, so the same code runs on Windows, Linux
// and macOS; tests substitute a fake. Sysmon events are read directly
// from the EVTX file with the velocidex evtx parser, which does not need
// the Windows event log API.
//
// Collection never fails as a whole because one metric is unavailable:
// partial failures are recorded on the returned structures.
package collector
