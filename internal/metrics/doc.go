// Package metrics exposes Prometheus instrumentation for the layout loop,
// the event sources and the live viewer.
//
// Every Record method is safe to call on a nil *Registry, so components can
// take an optional registry without guarding each call.
package metrics
