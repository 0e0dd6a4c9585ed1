// Package component manages the lifecycle of the long-lived parts of a
// hypermodel process: the inference server, telemetry exporters and lazily
// loaded models.
//
// Components are started in registration order and stopped in reverse.
// A component may also describe itself and list its HTTP routes for the
// startup summary by implementing Describable and RouteProvider.
package component
