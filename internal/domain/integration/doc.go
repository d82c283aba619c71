// Package integration defines the port interfaces and value objects for
// talking to the external commerce platform. The domain layer owns the
// contracts; the concrete HTTP adapter lives in infrastructure/platform
// following the Ports & Adapters pattern.
package integration
