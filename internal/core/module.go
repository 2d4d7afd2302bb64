package core

// ModuleID uniquely identifies a module (e.g. "store.sqlite", "mail.gmail").
type ModuleID string

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID is the module identifier used in configuration files.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is the minimal interface every module implements. Lifecycle
// behaviour is added through the optional interfaces in lifecycle.go.
type Module interface {
	ModuleInfo() ModuleInfo
}
