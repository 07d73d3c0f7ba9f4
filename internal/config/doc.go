// Package config defines the format-agnostic description of a program, the
// Loader interface implemented by the file-format adapters, and BuildModule,
// which turns a description into an immutable hlo.Module.
//
// The Model is the single source of truth between the adapters and the
// scheduling packages. Concrete loaders live in hcl_adapter and
// yaml_adapter.
package config
