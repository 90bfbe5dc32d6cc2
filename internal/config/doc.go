// Package config defines the format-agnostic graph model produced by graph
// file loaders, the Loader interface they implement, and the conversion from
// model to graph.
//
// The `config.Model` is the single source of truth for building a
// graph.Graph. Concrete loaders, such as for HCL and YAML, are provided in
// separate packages.
package config
