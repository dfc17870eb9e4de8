// Package event defines the domain model for one production run: identity,
// metadata, module toggles, input references, and per-module execution
// results, along with the on-disk event directory layout and the YAML
// descriptor snapshot.
package event
