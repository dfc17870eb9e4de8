// Package registry declares the workflow modules vestry can run. Each
// module is described once, in declaration order, together with its
// adapter, prerequisites, and idempotency class. The planner and engine
// consume descriptors; they never instantiate adapters themselves.
package registry
