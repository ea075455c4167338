// Package core defines the shared language of leapetl.
//
// This package contains:
//   - Warehouse connection types (AdapterConfig, Rows)
//   - Object-storage credentials and bulk-load requests
//   - Run and task-run records shared by the runner and the state store
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
