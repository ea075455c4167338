// Package adapter provides the warehouse adapter contract and the shared
// database/sql plumbing that concrete adapters embed.
//
// Concrete adapter implementations live in pkg/adapters/ subdirectories and
// register themselves from init().
package adapter

import (
	"github.com/leapstack-labs/leapetl/pkg/core"
)

type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Rows is an alias for core.Rows.
	Rows = core.Rows

	// BulkLoadRequest is an alias for core.BulkLoadRequest.
	BulkLoadRequest = core.BulkLoadRequest
)
