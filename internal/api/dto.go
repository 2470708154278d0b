package api

import (
	"github.com/signalsfoundry/meshlink-planner/core"
	"github.com/signalsfoundry/meshlink-planner/radio"
)

// Entry points into the engine.
const (
	EntryRange      = "range"
	EntryThroughput = "throughput"
)

// EstimateRequest is the wire form of one estimation call. The link
// parameters are flattened into the top-level JSON object.
type EstimateRequest struct {
	// Entry selects the range (environment applied) or throughput (free
	// space, clear sky) entry point. Empty means range.
	Entry string `json:"entry,omitempty"`
	// Mode is "mcs0_7" or "mcs8_15". Empty means mcs0_7.
	Mode string `json:"mode,omitempty"`

	core.LinkParameters
}

// VariantsResponse lists the radio catalog.
type VariantsResponse struct {
	Variants []radio.RadioVariant `json:"variants"`
}

// ErrorResponse is the JSON body of a failed REST call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
