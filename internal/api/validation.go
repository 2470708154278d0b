package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/signalsfoundry/meshlink-planner/core"
)

// ErrInvalidRequest covers request envelope problems (entry point, missing
// variant) that core.Validate does not see.
var ErrInvalidRequest = errors.New("invalid estimate request")

// ValidateRequest checks req and returns a copy with the entry point, mode,
// climate and terrain model normalised to their canonical spellings.
func ValidateRequest(req EstimateRequest) (EstimateRequest, error) {
	out := req

	switch entry := strings.ToLower(strings.TrimSpace(req.Entry)); entry {
	case "", EntryRange:
		out.Entry = EntryRange
	case EntryThroughput:
		out.Entry = EntryThroughput
	default:
		return req, fmt.Errorf("%w: entry must be %q or %q, got %q", ErrInvalidRequest, EntryRange, EntryThroughput, req.Entry)
	}

	mode, err := core.ParseMode(req.Mode)
	if err != nil {
		return req, err
	}
	out.Mode = string(mode)

	out.Variant = strings.TrimSpace(req.Variant)
	if out.Variant == "" {
		return req, fmt.Errorf("%w: variant is required", ErrInvalidRequest)
	}

	climate, err := core.ParseClimate(string(req.Climate))
	if err != nil {
		return req, err
	}
	out.Climate = climate

	model, err := core.ParsePathLossModel(string(req.PathLossModel))
	if err != nil {
		return req, err
	}
	out.PathLossModel = model

	if err := core.Validate(out.LinkParameters); err != nil {
		return req, err
	}
	return out, nil
}
