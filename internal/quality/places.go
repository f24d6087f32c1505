package quality

import "context"

// PlaceDetails is the slice of an external place record the analyzer can
// propose from.
type PlaceDetails struct {
	Address string
	Website string
}

// PlaceLookup fetches place details for restaurants that carry an
// external place id. Implementations may return (nil, nil) when the
// place is unknown.
type PlaceLookup interface {
	FetchPlaceDetails(ctx context.Context, placeID string) (*PlaceDetails, error)
}

// DisabledPlaceLookup is the no-op lookup used when outbound place calls
// are turned off. It never errors and never returns details.
type DisabledPlaceLookup struct{}

func (DisabledPlaceLookup) FetchPlaceDetails(ctx context.Context, placeID string) (*PlaceDetails, error) {
	return nil, nil
}
