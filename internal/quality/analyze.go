package quality

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/forkful/backoffice/internal/registry"
	"github.com/forkful/backoffice/internal/resource"
	"github.com/forkful/backoffice/internal/statement"
)

// auxData carries the lookup tables the restaurant heuristics consult.
// Load failures degrade to empty maps; analysis still runs, it just
// proposes less.
type auxData struct {
	cityNames           map[int64]string
	neighborhoodsByCity map[int64][]resource.Row
}

type heuristicFunc func(ctx context.Context, s *Service, d *registry.Descriptor, row map[string]any, aux auxData) []ProposedChange

// Per-type enrichment beyond the declarative cleanup rules. Dishes have
// no entry: their hygiene is fully covered by cleanup rules today.
var heuristics = map[string]heuristicFunc{
	"restaurants": restaurantHeuristics,
	"hashtags":    hashtagHeuristics,
}

// Analyze scans every row of a type and returns the proposed changes.
// Types with neither cleanup rules nor a heuristic yield an empty slice.
func (s *Service) Analyze(ctx context.Context, resourceType string) ([]ProposedChange, error) {
	d, err := s.reg.Descriptor(resourceType)
	if err != nil {
		return nil, err
	}

	h := heuristics[d.Type]
	if len(d.CleanupRules) == 0 && h == nil {
		slog.Info("nothing to analyze", "resource_type", d.Type)
		return []ProposedChange{}, nil
	}

	rows, err := s.mgr.AllRows(ctx, d.Type)
	if err != nil {
		return nil, err
	}
	aux := s.loadAux(ctx, d)

	changes := []ProposedChange{}
	for _, row := range rows {
		if d.AnalyzeRow != nil && !d.AnalyzeRow(row) {
			continue
		}
		if h != nil {
			changes = append(changes, h(ctx, s, d, row, aux)...)
		}
		changes = append(changes, proposeCleanups(d, row)...)
	}

	slog.Info("analysis complete",
		"resource_type", d.Type,
		"rows", len(rows),
		"proposals", len(changes),
	)
	return changes, nil
}

// GetChangesByIDs re-derives the current proposals and returns those
// matching ids. Ids minted against rows that have since changed simply
// don't come back.
func (s *Service) GetChangesByIDs(ctx context.Context, resourceType string, ids []string) ([]ProposedChange, error) {
	changes, err := s.Analyze(ctx, resourceType)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	matched := []ProposedChange{}
	for _, ch := range changes {
		if wanted[ch.ChangeID] {
			matched = append(matched, ch)
		}
	}
	return matched, nil
}

func (s *Service) loadAux(ctx context.Context, d *registry.Descriptor) auxData {
	aux := auxData{
		cityNames:           map[int64]string{},
		neighborhoodsByCity: map[int64][]resource.Row{},
	}
	if d.Type != "restaurants" {
		return aux
	}

	if names, err := s.mgr.GetLookup(ctx, "cities"); err != nil {
		slog.Warn("city lookup unavailable for analysis", "error", err)
	} else {
		aux.cityNames = names
	}

	neighborhoods, err := s.mgr.AllRows(ctx, "neighborhoods")
	if err != nil {
		slog.Warn("neighborhood table unavailable for analysis", "error", err)
		return aux
	}
	for _, nb := range neighborhoods {
		cityID, ok := int64Field(nb, "city_id")
		if !ok {
			continue
		}
		aux.neighborhoodsByCity[cityID] = append(aux.neighborhoodsByCity[cityID], nb)
	}
	return aux
}

// proposeCleanups runs every cleanup rule against the stored value in
// descriptor field order. Each rule emits at most one independent change.
func proposeCleanups(d *registry.Descriptor, row map[string]any) []ProposedChange {
	var out []ProposedChange
	id := resource.RowID(row)
	for _, f := range d.Fields {
		rules, ok := d.CleanupRules[f.Name]
		if !ok {
			continue
		}
		current, ok := row[f.Name].(string)
		if !ok || current == "" {
			continue
		}
		for _, rule := range rules {
			proposed, reason, changed := applyRule(rule, current)
			if !changed {
				continue
			}
			out = append(out, ProposedChange{
				ChangeID:      changeID(d.Type, id, f.Name, string(rule.Kind), row),
				ResourceType:  d.Type,
				ResourceID:    id,
				Field:         f.Name,
				CurrentValue:  current,
				ProposedValue: proposed,
				ChangeType:    string(rule.Kind),
				ChangeReason:  reason,
				Status:        StatusProposed,
			})
		}
	}
	return out
}

// restaurantHeuristics fills gaps from external place data and assigns
// neighborhoods by zip, verified against the row's city.
func restaurantHeuristics(ctx context.Context, s *Service, d *registry.Descriptor, row map[string]any, aux auxData) []ProposedChange {
	var out []ProposedChange
	id := resource.RowID(row)

	if placeID := stringField(row, "google_place_id"); placeID != "" && s.places != nil {
		needAddress := stringField(row, "address") == ""
		needWebsite := stringField(row, "website") == ""
		if needAddress || needWebsite {
			details, err := s.places.FetchPlaceDetails(ctx, placeID)
			if err != nil {
				slog.Warn("place lookup failed", "place_id", placeID, "error", err)
			} else if details != nil {
				if needAddress && details.Address != "" {
					out = append(out, ProposedChange{
						ChangeID:      changeID(d.Type, id, "address", "fill_address", row),
						ResourceType:  d.Type,
						ResourceID:    id,
						Field:         "address",
						CurrentValue:  row["address"],
						ProposedValue: details.Address,
						ChangeType:    "fill_address",
						ChangeReason:  "address on file with the place directory",
						Status:        StatusProposed,
					})
				}
				if needWebsite && details.Website != "" {
					out = append(out, ProposedChange{
						ChangeID:      changeID(d.Type, id, "website", "fill_website", row),
						ResourceType:  d.Type,
						ResourceID:    id,
						Field:         "website",
						CurrentValue:  row["website"],
						ProposedValue: details.Website,
						ChangeType:    "fill_website",
						ChangeReason:  "website on file with the place directory",
						Status:        StatusProposed,
					})
				}
			}
		}
	}

	zip := stringField(row, "zip")
	cityID, hasCity := int64Field(row, "city_id")
	_, hasNeighborhood := int64Field(row, "neighborhood_id")
	if zip == "" || !hasCity || hasNeighborhood {
		return out
	}
	// Cities with no neighborhoods can't match; skip the query.
	if len(aux.neighborhoodsByCity[cityID]) == 0 {
		return out
	}

	stmt := statement.ZipLookup(zip)
	var (
		nbID     int64
		nbName   pgtype.Text
		nbCityID pgtype.Int8
	)
	err := s.mgr.DB().QueryRow(ctx, stmt.SQL, stmt.Args...).Scan(&nbID, &nbName, &nbCityID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		slog.Warn("zip lookup failed", "zip", zip, "error", err)
	case nbCityID.Valid && nbCityID.Int64 == cityID:
		reason := fmt.Sprintf("zip %s falls in %s", zip, nbName.String)
		if city := aux.cityNames[cityID]; city != "" {
			reason += ", " + city
		}
		out = append(out, ProposedChange{
			ChangeID:      changeID(d.Type, id, "neighborhood_id", "assign_neighborhood", row),
			ResourceType:  d.Type,
			ResourceID:    id,
			Field:         "neighborhood_id",
			CurrentValue:  row["neighborhood_id"],
			ProposedValue: nbID,
			ChangeType:    "assign_neighborhood",
			ChangeReason:  reason,
			Status:        StatusProposed,
		})
	}
	return out
}

// hashtagHeuristics proposes the canonical # prefix for bare tag names.
func hashtagHeuristics(_ context.Context, _ *Service, d *registry.Descriptor, row map[string]any, _ auxData) []ProposedChange {
	name := stringField(row, "name")
	if name == "" || strings.HasPrefix(name, "#") {
		return nil
	}
	id := resource.RowID(row)
	return []ProposedChange{{
		ChangeID:      changeID(d.Type, id, "name", "hashtag_prefix", row),
		ResourceType:  d.Type,
		ResourceID:    id,
		Field:         "name",
		CurrentValue:  row["name"],
		ProposedValue: "#" + name,
		ChangeType:    "hashtag_prefix",
		ChangeReason:  "hashtag names carry a # prefix",
		Status:        StatusProposed,
	}}
}
