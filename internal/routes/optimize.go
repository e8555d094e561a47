package routes

import (
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/geo"
)

// nearestNeighborOrder greedily reorders stops by travel distance: start at
// the first stop with coordinates, then repeatedly pick the closest remaining
// one. Stops without coordinates keep their relative order at the tail. With
// fewer than two located stops the input order is returned untouched.
func nearestNeighborOrder(stops []models.Stop) []models.Stop {
	var located, unlocated []models.Stop
	for _, stop := range stops {
		if stop.HasCoordinates() {
			located = append(located, stop)
		} else {
			unlocated = append(unlocated, stop)
		}
	}
	if len(located) < 2 {
		return stops
	}

	ordered := make([]models.Stop, 0, len(stops))
	ordered = append(ordered, located[0])
	remaining := located[1:]

	for len(remaining) > 0 {
		last := ordered[len(ordered)-1]
		best := 0
		bestDist := geo.DistanceKm(*last.Lat, *last.Lng, *remaining[0].Lat, *remaining[0].Lng)
		for i := 1; i < len(remaining); i++ {
			d := geo.DistanceKm(*last.Lat, *last.Lng, *remaining[i].Lat, *remaining[i].Lng)
			if d < bestDist {
				best = i
				bestDist = d
			}
		}
		ordered = append(ordered, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return append(ordered, unlocated...)
}
