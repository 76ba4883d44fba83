// Package rooms exposes the room reference data grouped by building.
// Implementations fail soft: on a backing-store error they log and return
// empty results, and the caller treats an empty list as "unavailable".
package rooms

import (
	"context"
	"sort"
	"strings"

	"github.com/svaboev-coder/Tornado-cooking/internal/domain"
)

type Directory interface {
	// ListBuildings returns the known building prefixes, sorted.
	ListBuildings(ctx context.Context) []string
	// ListRooms returns the rooms of one building, sorted.
	ListRooms(ctx context.Context, building string) []domain.RoomID
}

func buildingsOf(all []domain.RoomID) []string {
	seen := make(map[string]bool)
	var buildings []string
	for _, room := range all {
		b := room.Building()
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		buildings = append(buildings, b)
	}
	sort.Strings(buildings)
	return buildings
}

func roomsIn(all []domain.RoomID, building string) []domain.RoomID {
	var matched []domain.RoomID
	prefix := building + "/"
	for _, room := range all {
		if strings.HasPrefix(string(room), prefix) {
			matched = append(matched, room)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i] < matched[j] })
	return matched
}
