package rooms

import (
	"context"

	"github.com/svaboev-coder/Tornado-cooking/internal/domain"
)

// DefaultFixtureRooms is the demo room set used when the live store is
// unavailable or demo mode is requested.
var DefaultFixtureRooms = []domain.RoomID{"к1/1", "к1/2", "к2/1", "Б1/1", "Б1/2"}

// FixtureDirectory serves a fixed room list. The workflow engine cannot tell
// it apart from the live directory.
type FixtureDirectory struct {
	rooms []domain.RoomID
}

func NewFixtureDirectory(roomIDs ...domain.RoomID) *FixtureDirectory {
	if len(roomIDs) == 0 {
		roomIDs = DefaultFixtureRooms
	}
	return &FixtureDirectory{rooms: roomIDs}
}

func (d *FixtureDirectory) ListBuildings(_ context.Context) []string {
	return buildingsOf(d.rooms)
}

func (d *FixtureDirectory) ListRooms(_ context.Context, building string) []domain.RoomID {
	return roomsIn(d.rooms, building)
}

var _ Directory = (*FixtureDirectory)(nil)
