package domain

import "testing"

func TestRoomIDParts(t *testing.T) {
	r := RoomID("к1/2")
	if r.Building() != "к1" {
		t.Errorf("expected building к1, got %s", r.Building())
	}
	if r.Room() != "2" {
		t.Errorf("expected room 2, got %s", r.Room())
	}
}

func TestRoomIDValid(t *testing.T) {
	valid := []RoomID{"к1/1", "Б1/2", "a/b"}
	for _, r := range valid {
		if !r.Valid() {
			t.Errorf("expected %q to be valid", r)
		}
	}

	invalid := []RoomID{"", "к1", "/1", "к1/", "к1/1/2"}
	for _, r := range invalid {
		if r.Valid() {
			t.Errorf("expected %q to be invalid", r)
		}
	}
}
