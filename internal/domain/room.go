package domain

import "strings"

// RoomID is a composite room identifier of the form "building/room",
// e.g. "к1/2" is room 2 in building к1.
type RoomID string

func (r RoomID) Building() string {
	if i := strings.Index(string(r), "/"); i >= 0 {
		return string(r)[:i]
	}
	return ""
}

func (r RoomID) Room() string {
	if i := strings.Index(string(r), "/"); i >= 0 {
		return string(r)[i+1:]
	}
	return ""
}

func (r RoomID) Valid() bool {
	s := string(r)
	i := strings.Index(s, "/")
	if i <= 0 || i == len(s)-1 {
		return false
	}
	// Exactly one separator.
	return strings.Count(s, "/") == 1
}
