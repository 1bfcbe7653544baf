package internal

import "slices"

// Methods (LobbyRoom struct)
func (r *LobbyRoom) HasMember(id string) bool {
	return slices.Contains(r.Members, id)
}

func (r *LobbyRoom) IsFull() bool {
	return len(r.Members) >= MaxRoomMembers
}

func (r *LobbyRoom) CanStartGame() bool {
	return ValidRosterSize(len(r.Members))
}

// RemoveMember drops id from the member list and reports whether it was there.
func (r *LobbyRoom) RemoveMember(id string) bool {
	idx := slices.Index(r.Members, id)
	if idx < 0 {
		return false
	}
	r.Members = slices.Delete(r.Members, idx, idx+1)
	return true
}

// Snapshot returns a copy that shares no slices with r.
func (r *LobbyRoom) Snapshot() LobbyRoom {
	cp := *r
	cp.Members = slices.Clone(r.Members)
	return cp
}

// Listing resolves member ids through name and drops the password.
func (r *LobbyRoom) Listing(name func(string) string) RoomListing {
	players := make([]string, 0, len(r.Members))
	for _, id := range r.Members {
		players = append(players, name(id))
	}
	return RoomListing{
		Id:      r.Id,
		Kind:    r.Kind,
		Host:    name(r.Host),
		Players: players,
	}
}
