package game

import (
	"maps"
	"slices"
	"time"

	"github.com/scythe504/mission-backend/internal"
)

// Session is one running game. It is only ever touched with Engine.mu held.
type Session struct {
	id         string
	seq        uint64
	players    []string
	badFaction []int
	succession []int
	history    []internal.MissionResult
	state      internal.GameState
	outcome    internal.Outcome

	// Round-scoped, reset whenever the round moves on.
	nominees     []int
	votes        map[int]bool
	lastVote     map[int]bool
	missionGroup []int
	missionVotes map[int]bool

	startedAt time.Time
	endedAt   time.Time
}

func (s *Session) indexOf(playerID string) int {
	return slices.Index(s.players, playerID)
}

func (s *Session) round() int {
	return len(s.history)
}

func (s *Session) leader() int {
	return s.succession[0]
}

// rotateLeader moves the current leader to the back of the queue.
func (s *Session) rotateLeader() {
	s.succession = append(s.succession[1:], s.succession[0])
}

func (s *Session) missionSize() int {
	return internal.MissionSizes[len(s.players)][s.round()]
}

func (s *Session) isBad(index int) bool {
	return slices.Contains(s.badFaction, index)
}

func (s *Session) tally() (failed, succeeded int) {
	for _, m := range s.history {
		if m.IsFailure {
			failed++
		} else {
			succeeded++
		}
	}
	return failed, succeeded
}

// view projects the session for the player at index. Nothing in the result
// aliases session state.
func (s *Session) view(index int) internal.PlayerGameInfo {
	info := internal.PlayerGameInfo{
		Id:             s.id,
		PlayerIndex:    index,
		State:          s.state,
		Players:        slices.Clone(s.players),
		Succession:     slices.Clone(s.succession),
		MissionHistory: slices.Clone(s.history),
		Outcome:        s.outcome,
	}
	if info.MissionHistory == nil {
		info.MissionHistory = []internal.MissionResult{}
	}
	if s.lastVote != nil {
		info.LastVote = maps.Clone(s.lastVote)
	}
	if s.isBad(index) {
		info.BadFaction = slices.Clone(s.badFaction)
	}

	switch s.state {
	case internal.StateNomination:
		info.NextMissionSize = s.missionSize()
		info.FailThreshold = internal.FailThreshold(len(s.players), s.round())
	case internal.StateVote:
		info.CurrentNominations = slices.Clone(s.nominees)
		voted := hasEntry(s.votes, index)
		info.HasMadeSelection = &voted
	case internal.StateMission:
		info.CurrentMissionGroup = slices.Clone(s.missionGroup)
		info.FailThreshold = internal.FailThreshold(len(s.players), s.round())
		if slices.Contains(s.missionGroup, index) {
			acted := hasEntry(s.missionVotes, index)
			info.HasMadeSelection = &acted
		}
	case internal.StateEnd:
		info.BadFaction = slices.Clone(s.badFaction)
	}
	return info
}

// summary is the public record. The bad faction is only included once the
// game is over.
func (s *Session) summary() internal.GameSummary {
	sum := internal.GameSummary{
		Id:             s.id,
		State:          s.state,
		Players:        slices.Clone(s.players),
		Succession:     slices.Clone(s.succession),
		MissionHistory: slices.Clone(s.history),
		Outcome:        s.outcome,
		StartedAt:      s.startedAt,
		EndedAt:        s.endedAt,
	}
	if sum.MissionHistory == nil {
		sum.MissionHistory = []internal.MissionResult{}
	}
	if s.state == internal.StateEnd {
		sum.BadFaction = slices.Clone(s.badFaction)
	}
	return sum
}

func hasEntry(m map[int]bool, key int) bool {
	_, ok := m[key]
	return ok
}
