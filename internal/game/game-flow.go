package game

import (
	"log"
	"maps"
	"slices"

	"github.com/scythe504/mission-backend/internal"
)

// =============================================================================
// GAME FLOW - ROUND MANAGEMENT
// =============================================================================

// ApplyMove validates move against the current state of gameID and applies
// it. A rejected move leaves the session untouched.
func (e *Engine) ApplyMove(gameID, playerID string, move internal.Move) error {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	s, ok := e.sessions[gameID]
	if !ok {
		e.mu.Unlock()
		return internal.ErrNoSuchGame
	}
	idx := s.indexOf(playerID)
	if idx < 0 {
		e.mu.Unlock()
		return internal.ErrPlayerNotInGame
	}

	var err error
	switch s.state {
	case internal.StateNomination:
		err = e.handleNomination(s, idx, move)
	case internal.StateVote:
		err = e.handleVote(s, idx, move)
	case internal.StateMission:
		err = e.handleMission(s, idx, move)
	default:
		err = internal.ErrGameEnded
	}
	if err != nil {
		e.mu.Unlock()
		return err
	}

	summary := s.summary()
	pending := []pendingEvent{{EventUpdate, summary}}
	if s.state == internal.StateEnd {
		pending = append(pending, pendingEvent{EventEnd, summary})
	}
	e.mu.Unlock()

	e.emit(pending)
	return nil
}

func (e *Engine) handleNomination(s *Session, idx int, move internal.Move) error {
	if idx != s.leader() {
		return internal.ErrIllegalActor
	}
	if move.Nominations == nil {
		return internal.ErrIllegalMoveShape
	}
	seen := make(map[int]bool, len(move.Nominations))
	for _, n := range move.Nominations {
		if n < 0 || n >= len(s.players) || seen[n] {
			return internal.ErrIllegalNomination
		}
		seen[n] = true
	}
	if len(move.Nominations) != s.missionSize() {
		return internal.ErrIllegalNominationCount
	}

	s.nominees = slices.Clone(move.Nominations)
	s.votes = make(map[int]bool, len(s.players))
	s.state = internal.StateVote

	names := make([]string, 0, len(s.nominees))
	for _, n := range s.nominees {
		names = append(names, s.players[n])
	}
	log.Printf("[ApplyMove] %s: %s nominated %v", s.id, s.players[idx], names)
	return nil
}

func (e *Engine) handleVote(s *Session, idx int, move internal.Move) error {
	if move.Approve == nil {
		return internal.ErrIllegalMoveShape
	}
	s.votes[idx] = *move.Approve
	log.Printf("[ApplyMove] %s: %s %s nomination", s.id, s.players[idx], verdict(*move.Approve, "approved", "rejected"))

	if len(s.votes) < len(s.players) {
		return nil
	}

	approvals := 0
	for _, approve := range s.votes {
		if approve {
			approvals++
		}
	}
	// An exact half carries the vote.
	if approvals >= len(s.players)/2 {
		s.state = internal.StateMission
		s.missionGroup = s.nominees
		s.missionVotes = make(map[int]bool, len(s.missionGroup))
		log.Printf("[ApplyMove] %s: vote passes %d/%d", s.id, approvals, len(s.players))
	} else {
		s.state = internal.StateNomination
		s.rotateLeader()
		log.Printf("[ApplyMove] %s: vote fails %d/%d, %s is next leader",
			s.id, approvals, len(s.players), s.players[s.leader()])
	}
	s.lastVote = maps.Clone(s.votes)
	s.nominees = nil
	s.votes = nil
	return nil
}

func (e *Engine) handleMission(s *Session, idx int, move internal.Move) error {
	if !slices.Contains(s.missionGroup, idx) {
		return internal.ErrIllegalActor
	}
	if move.Succeed == nil {
		return internal.ErrIllegalMoveShape
	}
	s.missionVotes[idx] = *move.Succeed
	log.Printf("[ApplyMove] %s: %s selects %s for the current mission",
		s.id, s.players[idx], verdict(*move.Succeed, "succeed", "fail"))

	if len(s.missionVotes) < len(s.missionGroup) {
		return nil
	}

	fails := 0
	for _, succeed := range s.missionVotes {
		if !succeed {
			fails++
		}
	}
	result := internal.MissionResult{
		FailCount: fails,
		IsFailure: fails >= internal.FailThreshold(len(s.players), s.round()),
	}
	s.history = append(s.history, result)
	s.missionGroup = nil
	s.missionVotes = nil
	log.Printf("[ApplyMove] %s: mission %d %s", s.id, len(s.history), verdict(!result.IsFailure, "successful", "failed"))

	failed, succeeded := s.tally()
	switch {
	case failed == internal.MissionsToWin:
		e.endSession(s, internal.OutcomeBad)
	case succeeded == internal.MissionsToWin:
		e.endSession(s, internal.OutcomeGood)
	default:
		s.state = internal.StateNomination
		s.rotateLeader()
		log.Printf("[ApplyMove] %s: %s is next leader", s.id, s.players[s.leader()])
	}
	return nil
}

func (e *Engine) endSession(s *Session, outcome internal.Outcome) {
	s.state = internal.StateEnd
	s.outcome = outcome
	s.endedAt = e.now()
	log.Printf("[ApplyMove] %s: game ended, %s faction wins", s.id, outcome)
}

func verdict(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
