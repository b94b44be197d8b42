package services

import (
	"errors"
	"log"
	"time"

	"card-battle-engine/models"

	"gorm.io/gorm"
)

// sweepRetries bounds per-match conflict retries within one sweep pass. A
// conflict means someone else advanced the match; one re-read is enough to
// tell whether anything is still left to do.
const sweepRetries = 2

// SweepStatus enumerates the per-match outcomes of a timeout check.
type SweepStatus string

const (
	SweepNotTimedOut SweepStatus = "not_timed_out"
	SweepSkipped     SweepStatus = "skipped"
	SweepForfeited   SweepStatus = "forfeited"
	SweepNotFound    SweepStatus = "not_found"
	SweepNotActive   SweepStatus = "not_active"
	SweepConflict    SweepStatus = "conflict"
	SweepFailed      SweepStatus = "failed"
)

// SweepOutcome is the structured result for one match, so callers branch on
// it programmatically instead of parsing text.
type SweepOutcome struct {
	MatchID          string            `json:"match_id"`
	Status           SweepStatus       `json:"status"`
	RemainingSeconds *int              `json:"remaining_seconds,omitempty"`
	NextTurnOwner    string            `json:"next_turn_owner,omitempty"`
	WarningCount     int               `json:"warning_count,omitempty"`
	Settlement       *SettlementResult `json:"settlement,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// SweeperService detects turns that exceeded their allotment and applies the
// timeout policy: skip with a warning, or forfeit once the warnings reach the
// threshold. It holds no state of its own — timeout detection is a pure
// function of (now, turn_started_at, turn_timeout_seconds) recomputed on each
// pass, so running it on any schedule, including after downtime, is safe.
type SweeperService struct {
	Store      *MatchStore
	Settlement *SettlementService
	Policy     EnginePolicy
}

func NewSweeperService(store *MatchStore, settlement *SettlementService, policy EnginePolicy) *SweeperService {
	return &SweeperService{Store: store, Settlement: settlement, Policy: policy}
}

// CheckOne evaluates a single match's turn clock and applies the policy if it
// ran out. Never an error for the expected races: a match that vanished,
// ended, or advanced concurrently comes back as a structured outcome.
func (s *SweeperService) CheckOne(matchID string) SweepOutcome {
	for attempt := 0; ; attempt++ {
		m, err := s.Store.Load(matchID)
		if err != nil {
			return outcomeForError(matchID, err)
		}
		out, err := s.checkMatch(m)
		if errors.Is(err, ErrTurnConflict) && attempt < sweepRetries {
			continue // advanced under us; re-read and recompute
		}
		if err != nil {
			return outcomeForError(matchID, err)
		}
		return out
	}
}

// SweepAll runs CheckOne's policy over every active match. One match's
// failure never stops the rest of the sweep, and re-running the whole sweep
// after a partial failure is always safe — settlement is idempotent.
func (s *SweeperService) SweepAll() ([]SweepOutcome, error) {
	matches, err := s.Store.ListActive()
	if err != nil {
		return nil, err
	}

	outcomes := make([]SweepOutcome, 0, len(matches))
	for i := range matches {
		out, err := s.checkMatch(&matches[i])
		if errors.Is(err, ErrTurnConflict) {
			// one immediate re-read, then give up for this pass
			out = s.CheckOne(matches[i].ID)
		} else if err != nil {
			out = outcomeForError(matches[i].ID, err)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// checkMatch applies the timeout policy to one loaded match. Every transition
// goes through the store's conditional mutation, so a match advanced by a
// concurrent move or sweep surfaces as ErrTurnConflict instead of being
// double-processed.
func (s *SweeperService) checkMatch(m *models.Match) (SweepOutcome, error) {
	if m.Terminal() {
		return SweepOutcome{MatchID: m.ID, Status: SweepNotActive}, nil
	}

	// A turn clock that never started cannot run out.
	if m.TurnStartedAt == nil {
		return SweepOutcome{MatchID: m.ID, Status: SweepNotTimedOut}, nil
	}

	timeout := time.Duration(m.TurnTimeoutSeconds) * time.Second
	elapsed := time.Since(*m.TurnStartedAt)
	if elapsed <= timeout {
		remaining := int((timeout - elapsed).Seconds())
		return SweepOutcome{MatchID: m.ID, Status: SweepNotTimedOut, RemainingSeconds: &remaining}, nil
	}

	timedOut := m.CurrentTurnOwner
	opponent := m.Opponent(timedOut)
	pre := PreconditionOf(m)

	// A bot timing out is an external scheduling fault, not the bot's fault:
	// hand the turn to the human without a warning, but say so loudly.
	if s.Policy.IsBot(timedOut) {
		_, err := s.Store.TryAdvance(m.ID, pre, func(tx *gorm.DB, locked *models.Match) ([]models.MoveRecord, error) {
			rotateTurn(locked, opponent)
			return []models.MoveRecord{{
				Actor:      timedOut,
				ActionType: models.ActionTimeoutSkip,
				StateJSON:  turnSnapshot(locked),
			}}, nil
		})
		if err != nil {
			return SweepOutcome{}, err
		}
		log.Printf("🤖 Bot %s timed out on match %s — scheduling fault, turn handed to %s without penalty",
			timedOut, m.ID, opponent)
		return SweepOutcome{
			MatchID:       m.ID,
			Status:        SweepSkipped,
			NextTurnOwner: opponent,
			WarningCount:  m.Warnings(timedOut),
		}, nil
	}

	newCount := m.Warnings(timedOut) + 1

	// Reaching the threshold forfeits the match in the same atomic mutation
	// that records the final warning — there is no observable state where the
	// threshold is met but the match is still active.
	if newCount >= s.Policy.ForfeitThreshold {
		var result *SettlementResult
		_, err := s.Store.TryAdvance(m.ID, pre, func(tx *gorm.DB, locked *models.Match) ([]models.MoveRecord, error) {
			incrementWarning(locked, timedOut)
			res, err := s.Settlement.settleLocked(tx, locked, opponent, timedOut, models.ReasonTimeoutForfeit)
			if err != nil {
				return nil, err
			}
			result = res
			return []models.MoveRecord{{
				Actor:      timedOut,
				ActionType: models.ActionForfeit,
				StateJSON:  turnSnapshot(locked),
			}}, nil
		})
		if err != nil {
			return SweepOutcome{}, err
		}
		s.Settlement.AfterSettle(result)
		return SweepOutcome{
			MatchID:      m.ID,
			Status:       SweepForfeited,
			WarningCount: newCount,
			Settlement:   result,
		}, nil
	}

	// Below threshold: record the warning, skip the turn, restart the clock.
	_, err := s.Store.TryAdvance(m.ID, pre, func(tx *gorm.DB, locked *models.Match) ([]models.MoveRecord, error) {
		incrementWarning(locked, timedOut)
		rotateTurn(locked, opponent)
		return []models.MoveRecord{{
			Actor:      timedOut,
			ActionType: models.ActionTimeoutSkip,
			StateJSON:  turnSnapshot(locked),
		}}, nil
	})
	if err != nil {
		return SweepOutcome{}, err
	}
	return SweepOutcome{
		MatchID:       m.ID,
		Status:        SweepSkipped,
		NextTurnOwner: opponent,
		WarningCount:  newCount,
	}, nil
}

func rotateTurn(m *models.Match, nextOwner string) {
	now := time.Now()
	m.CurrentTurnOwner = nextOwner
	m.TurnStartedAt = &now
}

func incrementWarning(m *models.Match, participant string) {
	if participant == m.PlayerA {
		m.TimeoutWarningsA++
	} else {
		m.TimeoutWarningsB++
	}
}

func outcomeForError(matchID string, err error) SweepOutcome {
	switch {
	case errors.Is(err, ErrMatchNotFound):
		return SweepOutcome{MatchID: matchID, Status: SweepNotFound}
	case errors.Is(err, ErrMatchNotActive), errors.Is(err, ErrAlreadySettled):
		return SweepOutcome{MatchID: matchID, Status: SweepNotActive}
	case errors.Is(err, ErrTurnConflict):
		return SweepOutcome{MatchID: matchID, Status: SweepConflict}
	default:
		return SweepOutcome{MatchID: matchID, Status: SweepFailed, Error: err.Error()}
	}
}
