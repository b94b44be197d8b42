package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"card-battle-engine/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

// settleRetries bounds how often Settle re-reads after a turn conflict before
// surfacing the conflict. Persistent conflict on a settle is a load problem
// worth observing, not masking.
const settleRetries = 3

// SettlementService is the single chokepoint through which a match leaves the
// active state. Rating and reward side effects happen exactly once per match,
// no matter how many triggers race or retry.
type SettlementService struct {
	Store   *MatchStore
	Balance *BalanceService
	Policy  EnginePolicy
	Replays *ReplayService // optional; nil disables archiving
}

func NewSettlementService(store *MatchStore, balance *BalanceService, policy EnginePolicy, replays *ReplayService) *SettlementService {
	return &SettlementService{Store: store, Balance: balance, Policy: policy, Replays: replays}
}

// SettlementResult is the outcome surface callers render from directly.
type SettlementResult struct {
	MatchID     string  `json:"match_id"`
	Winner      string  `json:"winner"`
	Loser       string  `json:"loser"`
	RatingDelta int     `json:"rating_delta"`
	Reward      float64 `json:"reward"`
	RewardPaid  bool    `json:"reward_paid"` // false for bot winners
	Reason      string  `json:"reason"`
}

// Settle transitions the match to completed with the given winner. Safe to
// call any number of times, concurrently or after a crash-and-retry: losers
// of the race get ErrAlreadySettled and no side effect fires twice.
func (s *SettlementService) Settle(matchID, winner, loser, reason string) (*SettlementResult, error) {
	var result *SettlementResult

	for attempt := 0; attempt < settleRetries; attempt++ {
		m, err := s.Store.Load(matchID)
		if err != nil {
			return nil, err
		}
		if m.Terminal() {
			return nil, ErrAlreadySettled
		}
		if !m.HasParticipant(winner) || !m.HasParticipant(loser) || winner == loser {
			return nil, fmt.Errorf("participants %q/%q do not belong to match %s", winner, loser, matchID)
		}

		_, err = s.Store.TryAdvance(matchID, PreconditionOf(m), func(tx *gorm.DB, locked *models.Match) ([]models.MoveRecord, error) {
			res, err := s.settleLocked(tx, locked, winner, loser, reason)
			if err != nil {
				return nil, err
			}
			result = res
			return []models.MoveRecord{{
				Actor:      loser,
				ActionType: models.ActionForfeit,
				StateJSON:  turnSnapshot(locked),
			}}, nil
		})
		if errors.Is(err, ErrTurnConflict) {
			continue // someone advanced the turn; re-read and re-check
		}
		if errors.Is(err, ErrMatchNotActive) {
			return nil, ErrAlreadySettled
		}
		if err != nil {
			return nil, err
		}

		s.AfterSettle(result)
		return result, nil
	}
	return nil, ErrTurnConflict
}

// settleLocked applies the terminal transition to an already-locked active
// match. All writes (both rating rows, terminal match fields, reward credit)
// share the caller's transaction — never split across two commits that
// another caller could interleave. The sweeper calls this from inside its own
// conditional mutation so the final warning increment and the forfeiture are
// one atomic step.
func (s *SettlementService) settleLocked(tx *gorm.DB, m *models.Match, winner, loser, reason string) (*SettlementResult, error) {
	winnerRating, err := loadRating(tx, winner)
	if err != nil {
		return nil, err
	}
	loserRating, err := loadRating(tx, loser)
	if err != nil {
		return nil, err
	}

	delta := RatingDelta(winnerRating.Rating, loserRating.Rating)
	if err := applyRatings(tx, winnerRating, loserRating, delta); err != nil {
		return nil, err
	}

	reward := s.Policy.RewardForEntryFee(m.EntryFee)
	now := time.Now()
	m.Status = models.MatchStatusCompleted
	m.Winner = &winner
	m.Loser = &loser
	m.RatingDelta = &delta
	m.WinnerReward = &reward
	m.SettleReason = &reason
	m.FinishedAt = &now

	// Bots hold no spendable balance: record the outcome for history and
	// leaderboards but skip the disbursement entirely.
	rewardPaid := false
	if !s.Policy.IsBot(winner) && reward > 0 {
		token := SettlementClaimToken(m.ID)
		err := s.Balance.Credit(tx, winner, reward, token, m.ID)
		switch {
		case errors.Is(err, ErrDuplicateClaim):
			// credit already landed on an earlier attempt; nothing to redo
		case err != nil:
			return nil, err
		default:
			rewardPaid = true
		}
	}

	return &SettlementResult{
		MatchID:     m.ID,
		Winner:      winner,
		Loser:       loser,
		RatingDelta: delta,
		Reward:      reward,
		RewardPaid:  rewardPaid,
		Reason:      reason,
	}, nil
}

// SettlementClaimToken derives the one claim token a match settlement is
// allowed to spend. Deriving it from the match id (instead of minting per
// attempt) is what makes crash-and-retry safe.
func SettlementClaimToken(matchID string) string {
	return "settlement:" + matchID
}

var rewardPrinter = message.NewPrinter(language.English)

// AfterSettle runs post-commit bookkeeping: the settlement log line and the
// replay archive upload. Never called while the match row lock is held.
func (s *SettlementService) AfterSettle(res *SettlementResult) {
	if res == nil {
		return
	}
	log.Printf("🏁 Match %s settled (%s): %s beats %s, Δ%d, reward %s (paid=%t)",
		res.MatchID, res.Reason, res.Winner, res.Loser, res.RatingDelta,
		rewardPrinter.Sprintf("%.2f", res.Reward), res.RewardPaid)

	if s.Replays != nil {
		if err := s.Replays.Archive(res.MatchID); err != nil {
			log.Printf("⚠️ Failed to archive replay for match %s: %v", res.MatchID, err)
		}
	}
}
