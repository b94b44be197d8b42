package services

import (
	"encoding/json"
	"fmt"
	"log"

	"card-battle-engine/models"
	"card-battle-engine/utils"

	"github.com/gosimple/slug"
)

// ReplayService archives finished matches (terminal record + full move log)
// to R2 so match history can be served from the CDN instead of the engine DB.
// Archiving is best-effort: it runs after the settlement commit and a failure
// never affects the settled match.
type ReplayService struct {
	Store *MatchStore
}

func NewReplayService(store *MatchStore) *ReplayService {
	return &ReplayService{Store: store}
}

type replayDocument struct {
	Match *models.Match       `json:"match"`
	Moves []models.MoveRecord `json:"moves"`
}

// Archive uploads the replay document for a settled match.
func (s *ReplayService) Archive(matchID string) error {
	m, err := s.Store.Load(matchID)
	if err != nil {
		return err
	}
	if !m.Terminal() {
		return fmt.Errorf("match %s is not finished, nothing to archive", matchID)
	}

	moves, err := s.Store.MoveLog(matchID)
	if err != nil {
		return err
	}

	doc, err := json.Marshal(replayDocument{Match: m, Moves: moves})
	if err != nil {
		return fmt.Errorf("failed to marshal replay: %w", err)
	}

	key := ReplayObjectKey(m)
	url, err := utils.UploadReplayToR2(key, doc)
	if err != nil {
		return err
	}
	log.Printf("📼 Archived replay for match %s → %s", matchID, url)
	return nil
}

// ReplayObjectKey builds a human-readable, URL-safe object key.
func ReplayObjectKey(m *models.Match) string {
	return fmt.Sprintf("replays/%s-%s.json", slug.Make(m.PlayerA+"-vs-"+m.PlayerB), m.ID)
}
