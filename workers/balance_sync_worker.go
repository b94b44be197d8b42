package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"card-battle-engine/models"
	"card-battle-engine/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BalanceSyncClient reconciles the local balance mirror against the custodial
// wallet service. Settlement credits land on the mirror immediately; this
// worker pulls the wallet service's view so the two converge.
type BalanceSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

// NewBalanceSyncClient returns nil when WALLET_SERVICE_URL is unset — the
// engine then runs with the local mirror only.
func NewBalanceSyncClient(db *gorm.DB) *BalanceSyncClient {
	baseURL := os.Getenv("WALLET_SERVICE_URL")
	if baseURL == "" {
		log.Println("⚠️  WALLET_SERVICE_URL not set — balance sync worker disabled")
		return nil
	}
	token := os.Getenv("ENGINE_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("ENGINE_SERVICE_TOKEN environment variable is required for balance sync")
	}

	return &BalanceSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

func (c *BalanceSyncClient) GetChangedBalances(ctx context.Context, since time.Time) ([]models.BalanceMirror, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/balances", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call wallet service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("wallet service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Balances []models.BalanceMirror `json:"balances"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode wallet service response: %w", err)
	}

	return response.Balances, nil
}

// PollBalances runs until ctx is cancelled, batch-upserting changed balances
// into balance_mirror. The sync window only advances after a successful
// upsert, so a failed batch is retried on the next tick.
func PollBalances(ctx context.Context, client *BalanceSyncClient, pollInterval time.Duration) {
	if client == nil {
		return
	}
	log.Println("Starting balance polling (DB-backed)...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Balance polling stopped.")
			return
		case <-ticker.C:
			tickTime := time.Now().UTC()

			balances, err := client.GetChangedBalances(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling balances: %v", err)
				continue
			}

			if len(balances) == 0 {
				continue
			}

			now := time.Now()
			for i := range balances {
				balances[i].LastSyncedAt = &now
			}

			if err := client.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "user_id"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"currency",
						"balance",
						"last_synced_at",
						"updated_at",
					}),
				},
			).Create(&balances).Error; err != nil {
				log.Printf("❌ Failed to upsert %d balance(s) into balance_mirror: %v", len(balances), err)
				continue
			}

			lastSyncTime = tickTime
			log.Printf("✅ Upserted %d balance(s) into balance_mirror table.", len(balances))
		}
	}
}
