package services

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnginePolicy holds the tunable match rules (env-overridable, see
// PolicyFromEnv). Kept separate from the concurrency-critical mechanism so
// the numbers can change without touching settlement or sweep code.
type EnginePolicy struct {
	BotPrefix        string        // reserved participant-id prefix for bots
	ForfeitThreshold int           // warnings before a timeout forfeits the match
	HouseFee         float64       // flat fee taken out of the prize pool
	DefaultPlayerHP  int           // starting hit points per participant
	SweepInterval    time.Duration // cadence of the background sweep
}

var DefaultPolicy = EnginePolicy{
	BotPrefix:        "bot:",
	ForfeitThreshold: 2,
	HouseFee:         5,
	DefaultPlayerHP:  100,
	SweepInterval:    10 * time.Second,
}

// PolicyFromEnv returns DefaultPolicy with any env overrides applied.
func PolicyFromEnv() EnginePolicy {
	p := DefaultPolicy
	if v := os.Getenv("BOT_ID_PREFIX"); v != "" {
		p.BotPrefix = v
	}
	if v := os.Getenv("FORFEIT_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.ForfeitThreshold = n
		}
	}
	if v := os.Getenv("HOUSE_FEE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			p.HouseFee = f
		}
	}
	if v := os.Getenv("DEFAULT_PLAYER_HP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.DefaultPlayerHP = n
		}
	}
	if v := os.Getenv("SWEEP_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.SweepInterval = time.Duration(n) * time.Second
		}
	}
	return p
}

// IsBot reports whether a participant id names a non-human bot.
func (p EnginePolicy) IsBot(participant string) bool {
	return strings.HasPrefix(participant, p.BotPrefix)
}

// RewardForEntryFee is the payout policy: both entry fees pooled, minus the
// house fee, never below zero.
func (p EnginePolicy) RewardForEntryFee(entryFee float64) float64 {
	reward := entryFee*2 - p.HouseFee
	if reward < 0 {
		reward = 0
	}
	return reward
}
