package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"apartment-finder/clients"
	"apartment-finder/metrics"
	"apartment-finder/models"
	"apartment-finder/utils"
)

// ErrMalformedRanking is returned when the ranking service answers with text
// that cannot be mapped back onto the submitted listings. It is permanent.
var ErrMalformedRanking = errors.New("malformed ranking response")

const rankingInstruction = "You are a meticulous real-estate analyst. " +
	"Stack-rank the supplied rental listings from best to worst. " +
	"Weight highest-to-lowest:\n" +
	"1. Larger radius_bonus (9, 7, 5).\n" +
	"2. Greater places_cnt.\n\n" +
	"Return JSON only: an array with one object per listing containing address, listing, " +
	"radius_bonus, places_cnt, nearest_poi, nearest_poi_dist_mi, rank."

var rankingSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []string{"address", "rank"},
		"properties": map[string]any{
			"address": map[string]any{"type": "string"},
			"rank":    map[string]any{"type": "integer", "minimum": 1},
		},
	},
}

// RankStrategy orders enriched listings, assigning ranks 1..N.
type RankStrategy interface {
	Rank(ctx context.Context, listings []models.EnrichedListing) ([]models.RankedListing, error)
}

// Completer is a chat completion backend.
type Completer interface {
	Complete(ctx context.Context, messages []clients.Message) (string, error)
}

// RemoteStrategy asks a chat model to order the listings.
type RemoteStrategy struct {
	completer Completer
}

func NewRemoteStrategy(c Completer) *RemoteStrategy {
	return &RemoteStrategy{completer: c}
}

func (s *RemoteStrategy) Rank(ctx context.Context, listings []models.EnrichedListing) ([]models.RankedListing, error) {
	payload, err := json.Marshal(listings)
	if err != nil {
		return nil, fmt.Errorf("encode listings: %w", err)
	}

	text, err := s.completer.Complete(ctx, []clients.Message{
		{Role: "system", Content: rankingInstruction},
		{Role: "user", Content: string(payload)},
	})
	if err != nil {
		return nil, err
	}
	return mergeRanking(listings, text)
}

// mergeRanking maps the service's records back onto the submitted listings.
// Each record must name an unused listing by address, and the ranks must be a
// permutation of 1..N. Fields the service restates override the original.
func mergeRanking(listings []models.EnrichedListing, text string) ([]models.RankedListing, error) {
	body := []byte(stripCodeFence(text))

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(rankingSchema), gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRanking, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedRanking, errs)
	}

	var records []map[string]json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRanking, err)
	}
	if len(records) != len(listings) {
		return nil, fmt.Errorf("%w: got %d records for %d listings", ErrMalformedRanking, len(records), len(listings))
	}

	// duplicate addresses are matched in input order
	byAddress := make(map[string][]int, len(listings))
	for i, l := range listings {
		byAddress[l.Address] = append(byAddress[l.Address], i)
	}

	ranked := make([]models.RankedListing, 0, len(records))
	seenRanks := make(map[int]bool, len(records))

	for _, rec := range records {
		var address string
		var rank int
		if err := json.Unmarshal(rec["address"], &address); err != nil {
			return nil, fmt.Errorf("%w: address: %v", ErrMalformedRanking, err)
		}
		if err := json.Unmarshal(rec["rank"], &rank); err != nil {
			return nil, fmt.Errorf("%w: rank: %v", ErrMalformedRanking, err)
		}
		if rank < 1 || rank > len(listings) || seenRanks[rank] {
			return nil, fmt.Errorf("%w: rank %d is out of range or repeated", ErrMalformedRanking, rank)
		}
		seenRanks[rank] = true

		queue := byAddress[address]
		if len(queue) == 0 {
			return nil, fmt.Errorf("%w: unknown address %q", ErrMalformedRanking, address)
		}
		idx := queue[0]
		byAddress[address] = queue[1:]

		merged, err := overlay(listings[idx], rec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRanking, err)
		}
		merged.Rank = rank
		ranked = append(ranked, merged)
	}

	sortByRank(ranked)
	return ranked, nil
}

// overlay applies the response record on top of the original listing.
func overlay(original models.EnrichedListing, rec map[string]json.RawMessage) (models.RankedListing, error) {
	base, err := json.Marshal(original)
	if err != nil {
		return models.RankedListing{}, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &fields); err != nil {
		return models.RankedListing{}, err
	}
	for k, v := range rec {
		fields[k] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return models.RankedListing{}, err
	}
	var out models.RankedListing
	if err := json.Unmarshal(merged, &out); err != nil {
		return models.RankedListing{}, err
	}
	return out, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}

// LocalStrategy orders by radius bonus, then POI count, both descending.
// Unknown POI counts sort below zero and ties keep their input order, so the
// result is deterministic.
type LocalStrategy struct{}

func (LocalStrategy) Rank(_ context.Context, listings []models.EnrichedListing) ([]models.RankedListing, error) {
	ranked := make([]models.RankedListing, len(listings))
	for i, l := range listings {
		ranked[i] = models.RankedListing{EnrichedListing: l}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RadiusBonus != ranked[j].RadiusBonus {
			return ranked[i].RadiusBonus > ranked[j].RadiusBonus
		}
		return poiCount(ranked[i].EnrichedListing) > poiCount(ranked[j].EnrichedListing)
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}

func poiCount(l models.EnrichedListing) int {
	if l.PlacesCount == nil {
		return -1
	}
	return *l.PlacesCount
}

func sortByRank(listings []models.RankedListing) {
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].Rank < listings[j].Rank
	})
}

// RankerOptions tunes the remote ranking policy.
type RankerOptions struct {
	MaxListings int
	MaxAttempts int
	BaseDelay   time.Duration
}

// Ranker orders listings with the remote strategy, retrying transient
// failures, and falls back to the local sort when the remote path gives up.
type Ranker struct {
	remote      RankStrategy
	local       RankStrategy
	retry       utils.RetryConfig
	maxListings int
	logger      *utils.Logger
	metrics     *metrics.Pipeline
}

// NewRanker creates a Ranker. A nil remote strategy ranks locally only.
func NewRanker(remote RankStrategy, opts RankerOptions, logger *utils.Logger, m *metrics.Pipeline) *Ranker {
	if opts.MaxListings <= 0 {
		opts.MaxListings = 20
	}
	return &Ranker{
		remote: remote,
		local:  LocalStrategy{},
		retry: utils.RetryConfig{
			MaxAttempts: opts.MaxAttempts,
			BaseDelay:   opts.BaseDelay,
			Logger:      logger,
			Retryable:   clients.IsTransient,
		},
		maxListings: opts.MaxListings,
		logger:      logger,
		metrics:     m,
	}
}

// MaxListings is the most listings a single Rank call considers.
func (r *Ranker) MaxListings() int { return r.maxListings }

// Rank never fails: every remote failure ends in the local ordering.
func (r *Ranker) Rank(ctx context.Context, listings []models.EnrichedListing) ([]models.RankedListing, models.RankPath) {
	if len(listings) == 0 {
		return []models.RankedListing{}, models.RankPathNone
	}
	if len(listings) > r.maxListings {
		r.logger.Info("[ranker] Ranking the first %d of %d listings", r.maxListings, len(listings))
		listings = listings[:r.maxListings]
	}

	if r.remote != nil {
		var ranked []models.RankedListing
		err := r.retry.Do(ctx, "remote ranking", func(ctx context.Context) error {
			out, err := r.remote.Rank(ctx, listings)
			if err != nil {
				return err
			}
			ranked = out
			return nil
		})
		if err == nil {
			r.logger.Info("[ranker] Remote ranking ordered %d listings", len(ranked))
			r.metrics.Ranked(string(models.RankPathRemote))
			return ranked, models.RankPathRemote
		}
		r.logger.Warn("[ranker] Falling back to local ordering: %v", err)
	}

	ranked, _ := r.local.Rank(ctx, listings)
	r.metrics.Ranked(string(models.RankPathFallback))
	return ranked, models.RankPathFallback
}
