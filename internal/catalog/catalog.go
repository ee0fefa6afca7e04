// Package catalog resolves the "auto" model preference and validates
// explicit model choices against OpenRouter's catalog, scoped down
// from the source implementation's full remote-snapshot,
// live-reconciliation curation engine to the externally visible
// contract SPEC_FULL.md pins down: ResolveModel.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

//go:embed model_snapshot.json
var embeddedSnapshot []byte

// preferredFreeProviders mirrors the source implementation's
// PREFERRED_FREE_PROVIDERS ordering for picking an "auto" free model.
var preferredFreeProviders = []string{"x-ai", "google", "openai", "anthropic", "moonshot"}

// Entry is one model in the catalog, scoped to the fields ResolveModel
// actually needs.
type Entry struct {
	Slug               string
	DisplayName        string
	Provider           string
	Free               bool
	PriceInPerMillion  float64
	PriceOutPerMillion float64
	ContextLength      int
}

// ArgumentError reports a resolution request that cannot be satisfied
// with the current constraints (e.g. a paid model requested under
// --free-models-only).
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string { return e.Message }

// Resolver resolves model preferences against a live OpenRouter
// fetch, falling back to the embedded snapshot on fetch failure.
// Concurrent identical requests within one process are de-duplicated
// via singleflight so they share a single catalog fetch; separate
// processes each fetch on their own.
type Resolver struct {
	HTTPClient *http.Client
	group      singleflight.Group
}

func NewResolver(httpClient *http.Client) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Resolver{HTTPClient: httpClient}
}

// ResolveModel implements the contract SPEC_FULL.md §4.K describes.
// requested == "auto" (or empty) picks, when freeOnly is set, the free
// model whose provider ranks first in preferredFreeProviders (ties by
// display name), and otherwise the model with the lowest combined
// input+output price per million tokens; otherwise requested must name
// a model present in the resolved catalog, and if freeOnly is set
// that model must itself be free.
func (r *Resolver) ResolveModel(ctx context.Context, requested string, freeOnly bool) (Entry, error) {
	key := fmt.Sprintf("%s|%v", requested, freeOnly)
	v, err, _ := r.group.Do(key, func() (any, error) {
		return r.resolveLocked(ctx, requested, freeOnly)
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

func (r *Resolver) resolveLocked(ctx context.Context, requested string, freeOnly bool) (Entry, error) {
	entries, err := r.catalog(ctx)
	if err != nil {
		return Entry{}, err
	}

	if strings.EqualFold(strings.TrimSpace(requested), "auto") || requested == "" {
		return pickAuto(entries, freeOnly)
	}

	for _, e := range entries {
		if strings.EqualFold(e.Slug, requested) {
			if freeOnly && !e.Free {
				return Entry{}, &ArgumentError{Message: fmt.Sprintf("model %q is not free and --free-models-only was set", requested)}
			}
			return e, nil
		}
	}
	return Entry{}, &ArgumentError{Message: fmt.Sprintf("unknown model %q", requested)}
}

func pickAuto(entries []Entry, freeOnly bool) (Entry, error) {
	candidates := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !freeOnly || e.Free {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return Entry{}, &ArgumentError{Message: "no candidate models available for automatic selection"}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if freeOnly {
			pi, pj := providerRank(candidates[i].Provider), providerRank(candidates[j].Provider)
			if pi != pj {
				return pi < pj
			}
			return candidates[i].DisplayName < candidates[j].DisplayName
		}
		return candidates[i].PriceInPerMillion+candidates[i].PriceOutPerMillion <
			candidates[j].PriceInPerMillion+candidates[j].PriceOutPerMillion
	})
	return candidates[0], nil
}

func providerRank(provider string) int {
	for i, p := range preferredFreeProviders {
		if p == provider {
			return i
		}
	}
	return len(preferredFreeProviders)
}

// catalog returns the live OpenRouter model list, falling back to the
// embedded snapshot when the fetch fails for any reason.
func (r *Resolver) catalog(ctx context.Context) ([]Entry, error) {
	if live, err := r.fetchLive(ctx); err == nil {
		return live, nil
	}
	return loadEmbedded()
}

type openRouterModelsResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Pricing struct {
			Prompt     string `json:"prompt"`
			Completion string `json:"completion"`
		} `json:"pricing"`
		ContextLength int `json:"context_length"`
	} `json:"data"`
}

func (r *Resolver) fetchLive(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://openrouter.ai/api/v1/models", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter: unexpected status %s", resp.Status)
	}

	var parsed openRouterModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 {
		return nil, errors.New("openrouter: empty model list")
	}

	entries := make([]Entry, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		provider := m.ID
		if idx := strings.Index(m.ID, "/"); idx >= 0 {
			provider = m.ID[:idx]
		}
		// OpenRouter quotes prices in USD per token.
		priceIn, _ := strconv.ParseFloat(m.Pricing.Prompt, 64)
		priceOut, _ := strconv.ParseFloat(m.Pricing.Completion, 64)
		entries = append(entries, Entry{
			Slug:               m.ID,
			DisplayName:        m.Name,
			Provider:           provider,
			Free:               m.Pricing.Prompt == "0" && m.Pricing.Completion == "0",
			PriceInPerMillion:  priceIn * 1e6,
			PriceOutPerMillion: priceOut * 1e6,
			ContextLength:      m.ContextLength,
		})
	}
	return entries, nil
}

type snapshotFile struct {
	Free  []snapshotEntry `json:"free"`
	Cheap []snapshotEntry `json:"cheap"`
}

type snapshotEntry struct {
	Slug               string  `json:"slug"`
	DisplayName        string  `json:"display_name"`
	Provider           string  `json:"provider"`
	ContextLength      int     `json:"context_length"`
	PriceInPerMillion  float64 `json:"price_in_per_million"`
	PriceOutPerMillion float64 `json:"price_out_per_million"`
}

func loadEmbedded() ([]Entry, error) {
	var snap snapshotFile
	if err := json.Unmarshal(embeddedSnapshot, &snap); err != nil {
		return nil, fmt.Errorf("catalog: decode embedded snapshot: %w", err)
	}

	entries := make([]Entry, 0, len(snap.Free)+len(snap.Cheap))
	for _, e := range snap.Free {
		entries = append(entries, toEntry(e, true))
	}
	for _, e := range snap.Cheap {
		entries = append(entries, toEntry(e, false))
	}
	return entries, nil
}

func toEntry(e snapshotEntry, free bool) Entry {
	return Entry{
		Slug:               e.Slug,
		DisplayName:        e.DisplayName,
		Provider:           e.Provider,
		Free:               free,
		PriceInPerMillion:  e.PriceInPerMillion,
		PriceOutPerMillion: e.PriceOutPerMillion,
		ContextLength:      e.ContextLength,
	}
}
