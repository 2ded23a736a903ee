package services

import (
	"sort"

	"github.com/edgetier/edgetier-ai-go/internal/models"
)

// TierAllocator partitions a serving cycle's predictions across subscription
// tiers with cascading fallback: a short elite list borrows the best remaining
// premium picks, paid tiers may borrow free picks beyond the free quota, and
// no event ever appears in more than one tier. The free quota itself is
// reserved: the public tier always ships its picks even when the paid tiers
// run short.
type TierAllocator struct {
	quotas models.TierQuotas
}

// NewTierAllocator creates an allocator with the given quotas.
func NewTierAllocator(quotas models.TierQuotas) *TierAllocator {
	return &TierAllocator{quotas: quotas}
}

// Quotas returns the configured tier quotas.
func (a *TierAllocator) Quotas() models.TierQuotas {
	return a.quotas
}

// Allocate partitions predictions into disjoint tier lists. When the unique
// event pool is smaller than the summed quotas, every tier is filled maximally
// and the shortfall is simply a shorter list, never padded.
func (a *TierAllocator) Allocate(predictions []models.Prediction) models.TierAllocation {
	ranked := make([]models.Prediction, len(predictions))
	copy(ranked, predictions)

	// Composite score descending; event id ascending breaks ties so the
	// allocation is stable across runs.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].CompositeScore != ranked[j].CompositeScore {
			return ranked[i].CompositeScore > ranked[j].CompositeScore
		}
		return ranked[i].EventID < ranked[j].EventID
	})

	var eliteList, premiumList, freeList []models.Prediction
	for _, p := range ranked {
		switch p.Tier {
		case models.TierElite:
			eliteList = append(eliteList, p)
		case models.TierPremium:
			premiumList = append(premiumList, p)
		default:
			freeList = append(freeList, p)
		}
	}

	// Only free picks beyond the free quota may cascade into paid tiers.
	freeOverflow := []models.Prediction{}
	if len(freeList) > a.quotas.Free {
		freeOverflow = freeList[a.quotas.Free:]
	}

	consumed := make(map[string]bool, len(ranked))

	elite := fill(a.quotas.Elite, consumed, eliteList, premiumList, freeOverflow)
	premium := fill(a.quotas.Premium, consumed, premiumList, freeOverflow)
	free := fill(a.quotas.Free, consumed, freeList)

	return models.TierAllocation{Elite: elite, Premium: premium, Free: free}
}

// fill takes up to quota predictions from the source lists in order, skipping
// already-consumed event ids. Lists after the first are the fallback chain;
// each is already in score order.
func fill(quota int, consumed map[string]bool, sources ...[]models.Prediction) []models.Prediction {
	picked := make([]models.Prediction, 0, quota)
	for _, source := range sources {
		for _, p := range source {
			if len(picked) >= quota {
				return picked
			}
			if consumed[p.EventID] {
				continue
			}
			consumed[p.EventID] = true
			picked = append(picked, p)
		}
	}
	return picked
}
