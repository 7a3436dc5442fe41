package consult

import (
	"sort"

	"github.com/casainvest/renoplan/internal/domain/blueprint"
)

// rankBlueprints orders plans by investment score, best first. The sort is
// stable: equally scored plans keep their dispatch order, and plans without
// a score (extracted as 0) sink to the bottom together.
func rankBlueprints(bps []blueprint.Blueprint) {
	sort.SliceStable(bps, func(i, j int) bool {
		return bps[i].Score() > bps[j].Score()
	})
}
