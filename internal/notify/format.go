package notify

import (
	"fmt"
	"strings"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

// FormatOpportunities renders the top opportunities of a cycle as a message
// body. opps is expected to arrive ranked; at most topN lines are emitted.
func FormatOpportunities(opps []domain.Opportunity, topN int) string {
	if topN <= 0 || topN > len(opps) {
		topN = len(opps)
	}

	var b strings.Builder
	for i := 0; i < topN; i++ {
		o := opps[i]
		fmt.Fprintf(&b, "%s/%s %s: buy %s @ %.6g, sell %s @ %.6g, net %.2f%%\n",
			o.Base, o.Quote, o.Direction,
			o.BuyVenue, o.BuyPrice,
			o.SellVenue, o.SellPrice,
			o.NetProfitPct,
		)
	}
	if len(opps) > topN {
		fmt.Fprintf(&b, "... and %d more", len(opps)-topN)
	}
	return strings.TrimRight(b.String(), "\n")
}
