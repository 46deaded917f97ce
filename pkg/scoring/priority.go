package scoring

import "sort"

// Bucket summarizes one issue type for prioritization.
type Bucket struct {
	Count  int
	Weight int
}

// Prioritize ranks issue types by impact (weight times open instances),
// highest first. Ties break on weight, then on name, so the order is stable.
// Empty buckets are skipped.
func Prioritize(buckets map[string]Bucket) []IssueTypeImpact {
	var total float64
	impacts := make([]IssueTypeImpact, 0, len(buckets))
	for name, b := range buckets {
		if b.Count <= 0 {
			continue
		}
		impact := float64(b.Weight * b.Count)
		total += impact
		impacts = append(impacts, IssueTypeImpact{
			IssueType: name,
			Count:     b.Count,
			Weight:    b.Weight,
			Impact:    impact,
			Severity:  SeverityFromWeight(b.Weight),
		})
	}

	if total > 0 {
		for i := range impacts {
			impacts[i].Share = impacts[i].Impact / total
		}
	}

	sort.Slice(impacts, func(i, j int) bool {
		if impacts[i].Impact != impacts[j].Impact {
			return impacts[i].Impact > impacts[j].Impact
		}
		if impacts[i].Weight != impacts[j].Weight {
			return impacts[i].Weight > impacts[j].Weight
		}
		return impacts[i].IssueType < impacts[j].IssueType
	})

	return impacts
}
