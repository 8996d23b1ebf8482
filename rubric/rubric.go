// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package rubric

// MaxRating is the upper bound of the rating scale, constant across
// all criteria. Ratings run 0..MaxRating.
const MaxRating = 3

// RAG bands for a computed total.
const (
	BandRed   = "red"
	BandAmber = "amber"
	BandGreen = "green"
)

// DefaultThreshold is the green/amber boundary used when the caller
// does not supply one.
const DefaultThreshold = 65

// redFloor is fixed: totals below it are red regardless of threshold.
const redFloor = 50

// Criterion is one weighted scoring dimension.
type Criterion struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Guidance string `json:"guidance"`
	Weight   int    `json:"weight"`
}

// Criteria is the fixed scoring rubric. Weights sum to 100, so a
// perfect score totals 100.
var Criteria = []Criterion{
	{
		ID:       "need",
		Name:     "Community Need",
		Guidance: "Evidence that the project addresses a clear, local need.",
		Weight:   25,
	},
	{
		ID:       "outcomes",
		Name:     "Positive Outcomes",
		Guidance: "Strength and reach of the outcomes for residents.",
		Weight:   25,
	},
	{
		ID:       "deliverability",
		Name:     "Deliverability",
		Guidance: "Realistic plan, timeline, and organisational capacity.",
		Weight:   20,
	},
	{
		ID:       "value",
		Name:     "Value for Money",
		Guidance: "Costs are proportionate to the benefit delivered.",
		Weight:   20,
	},
	{
		ID:       "wellbeing",
		Name:     "Equity & Wellbeing",
		Guidance: "Contribution to wellbeing goals and reducing inequality.",
		Weight:   10,
	},
}

var weightByID = func() map[string]int {
	m := make(map[string]int, len(Criteria))
	for _, c := range Criteria {
		m[c.ID] = c.Weight
	}
	return m
}()

// Lookup returns the criterion with the given id.
func Lookup(id string) (Criterion, bool) {
	for _, c := range Criteria {
		if c.ID == id {
			return c, true
		}
	}
	return Criterion{}, false
}

// Total computes the weighted total for a set of ratings:
// sum over criteria of (rating / MaxRating) * weight. Ratings for
// unknown criterion ids contribute nothing.
func Total(ratings map[string]int) float64 {
	var total float64
	for id, rating := range ratings {
		total += float64(rating) / MaxRating * float64(weightByID[id])
	}
	return total
}

// ValidRating reports whether r is within the rating scale.
func ValidRating(r int) bool {
	return r >= 0 && r <= MaxRating
}

// Band applies RAG coloring to a total. Totals below 50 are red,
// totals below the threshold are amber, the rest are green.
func Band(total float64, threshold int) string {
	switch {
	case total < redFloor:
		return BandRed
	case total < float64(threshold):
		return BandAmber
	default:
		return BandGreen
	}
}
