package course

// WeightCheck is the outcome of a weight admission check. On rejection it
// carries enough detail for a precise user message ("current total 70,
// attempted 40").
type WeightCheck struct {
	CurrentTotal int  `json:"current_total"`
	Attempted    int  `json:"attempted"`
	OK           bool `json:"ok"`
}

// CheckWeight decides whether adding `candidate` on top of the given
// materials is admissible, skipping the material identified by `excludeID`
// (the row being edited; pass 0 for creates).
func CheckWeight(materials []Material, candidate, excludeID int) WeightCheck {
	var total int
	for _, m := range materials {
		if excludeID != 0 && m.ID == excludeID {
			continue
		}
		total += m.Weight
	}
	return WeightCheck{
		CurrentTotal: total,
		Attempted:    candidate,
		OK:           total+candidate <= MaxTotalWeight,
	}
}

// SumWeights returns the total weight across materials.
func SumWeights(materials []Material) int {
	var total int
	for _, m := range materials {
		total += m.Weight
	}
	return total
}

// CompletionPercent scales completed/total material counts to 0-100,
// truncating toward zero. A course with no materials is 0% complete.
func CompletionPercent(total, completed int) int {
	if total <= 0 {
		return 0
	}
	return completed * 100 / total
}

// Readiness is the weighted completion percentage: the share of total
// material weight carried by completed materials. It is 0 when the course
// carries no weight at all.
func Readiness(materials []Material, completedIDs map[int]bool) float64 {
	var totalWeight, completedWeight float64
	for _, m := range materials {
		totalWeight += float64(m.Weight)
		if completedIDs[m.ID] {
			completedWeight += float64(m.Weight)
		}
	}
	if totalWeight == 0 {
		return 0
	}
	return completedWeight / totalWeight * 100
}
