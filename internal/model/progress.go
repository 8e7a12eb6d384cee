package model

// AwardMastered is the highest-award kind reported for a fully completed
// hardcore set.
const AwardMastered = "mastered"

// GameProgress is one row of a user's completion-progress listing.
type GameProgress struct {
	GameID          int
	Title           string
	ConsoleName     string
	MaxPossible     int
	Awarded         int
	AwardedHardcore int

	HighestAwardKind string
	HighestAwardDate string
}

// Progress summarizes a user's completion progress across all played games.
type Progress struct {
	Count   int
	Total   int
	Results []GameProgress
}

// MasteredCount counts games whose highest award is a mastery.
func (p Progress) MasteredCount() int {
	n := 0
	for _, r := range p.Results {
		if r.HighestAwardKind == AwardMastered {
			n++
		}
	}
	return n
}
