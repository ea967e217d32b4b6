package mission

// Difficulty is the ordered mission difficulty tier.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

var difficultyRank = map[Difficulty]int{
	DifficultyBeginner:     0,
	DifficultyIntermediate: 1,
	DifficultyAdvanced:     2,
}

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	_, ok := difficultyRank[d]
	return ok
}

// Less reports whether d is an easier tier than other. Unknown
// tiers compare as easiest.
func (d Difficulty) Less(other Difficulty) bool {
	return difficultyRank[d] < difficultyRank[other]
}

// String returns the tier name.
func (d Difficulty) String() string { return string(d) }
