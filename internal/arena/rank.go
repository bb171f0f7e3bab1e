package arena

// Rank tiers in ascending order.
const (
	RankBronze   = "Bronze"
	RankSilver   = "Silver"
	RankGold     = "Gold"
	RankPlatinum = "Platinum"
	RankDiamond  = "Diamond"
)

// XP awards.
const (
	quizXPBase       = 50
	quizXPPerCorrect = 10
	achievementXP    = 100
)

// Level thresholds. levelLadder[i] is the XP required to leave level i+1.
var levelLadder = []int64{0, 200, 500, 1000, 2000, 3500, 5500, 8000, 11000, 15000, 20000}

const beyondLadderStep = 5000

// QuizXP is the XP awarded for a completed attempt.
func QuizXP(score int) int {
	return score*quizXPPerCorrect + quizXPBase
}

// ComputeRank maps total XP, rolling accuracy and streak length to a
// rank tier via a single composite score.
func ComputeRank(xpTotal int64, accuracy float64, streakDays int) string {
	score := float64(xpTotal)*0.5 + accuracy*3 + float64(streakDays)*10
	switch {
	case score >= 800:
		return RankDiamond
	case score >= 500:
		return RankPlatinum
	case score >= 300:
		return RankGold
	case score >= 150:
		return RankSilver
	default:
		return RankBronze
	}
}

// Level returns the 1-based level for a total XP amount. Past the
// ladder, each further level costs a flat 5000 XP.
func Level(xpTotal int64) int {
	for i := 1; i < len(levelLadder); i++ {
		if xpTotal < levelLadder[i] {
			return i
		}
	}
	return len(levelLadder) + int((xpTotal-levelLadder[len(levelLadder)-1])/beyondLadderStep)
}

// NextLevelXP returns the total XP needed to reach the next level.
func NextLevelXP(level int) int64 {
	if level < len(levelLadder) {
		return levelLadder[level]
	}
	top := levelLadder[len(levelLadder)-1]
	return top + int64(level-len(levelLadder)+1)*beyondLadderStep
}
