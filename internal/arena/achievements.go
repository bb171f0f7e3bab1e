package arena

// achievementDef describes one unlockable badge and its condition.
type achievementDef struct {
	Code        string
	Title       string
	Description string
	Icon        string
	Unlocked    func(s achievementStats) bool
}

// achievementStats is the snapshot evaluated against every badge after
// a submission.
type achievementStats struct {
	TotalAttempts  int
	Attempt        *Attempt
	StreakDays     int
	Level          int
	RankName       string
	PerfectScore   bool
	AvgTimePerQ    float64
	TotalQuestions int
}

var achievementDefs = []achievementDef{
	{
		Code: "FIRST_BLOOD", Title: "First Blood", Icon: "🗡️",
		Description: "Complete your first arena attempt",
		Unlocked:    func(s achievementStats) bool { return s.TotalAttempts >= 1 },
	},
	{
		Code: "SPEED_DEMON", Title: "Speed Demon", Icon: "⚡",
		Description: "Average under 10 seconds per question",
		Unlocked: func(s achievementStats) bool {
			return s.AvgTimePerQ > 0 && s.AvgTimePerQ < 10 && s.TotalQuestions >= 5
		},
	},
	{
		Code: "PERFECT_10", Title: "Perfect 10", Icon: "💯",
		Description: "Score a perfect round of ten or more questions",
		Unlocked: func(s achievementStats) bool {
			return s.PerfectScore && s.TotalQuestions >= 10
		},
	},
	{
		Code: "STREAK_MASTER", Title: "Streak Master", Icon: "🔥",
		Description: "Keep a 7-day streak alive",
		Unlocked:    func(s achievementStats) bool { return s.StreakDays >= 7 },
	},
	{
		Code: "BOSS_SLAYER", Title: "Boss Slayer", Icon: "🐉",
		Description: "Beat a boss fight with 10+ correct answers",
		Unlocked: func(s achievementStats) bool {
			return s.Attempt != nil && s.Attempt.Type == AttemptBoss && s.Attempt.Score >= 10
		},
	},
	{
		Code: "SCHOLAR", Title: "Scholar", Icon: "🎓",
		Description: "Reach level 5",
		Unlocked:    func(s achievementStats) bool { return s.Level >= 5 },
	},
	{
		Code: "LEGEND", Title: "Legend", Icon: "👑",
		Description: "Reach Diamond rank",
		Unlocked:    func(s achievementStats) bool { return s.RankName == RankDiamond },
	},
}

// newlyUnlocked returns the badges earned by stats that are not yet in
// owned, in definition order.
func newlyUnlocked(s achievementStats, owned map[string]bool) []achievementDef {
	var out []achievementDef
	for _, def := range achievementDefs {
		if owned[def.Code] {
			continue
		}
		if def.Unlocked(s) {
			out = append(out, def)
		}
	}
	return out
}
