package arena

// Blend factors for mastery updates. The fresh attempt dominates so a
// strong session visibly moves the needle.
const (
	masteryNewWeight = 0.7
	masteryOldWeight = 0.3
	weakThreshold    = 50.0
)

// topicOutcome aggregates graded answers for one topic tag within a
// single attempt.
type topicOutcome struct {
	Correct int
	Total   int
}

// Accuracy is the percentage of correct answers for the topic.
func (o topicOutcome) Accuracy() float64 {
	if o.Total == 0 {
		return 0
	}
	return float64(o.Correct) / float64(o.Total) * 100
}

// topicBreakdown groups an attempt's answers by topic tag. Answers on
// untagged questions are skipped. Each tag appears exactly once.
func topicBreakdown(answers []AnswerRecord) map[string]topicOutcome {
	out := make(map[string]topicOutcome)
	for _, a := range answers {
		if a.TopicTag == "" {
			continue
		}
		o := out[a.TopicTag]
		o.Total++
		if a.Correct {
			o.Correct++
		}
		out[a.TopicTag] = o
	}
	return out
}

// BlendMastery folds a fresh per-topic accuracy into the stored mastery
// score. With no prior score the fresh accuracy stands alone.
func BlendMastery(newAccuracy float64, existing *float64) float64 {
	if existing == nil {
		return round1(newAccuracy)
	}
	return round1(masteryNewWeight*newAccuracy + masteryOldWeight*(*existing))
}
