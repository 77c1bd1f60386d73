package models

import "math"

// Score is a rubric criterion score on the 1-4 scale.
type Score int

const (
	ScoreEmerging   Score = 1
	ScoreDeveloping Score = 2
	ScoreProficient Score = 3
	ScoreAdvanced   Score = 4
)

// DefaultScore is used for criteria that were never assessed.
const DefaultScore = ScoreProficient

// DefaultSkillPercent is reported for a skill with no rubric detail.
const DefaultSkillPercent = 50

// Valid returns true when the score lies within 1-4.
func (s Score) Valid() bool {
	return s >= ScoreEmerging && s <= ScoreAdvanced
}

// Label returns the semantic label of the score.
func (s Score) Label() string {
	switch s {
	case ScoreEmerging:
		return "Emerging"
	case ScoreDeveloping:
		return "Developing"
	case ScoreProficient:
		return "Proficient"
	case ScoreAdvanced:
		return "Advanced"
	default:
		return ""
	}
}

// Percent maps the score onto the 0-100 snapshot scale.
func (s Score) Percent() int {
	return int(s) * 25
}

// SkillCategory enumerates the four assessed skills.
type SkillCategory string

const (
	SkillSpeaking  SkillCategory = "speaking"
	SkillWriting   SkillCategory = "writing"
	SkillReading   SkillCategory = "reading"
	SkillListening SkillCategory = "listening"
)

// SkillCategories lists every category in display order.
var SkillCategories = []SkillCategory{SkillSpeaking, SkillWriting, SkillReading, SkillListening}

// SpeakingRubric holds the speaking criteria.
type SpeakingRubric struct {
	Fluency           Score `json:"fluency"`
	SentenceLength    Score `json:"sentence_length"`
	Pronunciation     Score `json:"pronunciation"`
	Confidence        Score `json:"confidence"`
	OpinionExpression Score `json:"opinion_expression"`
}

// WritingRubric holds the writing criteria.
type WritingRubric struct {
	GrammarAccuracy   Score `json:"grammar_accuracy"`
	SentenceStructure Score `json:"sentence_structure"`
	VocabularyRange   Score `json:"vocabulary_range"`
	Organisation      Score `json:"organisation"`
	TaskCompletion    Score `json:"task_completion"`
}

// ReadingRubric holds the reading criteria.
type ReadingRubric struct {
	ReadingFluency Score `json:"reading_fluency"`
	Accuracy       Score `json:"accuracy"`
	Pronunciation  Score `json:"pronunciation"`
	Intonation     Score `json:"intonation"`
	Comprehension  Score `json:"comprehension"`
}

// ListeningRubric holds the listening criteria.
type ListeningRubric struct {
	OverallUnderstanding Score `json:"overall_understanding"`
	KeyInfoRecognition   Score `json:"key_info_recognition"`
	ResponseToQuestions  Score `json:"response_to_questions"`
	VocabularyAural      Score `json:"vocabulary_aural"`
	ListeningStrategies  Score `json:"listening_strategies"`
}

// RubricSet groups the optional per-skill rubrics of one assessment.
type RubricSet struct {
	Speaking  *SpeakingRubric  `json:"speaking,omitempty"`
	Writing   *WritingRubric   `json:"writing,omitempty"`
	Reading   *ReadingRubric   `json:"reading,omitempty"`
	Listening *ListeningRubric `json:"listening,omitempty"`
}

// DefaultRubricSet returns a set with every criterion at the default score.
func DefaultRubricSet() RubricSet {
	d := DefaultScore
	return RubricSet{
		Speaking:  &SpeakingRubric{d, d, d, d, d},
		Writing:   &WritingRubric{d, d, d, d, d},
		Reading:   &ReadingRubric{d, d, d, d, d},
		Listening: &ListeningRubric{d, d, d, d, d},
	}
}

// Empty reports whether no rubric is present.
func (r RubricSet) Empty() bool {
	return r.Speaking == nil && r.Writing == nil && r.Reading == nil && r.Listening == nil
}

// Scores returns the criterion scores of one category, or nil when the rubric is absent.
func (r RubricSet) Scores(category SkillCategory) []Score {
	switch category {
	case SkillSpeaking:
		if r.Speaking == nil {
			return nil
		}
		s := r.Speaking
		return []Score{s.Fluency, s.SentenceLength, s.Pronunciation, s.Confidence, s.OpinionExpression}
	case SkillWriting:
		if r.Writing == nil {
			return nil
		}
		w := r.Writing
		return []Score{w.GrammarAccuracy, w.SentenceStructure, w.VocabularyRange, w.Organisation, w.TaskCompletion}
	case SkillReading:
		if r.Reading == nil {
			return nil
		}
		rd := r.Reading
		return []Score{rd.ReadingFluency, rd.Accuracy, rd.Pronunciation, rd.Intonation, rd.Comprehension}
	case SkillListening:
		if r.Listening == nil {
			return nil
		}
		l := r.Listening
		return []Score{l.OverallUnderstanding, l.KeyInfoRecognition, l.ResponseToQuestions, l.VocabularyAural, l.ListeningStrategies}
	default:
		return nil
	}
}

// Validate returns the first category holding an out-of-range score.
func (r RubricSet) Validate() (SkillCategory, bool) {
	for _, category := range SkillCategories {
		for _, score := range r.Scores(category) {
			if !score.Valid() {
				return category, false
			}
		}
	}
	return "", true
}

// Percent averages a category into the 0-100 scale. Absent rubrics yield DefaultSkillPercent.
func (r RubricSet) Percent(category SkillCategory) int {
	scores := r.Scores(category)
	if len(scores) == 0 {
		return DefaultSkillPercent
	}
	var total int
	for _, s := range scores {
		total += int(s)
	}
	avg := float64(total) / float64(len(scores))
	return int(math.Round(avg * 25))
}
