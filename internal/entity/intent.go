package entity

// Intent is the closed set of query types the pipeline understands.
// Every intent must have a retrieval config entry and a system prompt;
// config validation enforces this at startup.
type Intent string

const (
	IntentQuickAnswer        Intent = "quick_answer"
	IntentProjectDeepdive    Intent = "project_deepdive"
	IntentExperienceDeepdive Intent = "experience_deepdive"
	IntentCodeWalkthrough    Intent = "code_walkthrough"
	IntentSkillAssessment    Intent = "skill_assessment"
	IntentComparison         Intent = "comparison"
	IntentTour               Intent = "tour"
	IntentGeneral            Intent = "general"
)

// Intents lists all recognized intents. Order is stable and used when
// rendering the classification prompt.
func Intents() []Intent {
	return []Intent{
		IntentQuickAnswer,
		IntentProjectDeepdive,
		IntentExperienceDeepdive,
		IntentCodeWalkthrough,
		IntentSkillAssessment,
		IntentComparison,
		IntentTour,
		IntentGeneral,
	}
}

func (i Intent) Valid() bool {
	switch i {
	case IntentQuickAnswer, IntentProjectDeepdive, IntentExperienceDeepdive,
		IntentCodeWalkthrough, IntentSkillAssessment, IntentComparison,
		IntentTour, IntentGeneral:
		return true
	}
	return false
}

func (i Intent) String() string {
	return string(i)
}

// ParseIntent maps a raw label to an Intent, reporting whether the label
// belongs to the closed set.
func ParseIntent(s string) (Intent, bool) {
	intent := Intent(s)
	return intent, intent.Valid()
}
