package intent

import (
	"regexp"
	"strings"

	"github.com/askfolio/chat-backend/internal/entity"
)

const (
	generalBaseScore  = 0.1
	patternScore      = 1.0
	sectionBoost      = 0.3
	continuityBoost   = 0.2
	followUpBoost     = 0.5
	minConfidentScore = 0.5
)

// intentPatterns maps each intent to keyword patterns. A message scores one
// point per intent with at least one matching pattern.
var intentPatterns = map[entity.Intent][]*regexp.Regexp{
	entity.IntentQuickAnswer: compileAll(
		`\b(what|who|how many|is he|does he|can he)\b`,
		`\b(tech stack|stack|skills|experience years|years)\b`,
		`\b(email|contact|phone|linkedin|github)\b`,
		`\b(location|where|based)\b`,
		`\b(current role|current job|working at)\b`,
	),
	entity.IntentProjectDeepdive: compileAll(
		`\b(tell me (more )?about|explain|describe|details on)\b.*(project|chatbot|genai|rag|pipeline)`,
		`\b(project|rag pipeline)\b.*(detail|more|explain|architecture)`,
		`\b(how did you (build|create|implement))\b`,
		`\b(architecture|design|structure)\b.*(project)`,
	),
	entity.IntentExperienceDeepdive: compileAll(
		`\b(tell me (more )?about|explain|describe|details on)\b.*(company|employer|experience|role|job)`,
		`\b(what did you do|responsibilities|achievements)\b.*(at|in|during)`,
		`\b(experience at|role at|work at)\b`,
		`\b(career|work history|previous (job|role|company))\b`,
	),
	entity.IntentCodeWalkthrough: compileAll(
		`\b(show|display|see)\b.*(code|implementation|snippet)`,
		`\b(how (is|did you) implement)\b`,
		`\b(rate limit|chunking|async|rag pipeline)\b.*(code|implement)`,
		`\b(code for|implementation of)\b`,
	),
	entity.IntentSkillAssessment: compileAll(
		`\b(fit|suitable|good|qualified)\b.*(for|as|role)`,
		`\b(genai|backend|python|senior)\b.*(role|engineer|developer|position)`,
		`\b(rate|assess|evaluate)\b.*(skills|experience|fit)`,
		`\b(match|suitable for|right for)\b.*(job|role|position)`,
		`\b(hire|hiring|recruitment)\b`,
	),
	entity.IntentComparison: compileAll(
		`\b(compare|comparison|difference|vs|versus)\b`,
		`\b(how does .* differ|what.s the difference)\b`,
		`\b(pro.? and con|trade.?off)\b`,
	),
	entity.IntentTour: compileAll(
		`\b(tour|walk me through|overview|introduction|start)\b`,
		`\b(guide|guided|walkthrough)\b`,
		`\b(show me around|explore)\b`,
	),
}

// sectionBoosters nudges intents related to the site section being viewed.
var sectionBoosters = map[string][]entity.Intent{
	"projects":   {entity.IntentProjectDeepdive, entity.IntentCodeWalkthrough},
	"experience": {entity.IntentExperienceDeepdive},
	"skills":     {entity.IntentSkillAssessment, entity.IntentQuickAnswer},
	"about":      {entity.IntentQuickAnswer},
	"contact":    {entity.IntentQuickAnswer},
}

// followUpPatterns detect short continuations of the previous topic.
var followUpPatterns = compileAll(
	`^(tell me more|more details|explain|go on|continue)`,
	`^(what about|how about|and)`,
	`^(yes|sure|okay|please)`,
)

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(`(?i)` + p)
	}
	return compiled
}

// FallbackClassifier scores intents with keyword patterns and context
// boosts. It never fails; weak matches resolve to the general intent.
type FallbackClassifier struct{}

func NewFallbackClassifier() *FallbackClassifier {
	return &FallbackClassifier{}
}

func (fc *FallbackClassifier) Classify(message string, qctx entity.QueryContext) entity.Intent {
	message = strings.ToLower(strings.TrimSpace(message))

	scores := make(map[entity.Intent]float64, len(intentPatterns)+1)
	for intent := range intentPatterns {
		scores[intent] = 0
	}
	scores[entity.IntentGeneral] = generalBaseScore

	for intent, patterns := range intentPatterns {
		for _, p := range patterns {
			if p.MatchString(message) {
				scores[intent] += patternScore
				break
			}
		}
	}

	if boosted, ok := sectionBoosters[qctx.CurrentSection]; ok {
		for _, intent := range boosted {
			scores[intent] += sectionBoost
		}
	}

	previous, hasPrevious := entity.ParseIntent(qctx.PreviousTopic)
	if hasPrevious {
		switch previous {
		case entity.IntentProjectDeepdive, entity.IntentCodeWalkthrough:
			scores[entity.IntentProjectDeepdive] += continuityBoost
			scores[entity.IntentCodeWalkthrough] += continuityBoost
		case entity.IntentExperienceDeepdive:
			scores[entity.IntentExperienceDeepdive] += continuityBoost
		}

		for _, p := range followUpPatterns {
			if p.MatchString(message) {
				scores[previous] += followUpBoost
				break
			}
		}
	}

	best := entity.IntentGeneral
	bestScore := 0.0
	// Iterate the stable intent order so score ties resolve deterministically.
	for _, intent := range entity.Intents() {
		if score := scores[intent]; score > bestScore {
			best = intent
			bestScore = score
		}
	}

	if bestScore < minConfidentScore {
		return entity.IntentGeneral
	}
	return best
}
