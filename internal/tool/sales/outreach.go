package sales

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cadence-hq/cadence/internal/plan"
	"github.com/cadence-hq/cadence/internal/types"
)

// placeholderPattern matches {{field}} markers in message templates.
var placeholderPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// defaultTemplate is used when the caller supplies none.
const defaultTemplate = `Hi {{first_name}},

I noticed {{company}} has been growing its {{department}} team. Many teams at
your stage struggle with {{pain_point}}.

We help companies like yours {{value_prop}}. Would you be open to a short
call this week?

Best,
{{sender_name}}`

const defaultSubject = "Quick question about {{company}}"

// OutboundDrafter renders an outreach message template with prospect data and
// scores how personalized the result is.
//
// Input: template, prospect_data, channel, tone.
// Output: subject, message_draft, status, metadata {personalization_score,
// channel, tone}.
type OutboundDrafter struct{}

func (d *OutboundDrafter) Name() string                { return "draft_outbound_message" }
func (d *OutboundDrafter) Description() string         { return "Draft a personalized outreach message" }
func (d *OutboundDrafter) Domain() string              { return DomainEngagement }
func (d *OutboundDrafter) SideEffect() plan.SideEffect { return plan.SideEffectPropose }

func (d *OutboundDrafter) Health(ctx context.Context) types.HealthStatus {
	return healthy(d.Name())
}

func (d *OutboundDrafter) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	template := stringInput(input, "template")
	if template == "" {
		template = defaultTemplate
	}
	subject := stringInput(input, "subject_template")
	if subject == "" {
		subject = defaultSubject
	}

	data := mapInput(input, "prospect_data")
	channel := stringInput(input, "channel")
	if channel == "" {
		channel = "email"
	}
	tone := stringInput(input, "tone")
	if tone == "" {
		tone = "professional"
	}

	body, bodyTotal, bodyFilled := render(template, data)
	subjectOut, subjTotal, subjFilled := render(subject, data)

	total := bodyTotal + subjTotal
	filled := bodyFilled + subjFilled
	personalization := 1.0
	if total > 0 {
		personalization = float64(filled) / float64(total)
	}

	return map[string]any{
		"subject":       subjectOut,
		"message_draft": body,
		"status":        "draft",
		"metadata": map[string]any{
			"personalization_score": personalization,
			"channel":               channel,
			"tone":                  tone,
		},
	}, nil
}

// render substitutes {{field}} markers with values from data, returning the
// rendered text plus placeholder counts. Unresolved markers are left in place
// so the quality assessor can flag them.
func render(template string, data map[string]any) (string, int, int) {
	total := 0
	filled := 0
	out := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		total++
		field := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := data[field]; ok && v != nil {
			if s := fmt.Sprintf("%v", v); s != "" {
				filled++
				return s
			}
		}
		return match
	})
	return out, total, filled
}

// spamWords trip the quality assessor when present in a draft.
var spamWords = []string{"guarantee", "free money", "act now", "limited time", "no obligation"}

// MessageQualityAssessor applies quality heuristics to a drafted message.
//
// Input: message, subject, channel.
// Output: quality_score, grade, ready, issues, recommendations.
type MessageQualityAssessor struct{}

func (a *MessageQualityAssessor) Name() string                { return "assess_message_quality" }
func (a *MessageQualityAssessor) Description() string         { return "Assess draft message quality before sending" }
func (a *MessageQualityAssessor) Domain() string              { return DomainEngagement }
func (a *MessageQualityAssessor) SideEffect() plan.SideEffect { return plan.SideEffectReadOnly }

func (a *MessageQualityAssessor) Health(ctx context.Context) types.HealthStatus {
	return healthy(a.Name())
}

func (a *MessageQualityAssessor) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	message := stringInput(input, "message")
	subject := stringInput(input, "subject")

	if message == "" {
		return nil, fmt.Errorf("invalid input: message is required")
	}

	score := 1.0
	var issues []string
	var recommendations []string

	if placeholderPattern.MatchString(message) || placeholderPattern.MatchString(subject) {
		score -= 0.4
		issues = append(issues, "unresolved_placeholders")
		recommendations = append(recommendations, "Fill every template placeholder before sending")
	}

	if len(message) < 80 {
		score -= 0.2
		issues = append(issues, "too_short")
		recommendations = append(recommendations, "Add context about why you are reaching out")
	} else if len(message) > 1500 {
		score -= 0.2
		issues = append(issues, "too_long")
		recommendations = append(recommendations, "Trim the message; long outreach loses readers")
	}

	if subject == "" {
		score -= 0.2
		issues = append(issues, "missing_subject")
		recommendations = append(recommendations, "Add a short, specific subject line")
	} else if len(subject) > 80 {
		score -= 0.1
		issues = append(issues, "subject_too_long")
		recommendations = append(recommendations, "Keep the subject under 80 characters")
	}

	lower := strings.ToLower(message)
	for _, w := range spamWords {
		if strings.Contains(lower, w) {
			score -= 0.2
			issues = append(issues, "spam_language")
			recommendations = append(recommendations, "Remove promotional language that trips spam filters")
			break
		}
	}

	if !strings.Contains(message, "?") {
		score -= 0.1
		issues = append(issues, "no_call_to_action")
		recommendations = append(recommendations, "End with a question to invite a reply")
	}

	if score < 0 {
		score = 0
	}

	grade := "D"
	switch {
	case score >= 0.9:
		grade = "A"
	case score >= 0.75:
		grade = "B"
	case score >= 0.5:
		grade = "C"
	}

	if issues == nil {
		issues = []string{}
	}
	if recommendations == nil {
		recommendations = []string{}
	}

	return map[string]any{
		"quality_score":   score,
		"grade":           grade,
		"ready":           score >= 0.75,
		"issues":          issues,
		"recommendations": recommendations,
	}, nil
}
