package reasoner

import (
	"context"
	"fmt"
	"strings"

	"github.com/looperhq/looper/pkg/action"
	"github.com/looperhq/looper/pkg/sensor"
)

// DefaultSurpriseKeywords flag a percept as surprising when any appears
// in its content.
var DefaultSurpriseKeywords = []string{
	"search", "error", "fail", "urgent", "help", "please",
	"broken", "crash", "warning",
}

// RuleBasedLocal is a deterministic keyword detector. It consumes no
// tokens and ignores history windows.
type RuleBasedLocal struct {
	Keywords []string
}

func NewRuleBasedLocal() *RuleBasedLocal {
	return &RuleBasedLocal{Keywords: DefaultSurpriseKeywords}
}

func (r *RuleBasedLocal) Detect(ctx context.Context, latest []sensor.Percept, previousWindows [][]string) (*Detection, error) {
	detection := &Detection{SurprisingIndices: []int{}}

	var matched []string
	for i, p := range latest {
		lower := strings.ToLower(p.Content)
		for _, keyword := range r.Keywords {
			if strings.Contains(lower, keyword) {
				detection.SurprisingIndices = append(detection.SurprisingIndices, i)
				matched = append(matched, keyword)
				break
			}
		}
	}

	if len(matched) > 0 {
		detection.Rationale = fmt.Sprintf("matched keywords: %s", strings.Join(matched, ", "))
	} else {
		detection.Rationale = "no surprise keywords matched"
	}
	return detection, nil
}

// RuleBasedFrontier routes each surprising percept to at most one
// action by keyword. Percepts with no route contribute nothing; an
// all-calm input yields an empty plan.
type RuleBasedFrontier struct{}

func NewRuleBasedFrontier() *RuleBasedFrontier {
	return &RuleBasedFrontier{}
}

func (r *RuleBasedFrontier) Plan(ctx context.Context, surprising []sensor.Percept) (*Plan, error) {
	plan := &Plan{Actions: []action.Recommended{}}

	var routes []string
	for _, p := range surprising {
		rec, ok := routePercept(p)
		if !ok {
			continue
		}
		plan.Actions = append(plan.Actions, rec)
		routes = append(routes, rec.ActuatorName)
	}

	if len(routes) > 0 {
		plan.Rationale = fmt.Sprintf("routed to: %s", strings.Join(routes, ", "))
	} else {
		plan.Rationale = "no actionable route for the surprising percepts"
	}
	return plan, nil
}

// routePercept picks the first matching route. Order matters: a
// "please search ..." message is a search, not a chat.
func routePercept(p sensor.Percept) (action.Recommended, bool) {
	lower := strings.ToLower(p.Content)

	switch {
	case strings.Contains(lower, "search"):
		return action.Recommended{
			ActuatorName: string(action.KindWebSearch),
			Action:       action.NewWebSearch(p.Content),
		}, true

	case strings.Contains(lower, "grep "):
		pattern, path := splitPatternPath(afterKeyword(p.Content, "grep "))
		if pattern == "" {
			return action.Recommended{}, false
		}
		return action.Recommended{
			ActuatorName: string(action.KindGrep),
			Action:       action.NewGrep(pattern, path),
		}, true

	case strings.Contains(lower, "glob "):
		pattern, path := splitPatternPath(afterKeyword(p.Content, "glob "))
		if pattern == "" {
			return action.Recommended{}, false
		}
		return action.Recommended{
			ActuatorName: string(action.KindGlob),
			Action:       action.NewGlob(pattern, path),
		}, true

	case strings.HasPrefix(lower, "run "):
		return action.Recommended{
			ActuatorName: string(action.KindShell),
			Action:       action.NewShell(strings.TrimSpace(p.Content[4:])),
		}, true

	case strings.Contains(lower, "execute "):
		return action.Recommended{
			ActuatorName: string(action.KindShell),
			Action:       action.NewShell(strings.TrimSpace(afterKeyword(p.Content, "execute "))),
		}, true

	case containsAny(lower, "help", "please", "respond", "reply", "hello"):
		return action.Recommended{
			ActuatorName: string(action.KindChat),
			Action:       action.NewChatResponse(p.Content),
		}, true
	}

	return action.Recommended{}, false
}

// afterKeyword returns the content following the first case-insensitive
// occurrence of the keyword.
func afterKeyword(content, keyword string) string {
	idx := strings.Index(strings.ToLower(content), keyword)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(content[idx+len(keyword):])
}

// splitPatternPath reads "pattern [path]" out of free text.
func splitPatternPath(rest string) (string, string) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], fields[1]
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
