package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
)

const (
	PatternLoginBruteforce   = "login_bruteforce"
	PatternRapidAdminActions = "rapid_admin_actions"
	PatternMassExport        = "mass_export"
	PatternMassDelete        = "mass_delete"
	PatternHighRiskActivity  = "high_risk_activity"

	// DefaultCaseThreshold is the minimum score that opens a case.
	DefaultCaseThreshold = 70

	maxEvidence = 20
)

// Matcher selects the activities a policy counts.
type Matcher func(models.ActivityRecord) bool

// Policy describes one detector: count matching events for a user inside
// Window and score the burst once MinEvents is reached.
type Policy struct {
	Pattern     string
	Description string
	Window      time.Duration
	MinEvents   int
	BaseScore   float64
	StepScore   float64
	Match       Matcher
}

// Score computes the capped score for a burst of count events.
func (p Policy) Score(count int) float64 {
	if count < p.MinEvents {
		return 0
	}
	score := p.BaseScore + p.StepScore*float64(count-p.MinEvents)
	return math.Min(100, score)
}

// Finding is the outcome of a policy that fired.
type Finding struct {
	Pattern      string
	Description  string
	Score        float64
	Events       int
	Window       time.Duration
	ActivityType models.ActivityType
	ActivityIDs  []string
}

// Details renders the finding as case details.
func (f Finding) Details() map[string]interface{} {
	ids := make([]interface{}, 0, len(f.ActivityIDs))
	for _, id := range f.ActivityIDs {
		ids = append(ids, id)
	}
	return map[string]interface{}{
		"events":         f.Events,
		"window_seconds": int(f.Window.Seconds()),
		"activity_ids":   ids,
	}
}

// DefaultPolicies returns the built-in detector table.
func DefaultPolicies() []Policy {
	return []Policy{
		{
			Pattern:     PatternLoginBruteforce,
			Description: "repeated failed logins",
			Window:      5 * time.Minute,
			MinEvents:   6,
			BaseScore:   80,
			StepScore:   3,
			Match:       IsFailedLogin,
		},
		{
			Pattern:     PatternRapidAdminActions,
			Description: "burst of admin actions",
			Window:      10 * time.Minute,
			MinEvents:   20,
			BaseScore:   75,
			StepScore:   1,
			Match:       ofType(models.ActivityAdminAction),
		},
		{
			Pattern:     PatternMassExport,
			Description: "bulk export or download",
			Window:      15 * time.Minute,
			MinEvents:   10,
			BaseScore:   70,
			StepScore:   2,
			Match:       ofType(models.ActivityExport, models.ActivityDownload),
		},
		{
			Pattern:     PatternMassDelete,
			Description: "bulk deletion",
			Window:      10 * time.Minute,
			MinEvents:   15,
			BaseScore:   70,
			StepScore:   2,
			Match:       ofType(models.ActivityDelete),
		},
		{
			Pattern:     PatternHighRiskActivity,
			Description: "activity reported as high risk",
			MinEvents:   1,
			BaseScore:   85,
			Match: func(a models.ActivityRecord) bool {
				return a.RiskLevel == models.RiskHigh
			},
		},
	}
}

// IsFailedLogin reports whether the record is an unsuccessful login attempt.
func IsFailedLogin(a models.ActivityRecord) bool {
	if a.ActivityType != models.ActivityLogin {
		return false
	}
	if strings.Contains(strings.ToLower(a.Action), "fail") {
		return true
	}
	if success, ok := a.Details["success"].(bool); ok && !success {
		return true
	}
	return false
}

func ofType(types ...models.ActivityType) Matcher {
	return func(a models.ActivityRecord) bool {
		for _, t := range types {
			if a.ActivityType == t {
				return true
			}
		}
		return false
	}
}

// Evaluator applies a policy table to new activity.
type Evaluator struct {
	threshold float64
	policies  []Policy
}

// NewEvaluator builds an evaluator. Without policies the defaults apply.
func NewEvaluator(threshold float64, policies ...Policy) (*Evaluator, error) {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultCaseThreshold
	}
	if len(policies) == 0 {
		policies = DefaultPolicies()
	}

	seen := make(map[string]struct{}, len(policies))
	for _, policy := range policies {
		if policy.Pattern == "" {
			return nil, fmt.Errorf("policy pattern is required")
		}
		if _, dup := seen[policy.Pattern]; dup {
			return nil, fmt.Errorf("duplicate policy pattern %q", policy.Pattern)
		}
		if policy.Match == nil {
			return nil, fmt.Errorf("policy %q has no matcher", policy.Pattern)
		}
		if policy.MinEvents < 1 {
			return nil, fmt.Errorf("policy %q needs at least one event", policy.Pattern)
		}
		seen[policy.Pattern] = struct{}{}
	}

	return &Evaluator{threshold: threshold, policies: policies}, nil
}

// Threshold returns the score at which a case is opened.
func (e *Evaluator) Threshold() float64 {
	return e.threshold
}

// Policies returns a copy of the configured table.
func (e *Evaluator) Policies() []Policy {
	return append([]Policy(nil), e.policies...)
}

// MaxWindow is the longest lookback any policy needs.
func (e *Evaluator) MaxWindow() time.Duration {
	var max time.Duration
	for _, policy := range e.policies {
		if policy.Window > max {
			max = policy.Window
		}
	}
	return max
}

// Evaluate inspects the new activity together with the actor's recent history
// and returns the highest scoring finding at or above the threshold. History
// may or may not already contain the activity itself.
func (e *Evaluator) Evaluate(activity models.ActivityRecord, history []models.ActivityRecord) *Finding {
	actor := activity.Actor()
	if actor == "" {
		return nil
	}

	at := activity.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var best *Finding
	for _, policy := range e.policies {
		if !policy.Match(activity) {
			continue
		}

		matched := []models.ActivityRecord{activity}
		for _, past := range history {
			if past.ID == activity.ID || past.Actor() != actor {
				continue
			}
			if past.CreatedAt.After(at) {
				continue
			}
			if policy.Window == 0 || at.Sub(past.CreatedAt) > policy.Window {
				continue
			}
			if policy.Match(past) {
				matched = append(matched, past)
			}
		}

		score := policy.Score(len(matched))
		if score == 0 || score < e.threshold {
			continue
		}
		if best != nil && score <= best.Score {
			continue
		}

		best = &Finding{
			Pattern:      policy.Pattern,
			Description:  describe(policy, len(matched)),
			Score:        score,
			Events:       len(matched),
			Window:       policy.Window,
			ActivityType: activity.ActivityType,
			ActivityIDs:  evidence(matched),
		}
	}

	return best
}

func describe(policy Policy, count int) string {
	if policy.Window == 0 {
		return policy.Description
	}
	return fmt.Sprintf("%s: %d events in %s", policy.Description, count, policy.Window)
}

func evidence(records []models.ActivityRecord) []string {
	sorted := append([]models.ActivityRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > maxEvidence {
		sorted = sorted[:maxEvidence]
	}
	ids := make([]string, 0, len(sorted))
	for _, record := range sorted {
		if record.ID != "" {
			ids = append(ids, record.ID)
		}
	}
	return ids
}
