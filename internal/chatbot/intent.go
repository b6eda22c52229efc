package chatbot

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"trackitnow-backend/internal/store"
)

type Action string

const (
	ActionUnresolved     Action = "unresolved"
	ActionCountUsers     Action = "count_users"
	ActionRegistration   Action = "registration"
	ActionLogin          Action = "login"
	ActionCountParcels   Action = "count_colis"
	ActionParcelStatus   Action = "status_colis"
	ActionDashboard      Action = "dashboard_colis"
	ActionModifyParcel   Action = "modifier_colis"
	ActionDeleteParcel   Action = "supprimer_colis"
	ActionAcceptOrRefuse Action = "accepter_refuser_colis"
)

var knownActions = map[Action]bool{
	ActionCountUsers:     true,
	ActionRegistration:   true,
	ActionLogin:          true,
	ActionCountParcels:   true,
	ActionParcelStatus:   true,
	ActionDashboard:      true,
	ActionModifyParcel:   true,
	ActionDeleteParcel:   true,
	ActionAcceptOrRefuse: true,
}

// DetailTrackingCode is the Details key holding an extracted tracking code.
const DetailTrackingCode = store.KeyTrackingCode

type Intent struct {
	Action  Action
	Details map[string]string
}

func (i Intent) TrackingCode() string {
	return i.Details[DetailTrackingCode]
}

// Rule maps a keyword pattern to an action. A rule without a pattern always
// matches, which makes it a category's catch-all.
type Rule struct {
	Action      Action
	Pattern     *regexp.Regexp
	ExtractCode bool // look for a tracking code in the message, then in the session context
	RequireCode bool // only match when the message itself carries a tracking code
}

// Category is an ordered group of rules, optionally gated by a domain pattern.
type Category struct {
	Name  string
	Gate  *regexp.Regexp
	Rules []Rule
}

// Classifier resolves a message to an intent by running its categories in
// order. Within a category the first matching rule wins; across categories the
// last matching one wins. It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	categories []Category
	code       *regexp.Regexp
}

//go:embed rules.yaml
var defaultRules []byte

type rulesFile struct {
	TrackingCode string `yaml:"tracking_code"`
	Categories   []struct {
		Name  string   `yaml:"name"`
		Gate  []string `yaml:"gate"`
		Rules []struct {
			Action      string   `yaml:"action"`
			Patterns    []string `yaml:"patterns"`
			ExtractCode bool     `yaml:"extract_code"`
			RequireCode bool     `yaml:"require_code"`
		} `yaml:"rules"`
	} `yaml:"categories"`
}

// LoadClassifier reads rules from path, or the built-in rules when path is empty.
func LoadClassifier(path string) (*Classifier, error) {
	if path == "" {
		return ParseRules(defaultRules)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRules(b)
}

// DefaultClassifier returns a classifier over the built-in rules.
func DefaultClassifier() *Classifier {
	c, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("chatbot: built-in rules: %v", err))
	}
	return c
}

// ParseRules builds a classifier from a YAML rules document.
func ParseRules(b []byte) (*Classifier, error) {
	var rf rulesFile
	if err := yaml.Unmarshal(b, &rf); err != nil {
		return nil, fmt.Errorf("invalid intent rules: %w", err)
	}
	if rf.TrackingCode == "" {
		return nil, fmt.Errorf("invalid intent rules: tracking_code is required")
	}
	code, err := regexp.Compile(rf.TrackingCode)
	if err != nil {
		return nil, fmt.Errorf("invalid tracking_code pattern: %w", err)
	}

	c := &Classifier{code: code}
	for _, rc := range rf.Categories {
		cat := Category{Name: rc.Name}
		if cat.Gate, err = compileAny(rc.Gate); err != nil {
			return nil, fmt.Errorf("category %q gate: %w", rc.Name, err)
		}
		for _, rr := range rc.Rules {
			action := Action(rr.Action)
			if !knownActions[action] {
				return nil, fmt.Errorf("category %q: unknown action %q", rc.Name, rr.Action)
			}
			rule := Rule{Action: action, ExtractCode: rr.ExtractCode, RequireCode: rr.RequireCode}
			if rule.Pattern, err = compileAny(rr.Patterns); err != nil {
				return nil, fmt.Errorf("category %q rule %q: %w", rc.Name, rr.Action, err)
			}
			cat.Rules = append(cat.Rules, rule)
		}
		c.categories = append(c.categories, cat)
	}
	return c, nil
}

// compileAny joins patterns into one alternation; no patterns yields nil.
func compileAny(patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return nil, err
		}
	}
	return regexp.Compile("(?:" + strings.Join(patterns, "|") + ")")
}

// Classify maps a message to an intent. sc is only read, to recover a tracking
// code from an earlier turn. Unmatched messages resolve to ActionUnresolved.
func (c *Classifier) Classify(question string, sc store.SessionContext) Intent {
	text := normalize(question)
	found := c.code.FindString(question)
	intent := Intent{Action: ActionUnresolved}
	for _, cat := range c.categories {
		if cat.Gate != nil && !cat.Gate.MatchString(text) {
			continue
		}
		for _, r := range cat.Rules {
			if r.Pattern != nil && !r.Pattern.MatchString(text) {
				continue
			}
			code := found
			if r.RequireCode && code == "" {
				continue
			}
			intent = Intent{Action: r.Action}
			if r.ExtractCode || r.RequireCode {
				if code == "" {
					code = sc.TrackingCode()
				}
				if code != "" {
					intent.Details = map[string]string{DetailTrackingCode: code}
				}
			}
			break
		}
	}
	return intent
}

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

// normalize lowercases the message after composing accents, so "état" typed
// with a combining accent still matches.
func normalize(s string) string {
	return strings.ToLower(apostrophes.Replace(norm.NFC.String(s)))
}
