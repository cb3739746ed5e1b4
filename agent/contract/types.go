package contract

import (
	"strings"
	"time"
)

type Intent string

const (
	IntentStoreHours             Intent = "store_hours"
	IntentStockCheck             Intent = "stock_check"
	IntentOrderStatus            Intent = "order_status"
	IntentLocationRecommendation Intent = "location_recommendation"
	IntentProductRecommendation  Intent = "product_recommendation"
	IntentOther                  Intent = "other"
)

// DeterministicIntents lists every intent the router may serve from domain agents.
var DeterministicIntents = []Intent{
	IntentStoreHours,
	IntentStockCheck,
	IntentOrderStatus,
	IntentLocationRecommendation,
	IntentProductRecommendation,
}

// ParseIntent maps a label onto the closed intent set. ok is false for unknown labels.
func ParseIntent(label string) (Intent, bool) {
	in := Intent(strings.ToLower(strings.TrimSpace(label)))
	switch in {
	case IntentStoreHours, IntentStockCheck, IntentOrderStatus,
		IntentLocationRecommendation, IntentProductRecommendation, IntentOther:
		return in, true
	default:
		return IntentOther, false
	}
}

func (i Intent) IsDeterministic() bool {
	for _, d := range DeterministicIntents {
		if d == i {
			return true
		}
	}
	return false
}

type Emotion string

const (
	EmotionPositive   Emotion = "positive"
	EmotionNegative   Emotion = "negative"
	EmotionNeutral    Emotion = "neutral"
	EmotionFrustrated Emotion = "frustrated"
	EmotionCold       Emotion = "cold"
	EmotionWarm       Emotion = "warm"
)

// ParseEmotion maps a label onto the closed emotion set, defaulting to neutral.
func ParseEmotion(label string) Emotion {
	em := Emotion(strings.ToLower(strings.TrimSpace(label)))
	switch em {
	case EmotionPositive, EmotionNegative, EmotionNeutral, EmotionFrustrated, EmotionCold, EmotionWarm:
		return em
	default:
		return EmotionNeutral
	}
}

type Mode string

const (
	ModeDeterministic Mode = "deterministic"
	ModeFallback      Mode = "fallback"
)

type AgentName string

const (
	AgentStore     AgentName = "store"
	AgentInventory AgentName = "inventory"
	AgentOrder     AgentName = "order"
	AgentOffers    AgentName = "offers"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// CustomerProfile is optional context sent by the client. Visits and preferences are
// free-form and passed through to generation untouched.
type CustomerProfile struct {
	CustomerID     string           `json:"customer_id,omitempty"`
	Location       *Location        `json:"location,omitempty"`
	PastVisits     []map[string]any `json:"past_visits,omitempty"`
	Preferences    map[string]any   `json:"preferences,omitempty"`
	WeatherContext string           `json:"weather_context,omitempty"`
}

// Message is the inbound customer message. It is never mutated after receipt.
type Message struct {
	RequestID  string           `json:"request_id"`
	Text       string           `json:"message"`
	CustomerID string           `json:"customer_id"`
	Location   *Location        `json:"location,omitempty"`
	Profile    *CustomerProfile `json:"customer_profile,omitempty"`
}

type RedactionCategory string

const (
	RedactEmail      RedactionCategory = "email"
	RedactPhone      RedactionCategory = "phone"
	RedactNationalID RedactionCategory = "national_id"
	RedactCard       RedactionCategory = "card"
)

// Finding locates one masked span in the original text. Values are never kept.
type Finding struct {
	Category RedactionCategory `json:"category"`
	Start    int               `json:"start"`
	End      int               `json:"end"`
}

type RedactionResult struct {
	Text     string    `json:"text"`
	Findings []Finding `json:"findings,omitempty"`
}

func (r RedactionResult) Categories() []RedactionCategory {
	seen := make(map[RedactionCategory]struct{}, len(r.Findings))
	out := make([]RedactionCategory, 0, len(r.Findings))
	for _, f := range r.Findings {
		if _, ok := seen[f.Category]; ok {
			continue
		}
		seen[f.Category] = struct{}{}
		out = append(out, f.Category)
	}
	return out
}

type ClassifyHints struct {
	HasLocation    bool   `json:"has_location"`
	WeatherContext string `json:"weather_context,omitempty"`
}

type IntentResult struct {
	Intent     Intent            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Emotion    Emotion           `json:"emotion"`
	Entities   map[string]string `json:"entities,omitempty"`
	Degraded   bool              `json:"degraded,omitempty"`
}

// DegradedIntent is the result used whenever classification cannot be trusted.
func DegradedIntent() IntentResult {
	return IntentResult{
		Intent:     IntentOther,
		Confidence: 0,
		Emotion:    EmotionNeutral,
		Entities:   map[string]string{},
		Degraded:   true,
	}
}

func (r IntentResult) Entity(key string) (string, bool) {
	v, ok := r.Entities[key]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

type AgentRequest struct {
	CustomerID string
	Location   *Location
	Profile    *CustomerProfile
	Intent     Intent
	Emotion    Emotion
	Entities   map[string]string
	Now        time.Time
}

func (r AgentRequest) Entity(key string) (string, bool) {
	v, ok := r.Entities[key]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r AgentRequest) WeatherContext() string {
	if r.Profile == nil {
		return ""
	}
	return r.Profile.WeatherContext
}

type AgentResult struct {
	Agent      AgentName     `json:"agent"`
	Found      bool          `json:"found"`
	Payload    any           `json:"payload,omitempty"`
	Confidence float64       `json:"confidence"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

func (r AgentResult) Failed() bool {
	return r.Error != ""
}

// GenerationContext is everything response generation may see. Text is redacted.
type GenerationContext struct {
	Message    string            `json:"message"`
	Intent     Intent            `json:"intent"`
	Emotion    Emotion           `json:"emotion"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities,omitempty"`
	Location   *Location         `json:"location,omitempty"`
	Profile    *CustomerProfile  `json:"profile,omitempty"`
	Data       map[string]any    `json:"data,omitempty"`
	Failures   map[string]string `json:"failures,omitempty"`
	Evidence   []Evidence        `json:"evidence,omitempty"`
	Now        time.Time         `json:"now"`
}

type Evidence struct {
	ID      string         `json:"id"`
	Content string         `json:"content"`
	Score   float64        `json:"score"`
	Meta    map[string]any `json:"meta,omitempty"`
}

type FallbackContext struct {
	RequestID  string
	CustomerID string
	Intent     IntentResult
	Location   *Location
	Profile    *CustomerProfile
	Now        time.Time
}

type Response struct {
	RequestID          string         `json:"request_id"`
	Reply              string         `json:"reply"`
	Intent             Intent         `json:"intent"`
	Emotion            Emotion        `json:"emotion"`
	Confidence         float64        `json:"confidence"`
	Mode               Mode           `json:"mode"`
	Data               map[string]any `json:"data,omitempty"`
	EscalationRequired bool           `json:"escalation_required"`
	Timestamp          time.Time      `json:"timestamp"`
}

type AuditRecord struct {
	RequestID  string              `json:"request_id"`
	CustomerID string              `json:"customer_id"`
	Categories []RedactionCategory `json:"categories"`
	Findings   []Finding           `json:"findings"`
	At         time.Time           `json:"at"`
}

type DecisionEvent struct {
	RequestID    string      `json:"request_id"`
	CustomerID   string      `json:"customer_id"`
	Intent       Intent      `json:"intent"`
	Confidence   float64     `json:"confidence"`
	Emotion      Emotion     `json:"emotion"`
	Degraded     bool        `json:"degraded"`
	Mode         Mode        `json:"mode"`
	Agents       []AgentName `json:"agents,omitempty"`
	FailedAgents []AgentName `json:"failed_agents,omitempty"`
	States       []string    `json:"states"`
	Escalated    bool        `json:"escalated"`
	Reason       string      `json:"reason,omitempty"`
	Duration     float64     `json:"duration_ms"`
	At           time.Time   `json:"at"`
}

type EscalationEvent struct {
	RequestID  string    `json:"request_id"`
	CustomerID string    `json:"customer_id"`
	Intent     Intent    `json:"intent"`
	Emotion    Emotion   `json:"emotion"`
	Mode       Mode      `json:"mode"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}
