package classifier

import (
	"context"
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/auracx/agent/contract"
)

var _ contractx.Classifier = (*KeywordClassifier)(nil)

type keywordRule struct {
	intent     contractx.Intent
	confidence float64
	phrases    []string
}

// Checked in order; the first rule with a matching phrase wins.
var intentRules = []keywordRule{
	{contractx.IntentOrderStatus, 0.9, []string{"my order", "order status", "order #", "order number", "is my order", "track", "ready for pickup"}},
	{contractx.IntentStockCheck, 0.85, []string{"in stock", "stock", "available", "do you have", "have any", "sold out"}},
	{contractx.IntentLocationRecommendation, 0.8, []string{"nearest", "near me", "closest", "nearby", "where can i", "which store", "directions"}},
	{contractx.IntentStoreHours, 0.9, []string{"open", "closes", "closed", "closing", "hours", "opening"}},
	{contractx.IntentProductRecommendation, 0.8, []string{"recommend", "suggest", "what should i", "deal", "offer", "coupon", "discount", "promo", "menu"}},
}

var emotionRules = []struct {
	emotion contractx.Emotion
	phrases []string
}{
	{contractx.EmotionFrustrated, []string{"frustrated", "annoyed", "ridiculous", "still waiting", "angry", "unacceptable", "fed up"}},
	{contractx.EmotionCold, []string{"cold", "freezing", "chilly", "frozen"}},
	{contractx.EmotionWarm, []string{"i'm hot", "so hot", "too hot", "sweating", "boiling", "heatwave"}},
	{contractx.EmotionNegative, []string{"bad", "disappointed", "unhappy", "terrible", "awful", "wrong"}},
	{contractx.EmotionPositive, []string{"thanks", "thank you", "great", "love", "awesome", "perfect"}},
}

var productAliases = []struct {
	product string
	phrases []string
}{
	{"hot_cocoa", []string{"hot cocoa", "hot chocolate", "cocoa"}},
	{"iced_coffee", []string{"iced coffee", "cold brew"}},
	{"cappuccino", []string{"cappuccino"}},
	{"latte", []string{"latte"}},
	{"pastry", []string{"pastry", "pastries", "croissant"}},
	{"coffee", []string{"coffee"}},
}

var (
	orderIDPattern = regexp.MustCompile(`(?i)(?:order\s*(?:#|number|no\.?|id)?\s*:?\s*#?|#)(\d{3,})`)
	couponPattern  = regexp.MustCompile(`\b[A-Z]{3,}\d{1,3}\b`)
	storePattern   = regexp.MustCompile(`(?i)\b(downtown|midtown|phoenix|los angeles)\b`)
	lowConfidence  = 0.3
)

// KeywordClassifier is a rule table for running without an external model.
type KeywordClassifier struct{}

func NewKeyword() *KeywordClassifier {
	return &KeywordClassifier{}
}

func (k *KeywordClassifier) Classify(_ context.Context, text string, _ contractx.ClassifyHints) contractx.IntentResult {
	if strings.TrimSpace(text) == "" {
		return contractx.DegradedIntent()
	}
	lower := strings.ToLower(text)

	out := contractx.IntentResult{
		Intent:     contractx.IntentOther,
		Confidence: lowConfidence,
		Emotion:    contractx.EmotionNeutral,
		Entities:   map[string]string{},
	}

	for _, r := range emotionRules {
		if containsAny(lower, r.phrases) {
			out.Emotion = r.emotion
			break
		}
	}

	if m := orderIDPattern.FindStringSubmatch(text); m != nil {
		out.Entities["order_id"] = m[1]
	}
	if m := couponPattern.FindString(text); m != "" {
		out.Entities["coupon_code"] = m
	}
	if m := storePattern.FindStringSubmatch(text); m != nil {
		out.Entities["store_id"] = strings.ToLower(m[1])
	}
	for _, p := range productAliases {
		if containsAny(lower, p.phrases) {
			out.Entities["product"] = p.product
			break
		}
	}

	if _, ok := out.Entities["order_id"]; ok {
		out.Intent = contractx.IntentOrderStatus
		out.Confidence = 0.9
		return out
	}
	for _, r := range intentRules {
		if containsAny(lower, r.phrases) {
			out.Intent = r.intent
			out.Confidence = r.confidence
			break
		}
	}
	return out
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
