package generator

import (
	"context"
	"fmt"
	"strings"

	specialistx "github.com/tanpawarit/auracx/agent/agents/specialist"
	catalogx "github.com/tanpawarit/auracx/agent/catalog"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

var _ contractx.Generator = (*TemplateGenerator)(nil)

// TemplateGenerator builds replies from agent payloads without an external model. It
// also answers from evidence, which lets it stand in for the grounded fallback answer.
type TemplateGenerator struct{}

func NewTemplate() *TemplateGenerator {
	return &TemplateGenerator{}
}

func (g *TemplateGenerator) Generate(ctx context.Context, in contractx.GenerationContext) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if len(in.Data) == 0 && len(in.Evidence) > 0 {
		return strings.TrimSpace(in.Evidence[0].Content), nil
	}

	var parts []string
	if in.Emotion == contractx.EmotionFrustrated || in.Emotion == contractx.EmotionNegative {
		parts = append(parts, "Sorry for the trouble.")
	}

	order := []contractx.AgentName{contractx.AgentStore, contractx.AgentInventory, contractx.AgentOrder, contractx.AgentOffers}
	if in.Intent == contractx.IntentProductRecommendation {
		order = []contractx.AgentName{contractx.AgentOffers, contractx.AgentInventory, contractx.AgentStore, contractx.AgentOrder}
	}
	wrote := false
	for _, name := range order {
		v, ok := in.Data[string(name)]
		if !ok {
			continue
		}
		if s := describe(in, v); s != "" {
			parts = append(parts, s)
			wrote = true
		}
	}

	if len(in.Failures) > 0 {
		parts = append(parts, "Some information is unavailable right now.")
	}
	if !wrote && len(in.Failures) == 0 {
		return "", fmt.Errorf("%w: nothing to say for intent=%s", contractx.ErrSchemaViolation, in.Intent)
	}
	if in.Emotion == contractx.EmotionCold && wrote {
		parts = append(parts, "A hot drink should warm you up.")
	}
	return strings.Join(parts, " "), nil
}

func describe(in contractx.GenerationContext, v any) string {
	switch p := v.(type) {
	case specialistx.StorePayload:
		return describeStore(in.Intent, p)
	case specialistx.InventoryPayload:
		return describeInventory(p)
	case specialistx.OrderPayload:
		return describeOrder(p)
	case specialistx.OffersPayload:
		return describeOffers(p)
	}
	return ""
}

func describeStore(intent contractx.Intent, p specialistx.StorePayload) string {
	if intent == contractx.IntentLocationRecommendation && len(p.Nearby) > 0 {
		n := p.Nearby[0]
		s := fmt.Sprintf("The nearest store is %s at %s, %.1f km away.", n.Name, n.Address, n.DistanceKm)
		if p.Store != nil && p.Store.StoreID == n.StoreID && p.Store.OpenNow {
			s += fmt.Sprintf(" It is open until %s.", p.Store.Closes)
		}
		return s
	}
	if p.Store == nil {
		return ""
	}
	h := p.Store
	switch {
	case !h.Found:
		return "I couldn't find that store."
	case h.ClosedToday:
		return fmt.Sprintf("%s is closed today.", h.Name)
	case h.OpenNow:
		return fmt.Sprintf("%s is open now and closes at %s.", h.Name, h.Closes)
	default:
		return fmt.Sprintf("%s is closed right now. Today's hours are %s to %s.", h.Name, h.Opens, h.Closes)
	}
}

func describeInventory(p specialistx.InventoryPayload) string {
	if p.Menu != nil {
		return describeMenu(*p.Menu)
	}
	product := displayProduct(p.Product)
	var s string
	switch {
	case p.Store != nil && !p.Store.StoreFound:
		s = "I couldn't find that store."
	case p.Store != nil && p.Store.Available:
		return fmt.Sprintf("%s is in stock (%d available at $%.2f).", product, p.Store.Quantity, p.Store.Price)
	case p.Store != nil && p.Store.Found:
		s = fmt.Sprintf("%s is sold out at this store.", product)
	case p.Store != nil:
		s = fmt.Sprintf("This store doesn't carry %s.", strings.ToLower(product))
	}
	if len(p.Alternatives) > 0 {
		ids := make([]string, 0, len(p.Alternatives))
		for _, a := range p.Alternatives {
			ids = append(ids, a.StoreID)
		}
		alt := fmt.Sprintf("%s is available at %s.", product, strings.Join(ids, ", "))
		if s == "" {
			return alt
		}
		return s + " " + alt
	}
	if s == "" {
		return fmt.Sprintf("%s isn't available at any store right now.", product)
	}
	return s
}

func describeOrder(p specialistx.OrderPayload) string {
	if p.Order != nil {
		if !p.Order.Found {
			return fmt.Sprintf("I couldn't find order #%s.", p.Order.OrderID)
		}
		return describeOrderStatus(*p.Order)
	}
	if len(p.History) == 0 {
		return "I couldn't find any orders for you."
	}
	return "Your most recent order: " + describeOrderStatus(p.History[0])
}

func describeOrderStatus(o catalogx.OrderStatus) string {
	s := fmt.Sprintf("Order #%s is %s", o.OrderID, strings.ReplaceAll(o.Status, "_", " "))
	if o.StoreName != "" {
		s += " at " + o.StoreName
	}
	s += "."
	if o.PickupTime != "" {
		s += " Pickup: " + o.PickupTime + "."
	}
	return s
}

func describeOffers(p specialistx.OffersPayload) string {
	var parts []string
	if p.Coupon != nil {
		if p.Coupon.Valid {
			parts = append(parts, fmt.Sprintf("Code %s is valid: %s.", p.Coupon.Code, p.Coupon.Offer.Description))
		} else {
			parts = append(parts, fmt.Sprintf("Code %s can't be used (%s).", p.Coupon.Code, p.Coupon.Reason))
		}
	}
	if q := p.Quote; q != nil && q.Applied {
		parts = append(parts, fmt.Sprintf("With it you'd pay $%.2f instead of $%.2f.", q.Total, q.Subtotal))
	}
	if len(p.Offers) > 0 {
		items := make([]string, 0, len(p.Offers))
		for _, of := range p.Offers {
			items = append(items, fmt.Sprintf("%s (code %s)", of.Description, of.Code))
		}
		parts = append(parts, "Current offers: "+strings.Join(items, "; ")+".")
	}
	return strings.Join(parts, " ")
}

func describeMenu(m catalogx.Menu) string {
	var items []string
	for _, it := range m.Items {
		if it.InStock {
			items = append(items, strings.ReplaceAll(it.Product, "_", " "))
		}
	}
	if len(items) == 0 {
		return fmt.Sprintf("%s has nothing in stock right now.", m.Name)
	}
	return fmt.Sprintf("%s has %s in stock.", m.Name, strings.Join(items, ", "))
}

func displayProduct(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
