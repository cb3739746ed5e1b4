package specialist

import (
	"context"
	"strconv"

	catalogx "github.com/tanpawarit/auracx/agent/catalog"
	contractx "github.com/tanpawarit/auracx/agent/contract"
)

type OffersPayload struct {
	Weather string                     `json:"weather,omitempty"`
	Offers  []catalogx.Offer           `json:"offers"`
	Coupon  *catalogx.CouponCheck      `json:"coupon,omitempty"`
	Quote   *catalogx.OfferApplication `json:"quote,omitempty"`
}

type offersAgent struct {
	snap *catalogx.Snapshot
}

func NewOffersAgent(snap *catalogx.Snapshot) contractx.Agent {
	return &offersAgent{snap: snap}
}

func (a *offersAgent) Name() contractx.AgentName { return contractx.AgentOffers }

func (a *offersAgent) Run(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return contractx.AgentResult{}, err
	}

	weather := effectiveWeather(req)
	payload := OffersPayload{
		Weather: weather,
		Offers:  a.snap.PersonalizedOffers(req.CustomerID, weather, req.Now),
	}
	if code, ok := req.Entity("coupon_code"); ok {
		check := a.snap.ValidateCoupon(code, req.Now)
		payload.Coupon = &check
		if check.Valid {
			payload.Quote = a.quote(req, code)
		}
	}
	if payload.Offers == nil {
		payload.Offers = []catalogx.Offer{}
	}

	found := len(payload.Offers) > 0 || (payload.Coupon != nil && payload.Coupon.Valid)
	return contractx.AgentResult{
		Agent:      contractx.AgentOffers,
		Found:      found,
		Payload:    payload,
		Confidence: boolConfidence(found),
	}, nil
}

// The profile's weather wins; otherwise a cold or warm customer stands in for it.
func effectiveWeather(req contractx.AgentRequest) string {
	if w := req.WeatherContext(); w != "" {
		return w
	}
	switch req.Emotion {
	case contractx.EmotionCold:
		return "cold"
	case contractx.EmotionWarm:
		return "hot"
	}
	return ""
}

// quote prices the mentioned product at the resolved store with the coupon applied.
func (a *offersAgent) quote(req contractx.AgentRequest, code string) *catalogx.OfferApplication {
	product, ok := req.Entity("product")
	if !ok {
		return nil
	}
	storeID, _, ok := resolveStore(a.snap, req)
	if !ok {
		return nil
	}
	qty := 1
	if raw, ok := req.Entity("quantity"); ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			qty = n
		}
	}
	app := a.snap.ApplyOffer(storeID, []catalogx.LineItem{{Product: product, Quantity: qty}}, code, req.Now)
	return &app
}
