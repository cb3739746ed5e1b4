package catalog

import (
	"math"
	"strings"
	"time"
)

const (
	LoyaltyOfferID    = "LOYALTY_REWARD"
	categoryAll       = "all"
	categoryHotDrinks = "hot_drinks"
	categoryColdDrink = "cold_drinks"
	popularOfferCount = 3
)

// PersonalizedOffers picks live offers for a customer. Cold weather favours hot drinks,
// hot weather favours cold drinks, and the loyalty reward is appended for known
// customers. Without any weather signal the first few live offers are returned.
func (s *Snapshot) PersonalizedOffers(customerID, weather string, now time.Time) []Offer {
	live := make([]Offer, 0, len(s.offers))
	for _, of := range s.offers {
		if offerLive(of, now) {
			live = append(live, of)
		}
	}

	var want string
	switch w := strings.ToLower(weather); {
	case strings.Contains(w, "cold"), strings.Contains(w, "winter"), strings.Contains(w, "snow"):
		want = categoryHotDrinks
	case strings.Contains(w, "hot"), strings.Contains(w, "summer"), strings.Contains(w, "warm"):
		want = categoryColdDrink
	}

	var out []Offer
	seen := make(map[string]struct{})
	add := func(of Offer) {
		if _, ok := seen[of.ID]; ok {
			return
		}
		seen[of.ID] = struct{}{}
		out = append(out, of.clone())
	}

	if want == "" {
		for i, of := range live {
			if i == popularOfferCount {
				break
			}
			add(of)
		}
	} else {
		for _, of := range live {
			if of.ID == LoyaltyOfferID {
				continue
			}
			if of.hasCategory(want) || of.hasCategory(categoryAll) {
				add(of)
			}
		}
	}

	if strings.TrimSpace(customerID) != "" {
		for _, of := range live {
			if of.ID == LoyaltyOfferID {
				add(of)
			}
		}
	}
	return out
}

type CouponCheck struct {
	Code   string `json:"code"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Offer  *Offer `json:"offer,omitempty"`
}

func (s *Snapshot) ValidateCoupon(code string, now time.Time) CouponCheck {
	code = strings.ToUpper(strings.TrimSpace(code))
	out := CouponCheck{Code: code}
	of, ok := s.offerByCode(code)
	if !ok {
		out.Reason = "unknown code"
		return out
	}
	c := of.clone()
	out.Offer = &c
	if !offerLive(of, now) {
		out.Reason = "expired"
		return out
	}
	out.Valid = true
	return out
}

type OfferApplication struct {
	Code     string  `json:"code"`
	Applied  bool    `json:"applied"`
	Reason   string  `json:"reason,omitempty"`
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// ApplyOffer prices items at storeID and applies code to the items in the offer's
// categories. Unknown products are priced at zero and never discounted.
func (s *Snapshot) ApplyOffer(storeID string, items []LineItem, code string, now time.Time) OfferApplication {
	products := s.inventory[storeID]
	var subtotal, eligible float64

	check := s.ValidateCoupon(code, now)
	for _, li := range items {
		qty := li.Quantity
		if qty <= 0 {
			qty = 1
		}
		it, ok := products[NormalizeProduct(li.Product)]
		if !ok {
			continue
		}
		line := it.Price * float64(qty)
		subtotal += line
		if check.Offer != nil && (check.Offer.hasCategory(categoryAll) || check.Offer.hasCategory(it.Category)) {
			eligible += line
		}
	}

	out := OfferApplication{
		Code:     check.Code,
		Subtotal: round2(subtotal),
		Total:    round2(subtotal),
	}
	switch {
	case !check.Valid:
		out.Reason = check.Reason
		return out
	case subtotal < check.Offer.MinPurchase:
		out.Reason = "minimum purchase not met"
		return out
	case eligible == 0:
		out.Reason = "no eligible items"
		return out
	}

	var discount float64
	switch check.Offer.Type {
	case OfferPercentage:
		discount = eligible * check.Offer.Discount / 100
	case OfferFixed:
		discount = math.Min(check.Offer.Discount, eligible)
	}
	out.Applied = true
	out.Discount = round2(discount)
	out.Total = round2(subtotal - discount)
	return out
}

func (s *Snapshot) offerByCode(code string) (Offer, bool) {
	for _, of := range s.offers {
		if strings.EqualFold(of.Code, code) {
			return of, true
		}
	}
	return Offer{}, false
}

// An offer is live through the end of its valid_until day, UTC.
func offerLive(of Offer, now time.Time) bool {
	if of.ValidUntil == "" {
		return true
	}
	until, err := time.Parse(time.DateOnly, of.ValidUntil)
	if err != nil {
		return false
	}
	return now.UTC().Before(until.AddDate(0, 0, 1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
