package usecase

import (
	"context"
	"fmt"

	domain "github.com/skymall/checkout-api/internal/entity"
	"github.com/skymall/checkout-api/internal/logging"
)

// PricingEngine computes cart totals in integer minor units. Unit prices come
// from the catalog on every call; the tax collaborator's outage degrades to
// zero exemption so tax is never accidentally under-collected.
type PricingEngine struct {
	catalog       CatalogClient
	tax           TaxClient
	rates         *CurrencyRateStore
	serviceFeeBps int64
}

func NewPricingEngine(catalog CatalogClient, tax TaxClient, rates *CurrencyRateStore, serviceFeeBps int64) *PricingEngine {
	return &PricingEngine{catalog: catalog, tax: tax, rates: rates, serviceFeeBps: serviceFeeBps}
}

type PricedCart struct {
	Items           []domain.CartItem
	SubtotalMinor   int64
	ServiceFeeMinor int64
	TaxExemptMinor  int64
}

// Price resolves catalog prices for every line and sums unitPrice*qty.
// Client-supplied prices never enter the computation.
func (p *PricingEngine) Price(ctx context.Context, items []domain.CartItem, taxQ TaxQuery) (PricedCart, error) {
	skus := make([]string, 0, len(items))
	for _, it := range items {
		skus = append(skus, it.SKU)
	}
	priced, err := p.catalog.Prices(ctx, skus)
	if err != nil {
		return PricedCart{}, fmt.Errorf("catalog prices: %w", err)
	}

	out := PricedCart{Items: make([]domain.CartItem, 0, len(items))}
	for _, it := range items {
		ci, ok := priced[it.SKU]
		if !ok {
			return PricedCart{}, fmt.Errorf("sku %q: %w", it.SKU, domain.ErrInsufficientInventory)
		}
		it.UnitPriceMinor = ci.UnitPriceMinor
		it.DutyFreeEligible = ci.DutyFreeEligible
		out.Items = append(out.Items, it)
		out.SubtotalMinor += ci.UnitPriceMinor * it.Quantity
	}

	out.ServiceFeeMinor = out.SubtotalMinor * p.serviceFeeBps / 10_000

	taxQ.Items = dutyFreeOnly(out.Items)
	if len(taxQ.Items) > 0 {
		exempt, err := p.tax.ExemptMinor(ctx, taxQ)
		if err != nil {
			// Conservative fallback: no exemption beats under-collecting tax.
			logging.FromCtx(ctx).Warn("tax collaborator unavailable, zero exemption applied", "err", err)
			exempt = 0
		}
		out.TaxExemptMinor = exempt
	}
	return out, nil
}

// AmountDue folds discounts and loyalty value into the final total, clamped at
// zero so oversized discounts never produce a negative due amount.
func (p *PricingEngine) AmountDue(c PricedCart, taxMinor, discountMinor, loyaltyMinor int64) int64 {
	due := c.SubtotalMinor + c.ServiceFeeMinor + taxMinor - c.TaxExemptMinor - discountMinor - loyaltyMinor
	return domain.ClampMinor(due)
}

// ConvertTo converts an amount to the settlement currency using the cached
// micro-scaled rates, rounding to the nearest minor unit.
func (p *PricingEngine) ConvertTo(amountMinor int64, fromCurrency, toCurrency string) (int64, error) {
	if fromCurrency == toCurrency {
		return amountMinor, nil
	}
	return p.rates.Convert(amountMinor, fromCurrency, toCurrency)
}

func dutyFreeOnly(items []domain.CartItem) []domain.CartItem {
	var out []domain.CartItem
	for _, it := range items {
		if it.DutyFreeEligible {
			out = append(out, it)
		}
	}
	return out
}
