package arith

import "errors"

// ErrZeroInput is returned when a curve calculation receives an empty side.
var ErrZeroInput = errors.New("arith: curve input and reserves must be positive")

// BuyQuote describes the result of pricing a base-for-tokens swap.
type BuyQuote struct {
	BaseIn    uint64
	NetBase   uint64
	Fee       uint64
	TokensOut uint64
}

// SellQuote describes the result of pricing a tokens-for-base swap.
type SellQuote struct {
	TokensIn  uint64
	GrossBase uint64
	NetBase   uint64
	Fee       uint64
}

// BuyTokens prices a purchase against a constant-product curve. The fee is
// removed from the input before the curve is applied so the curve never
// prices it in:
//
//	net = in * (10000 - fee) / 10000
//	out = tokenReserves * net / (baseReserves + net)
func BuyTokens(baseIn, tokenReserves, baseReserves, feeBps uint64) (BuyQuote, error) {
	if baseIn == 0 || tokenReserves == 0 {
		return BuyQuote{}, ErrZeroInput
	}
	if feeBps > BpsDenominator {
		return BuyQuote{}, ErrInvalidBps
	}
	net, err := MulDiv(baseIn, BpsDenominator-feeBps, BpsDenominator)
	if err != nil {
		return BuyQuote{}, err
	}
	denominator, err := Add(baseReserves, net)
	if err != nil {
		return BuyQuote{}, err
	}
	out, err := MulDiv(tokenReserves, net, denominator)
	if err != nil {
		return BuyQuote{}, err
	}
	return BuyQuote{BaseIn: baseIn, NetBase: net, Fee: baseIn - net, TokensOut: out}, nil
}

// SellBase prices a sale against a constant-product curve. The fee is taken
// from the gross curve output:
//
//	gross = baseReserves * in / (tokenReserves + in)
//	net   = gross * (10000 - fee) / 10000
func SellBase(tokensIn, tokenReserves, baseReserves, feeBps uint64) (SellQuote, error) {
	if tokensIn == 0 || baseReserves == 0 {
		return SellQuote{}, ErrZeroInput
	}
	if feeBps > BpsDenominator {
		return SellQuote{}, ErrInvalidBps
	}
	denominator, err := Add(tokenReserves, tokensIn)
	if err != nil {
		return SellQuote{}, err
	}
	gross, err := MulDiv(baseReserves, tokensIn, denominator)
	if err != nil {
		return SellQuote{}, err
	}
	net, err := MulDiv(gross, BpsDenominator-feeBps, BpsDenominator)
	if err != nil {
		return SellQuote{}, err
	}
	return SellQuote{TokensIn: tokensIn, GrossBase: gross, NetBase: net, Fee: gross - net}, nil
}

// FeeSplit is a three-way apportionment of a trade fee. Dust holds the
// truncation remainder so that the parts always add back to the total.
type FeeSplit struct {
	Total    uint64 `json:"total"`
	Buyback  uint64 `json:"buyback"`
	Platform uint64 `json:"platform"`
	Creator  uint64 `json:"creator"`
	Dust     uint64 `json:"dust"`
}

// SplitFee apportions total by the supplied basis points.
func SplitFee(total, buybackBps, platformBps, creatorBps uint64) (FeeSplit, error) {
	splitSum, err := Sum(buybackBps, platformBps, creatorBps)
	if err != nil {
		return FeeSplit{}, err
	}
	if splitSum > BpsDenominator {
		return FeeSplit{}, ErrInvalidBps
	}
	split := FeeSplit{Total: total}
	if split.Buyback, err = ApplyBps(total, buybackBps); err != nil {
		return FeeSplit{}, err
	}
	if split.Platform, err = ApplyBps(total, platformBps); err != nil {
		return FeeSplit{}, err
	}
	if split.Creator, err = ApplyBps(total, creatorBps); err != nil {
		return FeeSplit{}, err
	}
	allocated, err := Sum(split.Buyback, split.Platform, split.Creator)
	if err != nil {
		return FeeSplit{}, err
	}
	if split.Dust, err = Sub(total, allocated); err != nil {
		return FeeSplit{}, err
	}
	return split, nil
}
