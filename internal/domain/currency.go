package domain

// Currency is the closed set of currencies accepted for listing prices and
// transaction amounts. Stored as its string code.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyAED Currency = "AED"
	CurrencyINR Currency = "INR"
)

// ValidCurrency reports whether c is one of the supported currency codes.
func ValidCurrency(c Currency) bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyAED, CurrencyINR:
		return true
	}
	return false
}
