package calendar

// MajorCurrencies is the default allow-list, in display order
var MajorCurrencies = []string{"USD", "EUR", "GBP", "JPY", "CHF", "AUD", "NZD", "CAD"}

// ExtraCurrencies are recognized but only shown with the all-currencies override
var ExtraCurrencies = []string{"CNY", "HKD"}

var currencyFlags = map[string]string{
	"USD": "🇺🇸",
	"EUR": "🇪🇺",
	"GBP": "🇬🇧",
	"JPY": "🇯🇵",
	"CHF": "🇨🇭",
	"AUD": "🇦🇺",
	"NZD": "🇳🇿",
	"CAD": "🇨🇦",
	"CNY": "🇨🇳",
	"HKD": "🇭🇰",
}

// currency -> two-letter country code used by TradingView
var currencyCountry = map[string]string{
	"USD": "US",
	"EUR": "EU",
	"GBP": "GB",
	"JPY": "JP",
	"CHF": "CH",
	"AUD": "AU",
	"NZD": "NZ",
	"CAD": "CA",
	"CNY": "CN",
	"HKD": "HK",
}

var countryCurrency = func() map[string]string {
	m := make(map[string]string, len(currencyCountry))
	for ccy, country := range currencyCountry {
		m[country] = ccy
	}
	return m
}()

// Flag returns the flag emoji for a currency, or a globe for unknown codes
func Flag(currency string) string {
	if flag, ok := currencyFlags[currency]; ok {
		return flag
	}
	return "🌐"
}

// IsKnownCurrency reports whether the code is a major or extra currency
func IsKnownCurrency(currency string) bool {
	_, ok := currencyFlags[currency]
	return ok
}

// IsMajor reports whether the code is one of MajorCurrencies
func IsMajor(currency string) bool {
	for _, c := range MajorCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

// CountryCode maps a currency to its two-letter country code
func CountryCode(currency string) (string, bool) {
	country, ok := currencyCountry[currency]
	return country, ok
}

// CountryCurrencies returns a copy of the country code -> currency table
func CountryCurrencies() map[string]string {
	m := make(map[string]string, len(countryCurrency))
	for k, v := range countryCurrency {
		m[k] = v
	}
	return m
}
