package domain

// CoinGeckoID maps internal symbols to CoinGecko API identifiers.
var CoinGeckoID = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"MATIC": "matic-network",
	"LTC":   "litecoin",
}

// CoinGeckoIDToSymbol is the reverse mapping.
var CoinGeckoIDToSymbol map[string]string

// BinancePair maps internal symbols to Binance USDT spot pairs.
var BinancePair = map[string]string{
	"BTC":   "BTCUSDT",
	"ETH":   "ETHUSDT",
	"BNB":   "BNBUSDT",
	"SOL":   "SOLUSDT",
	"XRP":   "XRPUSDT",
	"ADA":   "ADAUSDT",
	"DOGE":  "DOGEUSDT",
	"DOT":   "DOTUSDT",
	"AVAX":  "AVAXUSDT",
	"LINK":  "LINKUSDT",
	"MATIC": "MATICUSDT",
	"LTC":   "LTCUSDT",
}

func init() {
	CoinGeckoIDToSymbol = make(map[string]string, len(CoinGeckoID))
	for sym, id := range CoinGeckoID {
		CoinGeckoIDToSymbol[id] = sym
	}
}

// SupportedSymbols lists all symbols the agent can trade.
var SupportedSymbols = []string{
	"BTC", "ETH", "BNB", "SOL", "XRP", "ADA",
	"DOGE", "DOT", "AVAX", "LINK", "MATIC", "LTC",
}

// IsSupported reports whether symbol is tracked by the market-data providers.
func IsSupported(symbol string) bool {
	_, ok := CoinGeckoID[symbol]
	return ok
}
