package synth

var assetNames = map[string]string{
	"BTC":   "Bitcoin",
	"ETH":   "Ethereum",
	"SOL":   "Solana",
	"XAU":   "Gold",
	"SPY":   "S&P 500",
	"NVDA":  "NVIDIA",
	"GOOGL": "Google",
	"TSLA":  "Tesla",
	"AAPL":  "Apple",
}

// AssetName returns the display name, or the symbol itself when unknown.
func AssetName(symbol string) string {
	if n, ok := assetNames[symbol]; ok {
		return n
	}
	return symbol
}
