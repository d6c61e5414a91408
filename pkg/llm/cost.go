package llm

// USD per 1M tokens.
var pricing = map[string]modelPrice{
	"gpt-4o":       {Input: 2.50, Output: 10.00},
	"gpt-4o-mini":  {Input: 0.15, Output: 0.60},
	"gpt-4.1":      {Input: 2.00, Output: 8.00},
	"gpt-4.1-mini": {Input: 0.40, Output: 1.60},

	"claude-3-5-sonnet-20241022": {Input: 3.00, Output: 15.00},
	"claude-3-5-haiku-20241022":  {Input: 0.80, Output: 4.00},

	"MiniMax-M2.5": {Input: 1.10, Output: 4.40},
	"MiniMax-M2":   {Input: 0.50, Output: 2.00},
}

type modelPrice struct {
	Input  float64
	Output float64
}

// EstimateCost returns the cost in USD of a generation, or 0 for models
// without a known price (local models included).
func EstimateCost(model string, tokensIn, tokensOut int) float64 {
	p, ok := pricing[model]
	if !ok {
		return 0
	}
	return (float64(tokensIn)*p.Input + float64(tokensOut)*p.Output) / 1_000_000
}
