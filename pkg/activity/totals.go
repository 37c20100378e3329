package activity

import "github.com/shopspring/decimal"

// CartTotal sums price times quantity over the lines, rounded to cents.
func CartTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total.Round(2)
}

// CartTotalFloat is CartTotal as a float for JSON payloads.
func CartTotalFloat(lines []CartLine) float64 {
	f, _ := CartTotal(lines).Float64()
	return f
}
