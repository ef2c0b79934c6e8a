package example

// Example 是首页上的预置问题，点击即按该问题提交。
type Example struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Query string `json:"query"`
}

// Seed provides the canned questions shown before the first message.
func Seed() []Example {
	return []Example{
		{
			ID:    "expense-ratio",
			Label: "Expense Ratio",
			Query: "What is the expense ratio of HDFC Flexi Cap Fund?",
		},
		{
			ID:    "tax-statement",
			Label: "Tax Statement",
			Query: "How to download capital gains statement?",
		},
		{
			ID:    "exit-load",
			Label: "Exit Load",
			Query: "What is the exit load for HDFC Large Cap?",
		},
	}
}
