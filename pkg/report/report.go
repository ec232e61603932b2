package report

import (
	"fmt"

	"github.com/convkit/abtest/pkg/stats"
)

// Render formats a test result for humans. labelA/labelB name the variants
// ("A"/"B" or whatever the experiment calls them).
func Render(res stats.Result, labelA, labelB string) string {
	switch res.Kind {
	case stats.Significant:
		label := labelA
		if res.Winner == stats.VariantB {
			label = labelB
		}
		return fmt.Sprintf("Version %s is the winner!\nThe increase in conversion rates is likely between %.2f%% and %.2f%%.",
			label, res.IntervalLow*100, res.IntervalHigh*100)
	case stats.InsufficientData:
		return "Insufficient sample size."
	case stats.InvalidInput:
		return "Invalid input: conversion rates must be between 0 and 1 and sample sizes non-negative."
	default:
		return "No statistically significant difference was found."
	}
}
