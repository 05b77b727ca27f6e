// Package classifier derives a priority tier from message content.
//
// This is a deliberately cheap keyword gate, not a trained model. The
// critical list is checked first so a message mentioning both an urgent
// cue and a soft deadline cue is never downgraded.
package classifier

import (
	"strings"

	"github.com/elicheradice/support-platform/internal/model"
)

// criticalKeywords indicate issues requiring immediate attention.
var criticalKeywords = []string{
	"urgent",
	"emergency",
	"sinking",
	"fire",
	"leak",
	"not working",
	"broken",
	"help",
	"mayday",
}

// highKeywords indicate important but non-emergency matters.
var highKeywords = []string{
	"soon",
	"today",
	"asap",
	"quickly",
	"important",
}

// Result is the outcome of classifying one message.
type Result struct {
	Priority   model.Priority
	Confidence float64
}

// Classify scans content case-insensitively against the keyword lists.
// Empty input yields a normal-priority result, never an error.
func Classify(content string) Result {
	if content == "" {
		return Result{Priority: model.PriorityNormal, Confidence: 0.5}
	}

	lower := strings.ToLower(content)

	for _, keyword := range criticalKeywords {
		if strings.Contains(lower, keyword) {
			return Result{Priority: model.PriorityCritical, Confidence: 0.9}
		}
	}

	for _, keyword := range highKeywords {
		if strings.Contains(lower, keyword) {
			return Result{Priority: model.PriorityHigh, Confidence: 0.7}
		}
	}

	return Result{Priority: model.PriorityNormal, Confidence: 0.5}
}
