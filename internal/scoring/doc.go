// Package scoring derives heuristic posture scores from AI report text.
//
// The score combines two signals found in the Markdown:
//   - how often the words critical, high, medium and low appear (each capped)
//   - the letter grade the model gave itself ("Grade: B", "Self-grade - C")
//
// These are display heuristics for the dashboard, not a vulnerability rating.
package scoring
