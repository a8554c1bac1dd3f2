// Package scoring implements heuristic transcript scoring, LLM score
// fusion and the keyword diversity filter. Markers are tuned for
// Indonesian/English podcast, education and finance content.
package scoring

import (
	"math"
	"regexp"
	"strings"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

var hookMarkersID = []string{
	"ternyata", "faktanya", "yang orang gak tau", "yang banyak orang",
	"ini salah", "salah kaprah", "masalahnya", "bahaya", "jangan",
	"kuncinya", "cara paling", "cara terbaik", "yang bikin",
	"yang kamu gak sadar", "ini penting", "rahasia", "trik",
	"sebenarnya", "padahal", "banyak yang salah",
}

var hookMarkersEN = []string{
	"here's the truth", "most people", "the problem is", "this is why",
	"you're doing it wrong", "the secret", "what nobody tells you",
	"let me be clear", "the real reason", "here's what", "actually",
	"the truth is", "you need to know", "stop doing this",
}

// Finance/investing markers
var finMarkers = []string{
	"roi", "return", "inflasi", "interest", "bunga", "compound",
	"risk", "diversify", "volatility", "margin", "leverage",
	"cashflow", "net worth", "yield", "cagr", "valuation",
	"liquidity", "drawdown", "saham", "investasi", "reksadana",
	"crypto", "bitcoin", "portfolio", "dividen",
}

// Actionable content patterns
var actionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(3|tiga|5|lima|7|tujuh|10)\s+(hal|cara|langkah|tips|step)\b`),
	regexp.MustCompile(`\b(cara|how to|steps?|tips?)\b`),
	regexp.MustCompile(`\b(lakukan|stop|mulai|catat|hindari|coba|ingat|harus)\b`),
	regexp.MustCompile(`\b(first|second|third|pertama|kedua|ketiga)\b`),
}

// Payoff/conclusion markers
var payoffMarkersID = []string{
	"jadi intinya", "makanya", "kesimpulannya", "intinya",
	"poinnya adalah", "yang penting", "takeaway",
}

var payoffMarkersEN = []string{
	"so the point is", "that's why", "in summary", "the takeaway is",
	"bottom line", "in conclusion", "the key is",
}

// RiskPenalty maps a risk flag to its score penalty.
var RiskPenalty = map[string]float64{
	"needs_context":   10,
	"too_slow":        10,
	"sensitive":       15,
	"unclear_audio":   10,
	"copyright_music": 8,
}

var numericPattern = regexp.MustCompile(`\b\d+(\.\d+)?%?\b`)

var vagueWords = []string{"itu", "ini", "yang tadi", "gitu", "that", "it", "they", "those"}

// HookScore scores hook markers in the first ~25 words.
// Higher score = stronger hook potential.
func HookScore(text string) float64 {
	t := strings.ToLower(text)
	words := strings.Fields(t)
	if len(words) > 25 {
		words = words[:25]
	}
	early := strings.Join(words, " ")

	score := 0.0
	for _, m := range hookMarkersID {
		if strings.Contains(early, m) {
			score += 12.0
		}
	}
	for _, m := range hookMarkersEN {
		if strings.Contains(early, m) {
			score += 12.0
		}
	}

	// Punctuation excitement
	score += math.Min(10.0, 2.0*float64(strings.Count(early, "!")))
	score += math.Min(8.0, 1.5*float64(strings.Count(early, "?")))

	return math.Min(100.0, score)
}

// FinanceScore scores finance/investing content.
func FinanceScore(text string) float64 {
	t := strings.ToLower(text)
	score := 0.0

	// Numeric signals (percentages, numbers)
	score += math.Min(20.0, 5.0*float64(len(numericPattern.FindAllString(t, -1))))

	for _, m := range finMarkers {
		if strings.Contains(t, m) {
			score += 8.0
		}
	}

	return math.Min(100.0, score)
}

// ActionScore scores actionable/how-to content.
func ActionScore(text string) float64 {
	t := strings.ToLower(text)
	score := 0.0

	for _, pat := range actionPatterns {
		if pat.MatchString(t) {
			score += 20.0
		}
	}

	return math.Min(100.0, score)
}

// PayoffScore scores conclusion/payoff markers near the end.
func PayoffScore(text string) float64 {
	t := strings.ToLower(text)
	words := strings.Fields(t)
	if len(words) > 35 {
		words = words[len(words)-35:]
	}
	tail := strings.Join(words, " ")

	score := 0.0
	for _, m := range payoffMarkersID {
		if strings.Contains(tail, m) {
			score += 25.0
		}
	}
	for _, m := range payoffMarkersEN {
		if strings.Contains(tail, m) {
			score += 25.0
		}
	}

	return math.Min(100.0, score)
}

// ClarityScore penalizes vague references and rewards concrete nouns,
// using long words as a proxy for concreteness.
func ClarityScore(text string) float64 {
	t := strings.ToLower(text)

	vagueCount := 0
	for _, v := range vagueWords {
		vagueCount += strings.Count(t, v)
	}

	longWords := 0
	for _, w := range strings.Fields(t) {
		if len(w) >= 7 {
			longWords++
		}
	}

	raw := 60.0 + 2.0*float64(longWords) - 6.0*float64(vagueCount)
	return math.Max(0.0, math.Min(100.0, raw))
}

// PacingScore scores speaking pace in words per minute.
// Optimal is around 160 WPM for short-form; outside 80-240 is penalized flat.
func PacingScore(wordCount int, durationSec float64) float64 {
	if durationSec <= 0 {
		return 0.0
	}

	wpm := float64(wordCount) / durationSec * 60.0

	if wpm < 80 || wpm > 240 {
		return 10.0
	}

	dist := math.Abs(wpm - 160.0)
	return math.Max(20.0, math.Min(100.0, 100.0-(dist/80.0)*80.0))
}

// Fuse combines the LLM score with the heuristic components:
//
//	0.50*llm + 0.18*hook + 0.10*finance + 0.08*action + 0.08*payoff
//	+ 0.04*clarity + 0.02*pacing - risk penalty
//
// clamped to [0, 100].
func Fuse(llmScore float64, text string, riskFlags []string, durationSec float64) (float64, models.ScoreBreakdown) {
	wordCount := len(strings.Fields(text))

	b := models.ScoreBreakdown{
		Hook:    HookScore(text),
		Finance: FinanceScore(text),
		Action:  ActionScore(text),
		Payoff:  PayoffScore(text),
		Clarity: ClarityScore(text),
		Pacing:  PacingScore(wordCount, durationSec),
	}
	if durationSec > 0 {
		b.WPM = float64(wordCount) / durationSec * 60.0
	}

	for _, f := range riskFlags {
		b.RiskPenalty += RiskPenalty[f]
	}

	final := 0.50*llmScore +
		0.18*b.Hook +
		0.10*b.Finance +
		0.08*b.Action +
		0.08*b.Payoff +
		0.04*b.Clarity +
		0.02*b.Pacing -
		b.RiskPenalty

	return math.Max(0.0, math.Min(100.0, final)), b
}
