package usecase

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"github.com/nakedpantry/backend/internal/domain"
	"github.com/nakedpantry/backend/internal/logger"
	"github.com/nakedpantry/backend/internal/metrics"
)

// Classifier confidences
const (
	fallbackConfidence    = 0.3
	wholeFoodConfidence   = 0.85
	culinaryConfidence    = 0.75
	processedConfidence   = 0.6
	ultraBaseConfidence   = 0.7
	ultraConfidenceStep   = 0.1
	ultraConfidenceCap    = 0.9
	maxIngredientLength   = 100
	maxCulinaryTokens     = 3
	maxExplainIndicators  = 3
	explanationEmptyInput = "No ingredients provided; defaulting to processed"
	explanationFailure    = "Could not analyze ingredients; defaulting to processed"
)

var (
	additiveCodeRegex      = regexp.MustCompile(`(?i)e\d{3,4}[a-z]*`)
	ingredientsPrefixRegex = regexp.MustCompile(`^\s*ingredients?\s*:\s*`)
	parenAsideRegex        = regexp.MustCompile(`\([^)]*\)`)
	bracketAsideRegex      = regexp.MustCompile(`\[[^\]]*\]`)
	ingredientSplitRegex   = regexp.MustCompile(`[,;]`)
	numericTokenRegex      = regexp.MustCompile(`^\d+(\.\d+)?%?$`)
)

// phraseMatcher finds dictionary phrases in text in a single pass.
// The underlying automaton keeps per-call state, so matching is serialized.
type phraseMatcher struct {
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
	phrases []string
}

func newPhraseMatcher(phrases []string) *phraseMatcher {
	seen := make(map[string]bool, len(phrases))
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		normalized = append(normalized, p)
	}

	pm := &phraseMatcher{phrases: normalized}
	if len(normalized) > 0 {
		pm.matcher = ahocorasick.NewStringMatcher(normalized)
	}
	return pm
}

// find returns every matched phrase. Overlapping phrases ("natural flavor"
// inside "natural flavoring") are each reported.
func (pm *phraseMatcher) find(text string) []string {
	if pm.matcher == nil || text == "" {
		return nil
	}

	pm.mu.Lock()
	hits := pm.matcher.Match([]byte(text))
	pm.mu.Unlock()

	found := make([]string, 0, len(hits))
	for _, idx := range hits {
		if idx >= 0 && idx < len(pm.phrases) {
			found = append(found, pm.phrases[idx])
		}
	}
	return found
}

func (pm *phraseMatcher) any(text string) bool {
	return len(pm.find(text)) > 0
}

// ingredientAnalysis is the parsed form of one ingredient listing
type ingredientAnalysis struct {
	scanText    string
	ingredients []string
	indicators  []string
	seedOils    bool
}

// novaRule is one step in the classification cascade
type novaRule struct {
	name    string
	applies func(a *ingredientAnalysis) bool
	result  func(a *ingredientAnalysis) domain.ClassificationResult
}

// ClassifierConfig holds configuration for the NOVA classifier
type ClassifierConfig struct {
	// ExtraIndicators are merged into the built-in ultra-processed markers
	ExtraIndicators []string
	Logger          logger.Logger
	Metrics         *metrics.Metrics
}

// NovaClassifier assigns NOVA groups to free-text ingredient listings
// using a fixed-priority rule cascade.
type NovaClassifier struct {
	markers   *phraseMatcher
	seedOils  *phraseMatcher
	wholeFood *phraseMatcher
	culinary  *phraseMatcher
	rules     []novaRule
	logger    logger.Logger
	metrics   *metrics.Metrics
}

// NewNovaClassifier builds the indicator automata and the rule cascade
func NewNovaClassifier(config ClassifierConfig) *NovaClassifier {
	log := config.Logger
	if log == nil {
		log = logger.NewNop()
	}

	markers := make([]string, 0, len(ultraProcessedMarkers)+len(config.ExtraIndicators))
	markers = append(markers, ultraProcessedMarkers...)
	markers = append(markers, config.ExtraIndicators...)

	c := &NovaClassifier{
		markers:   newPhraseMatcher(markers),
		seedOils:  newPhraseMatcher(seedOilNames),
		wholeFood: newPhraseMatcher(wholeFoodWords),
		culinary:  newPhraseMatcher(culinaryIngredientWords),
		logger:    log,
		metrics:   config.Metrics,
	}
	c.rules = c.defaultRules()
	return c
}

// defaultRules returns the cascade in priority order; the last rule always applies
func (c *NovaClassifier) defaultRules() []novaRule {
	return []novaRule{
		{
			name:    "ultra-processed-indicators",
			applies: func(a *ingredientAnalysis) bool { return len(a.indicators) > 0 },
			result:  ultraProcessedResult,
		},
		{
			name: "single-whole-food",
			applies: func(a *ingredientAnalysis) bool {
				return len(a.ingredients) == 1 && c.wholeFood.any(a.ingredients[0])
			},
			result: func(a *ingredientAnalysis) domain.ClassificationResult {
				return newResult(domain.NovaUnprocessed, wholeFoodConfidence, a,
					fmt.Sprintf("Single whole food ingredient: %s", a.ingredients[0]))
			},
		},
		{
			name: "culinary-ingredients",
			applies: func(a *ingredientAnalysis) bool {
				if len(a.ingredients) == 0 || len(a.ingredients) > maxCulinaryTokens {
					return false
				}
				for _, ing := range a.ingredients {
					if !c.culinary.any(ing) && !c.wholeFood.any(ing) {
						return false
					}
				}
				return true
			},
			result: func(a *ingredientAnalysis) domain.ClassificationResult {
				return newResult(domain.NovaCulinary, culinaryConfidence, a,
					"Only culinary ingredients and whole foods")
			},
		},
		{
			name:    "processed-default",
			applies: func(*ingredientAnalysis) bool { return true },
			result: func(a *ingredientAnalysis) domain.ClassificationResult {
				return newResult(domain.NovaProcessed, processedConfidence, a,
					"Processed food: several ingredients, no ultra-processed indicators")
			},
		},
	}
}

// Classify maps an ingredient listing to a NOVA group. It never panics;
// empty input and internal failures yield the NOVA 3 fallback.
func (c *NovaClassifier) Classify(text string) (result domain.ClassificationResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("nova classification failed",
				logger.Any("panic", r),
				logger.Int("input_length", len(text)))
			result = fallbackResult(explanationFailure)
		}
		c.metrics.ObserveClassification(int(result.NovaGroup), result.ContainsSeedOils)
	}()

	if strings.TrimSpace(text) == "" {
		return fallbackResult(explanationEmptyInput)
	}

	analysis := c.analyze(text)
	for _, rule := range c.rules {
		if rule.applies(analysis) {
			result = rule.result(analysis)
			c.logger.Debug("nova rule matched",
				logger.String("rule", rule.name),
				logger.Int("nova_group", int(result.NovaGroup)),
				logger.Int("ingredients", len(analysis.ingredients)))
			return result
		}
	}
	return fallbackResult(explanationFailure)
}

// analyze normalizes and tokenizes the listing and runs the indicator scans.
// Asides are dropped before scanning, so codes inside parentheses are ignored.
func (c *NovaClassifier) analyze(text string) *ingredientAnalysis {
	scanText := normalizeIngredients(ingredientsPrefixRegex.ReplaceAllString(strings.ToLower(text), ""))
	a := &ingredientAnalysis{
		scanText:    scanText,
		ingredients: splitIngredients(scanText),
	}

	a.indicators = c.markers.find(scanText)
	seen := make(map[string]bool, len(a.indicators))
	for _, ind := range a.indicators {
		seen[ind] = true
	}
	for _, code := range additiveCodeRegex.FindAllString(scanText, -1) {
		code = strings.ToUpper(code)
		if !seen[code] {
			seen[code] = true
			a.indicators = append(a.indicators, code)
		}
	}

	a.seedOils = c.seedOils.any(scanText)
	return a
}

// normalizeIngredients drops asides and the trailing period.
// Input is expected lowercased with any "ingredients:" prefix removed.
func normalizeIngredients(text string) string {
	text = parenAsideRegex.ReplaceAllString(text, "")
	text = bracketAsideRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	return strings.TrimSuffix(text, ".")
}

// splitIngredients splits on commas and semicolons, discarding noise tokens
func splitIngredients(text string) []string {
	parts := ingredientSplitRegex.Split(text, -1)
	ingredients := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || len(part) >= maxIngredientLength || numericTokenRegex.MatchString(part) {
			continue
		}
		ingredients = append(ingredients, part)
	}
	return ingredients
}

func ultraProcessedResult(a *ingredientAnalysis) domain.ClassificationResult {
	confidence := math.Min(ultraConfidenceCap, ultraBaseConfidence+ultraConfidenceStep*float64(len(a.indicators)))

	shown := a.indicators
	if len(shown) > maxExplainIndicators {
		shown = shown[:maxExplainIndicators]
	}
	explanation := fmt.Sprintf("Ultra-processed: contains %s", strings.Join(shown, ", "))
	if extra := len(a.indicators) - len(shown); extra > 0 {
		explanation += fmt.Sprintf(" and %d more", extra)
	}

	result := newResult(domain.NovaUltraProcessed, confidence, a, explanation)
	result.Details.CriticalCount = len(a.indicators)
	return result
}

func newResult(group domain.NovaGroup, confidence float64, a *ingredientAnalysis, explanation string) domain.ClassificationResult {
	found := make([]string, len(a.indicators))
	copy(found, a.indicators)
	return domain.ClassificationResult{
		NovaGroup:   group,
		Explanation: explanation,
		Details: domain.ClassificationDetails{
			FoundIndicators: found,
			IngredientCount: len(a.ingredients),
			Confidence:      confidence,
		},
		ContainsSeedOils: a.seedOils,
		Confidence:       confidence,
	}
}

func fallbackResult(explanation string) domain.ClassificationResult {
	return domain.ClassificationResult{
		NovaGroup:   domain.NovaProcessed,
		Explanation: explanation,
		Details: domain.ClassificationDetails{
			FoundIndicators: []string{},
			Confidence:      fallbackConfidence,
		},
		Confidence: fallbackConfidence,
	}
}
