// Package similarity scores how close a candidate article is to previously
// published content. Five complementary metrics are combined into a weighted
// composite so that surface-level rewrites (synonym substitution, paraphrase,
// structural reshuffle) are still caught even when any single metric is fooled.
package similarity

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"notedup/internal/logger"
)

// Metric names as they appear in score maps, verdict reasons, and config keys.
const (
	MetricSequence  = "sequence_similarity"
	MetricCosine    = "cosine_similarity"
	MetricJaccard   = "jaccard_similarity"
	MetricKeyword   = "keyword_similarity"
	MetricStructure = "structure_similarity"
)

// highScoreFloor is the per-metric score above which a metric is called out as
// evidence in the verdict reason.
const highScoreFloor = 0.6

// Weights assigns each metric its share of the composite score. The shares
// must sum to 1.0.
type Weights struct {
	Sequence  float64 `mapstructure:"sequence_similarity"`
	Cosine    float64 `mapstructure:"cosine_similarity"`
	Jaccard   float64 `mapstructure:"jaccard_similarity"`
	Keyword   float64 `mapstructure:"keyword_similarity"`
	Structure float64 `mapstructure:"structure_similarity"`
}

// DefaultWeights returns the tuned production weighting. The exact values are
// empirical; treat them as configuration, not invariants.
func DefaultWeights() Weights {
	return Weights{
		Sequence:  0.25,
		Cosine:    0.25,
		Jaccard:   0.20,
		Keyword:   0.20,
		Structure: 0.10,
	}
}

// Validate checks that the weights form a convex combination.
func (w Weights) Validate() error {
	for name, v := range w.asMap() {
		if v < 0 {
			return fmt.Errorf("weight %s is negative: %f", name, v)
		}
	}
	sum := w.Sequence + w.Cosine + w.Jaccard + w.Keyword + w.Structure
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("metric weights must sum to 1.0, got %f", sum)
	}
	return nil
}

func (w Weights) asMap() map[string]float64 {
	return map[string]float64{
		MetricSequence:  w.Sequence,
		MetricCosine:    w.Cosine,
		MetricJaccard:   w.Jaccard,
		MetricKeyword:   w.Keyword,
		MetricStructure: w.Structure,
	}
}

// Scores holds the per-metric results of one comparison plus the weighted
// composite. Ephemeral: computed fresh for every comparison, never cached.
type Scores struct {
	Sequence  float64 `json:"sequence_similarity"`
	Cosine    float64 `json:"cosine_similarity"`
	Jaccard   float64 `json:"jaccard_similarity"`
	Keyword   float64 `json:"keyword_similarity"`
	Structure float64 `json:"structure_similarity"`
	Overall   float64 `json:"overall_similarity"`
}

// Metrics returns the individual metric scores keyed by metric name.
func (s Scores) Metrics() map[string]float64 {
	return map[string]float64{
		MetricSequence:  s.Sequence,
		MetricCosine:    s.Cosine,
		MetricJaccard:   s.Jaccard,
		MetricKeyword:   s.Keyword,
		MetricStructure: s.Structure,
	}
}

// Analyzer computes composite similarity scores. Its methods are pure with
// respect to their arguments and safe for concurrent use.
type Analyzer struct {
	weights        Weights
	stopWords      map[string]struct{}
	keywordWeights map[string]float64
}

// NewAnalyzer returns an analyzer with the default weighting and dictionaries.
func NewAnalyzer() *Analyzer {
	a, _ := NewAnalyzerWithWeights(DefaultWeights())
	return a
}

// NewAnalyzerWithWeights returns an analyzer using the supplied metric
// weights, rejecting weight tables that do not sum to 1.0.
func NewAnalyzerWithWeights(w Weights) (*Analyzer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{
		weights:        w,
		stopWords:      defaultStopWords(),
		keywordWeights: defaultKeywordWeights(),
	}, nil
}

// AnalyzeSimilarity scores two article contents against each other. Every
// metric lies in [0,1]; a metric that cannot produce a finite score
// contributes 0 and is logged, so one bad signal never poisons the composite.
func (a *Analyzer) AnalyzeSimilarity(content1, content2 string) Scores {
	norm1 := Normalize(content1)
	norm2 := Normalize(content2)

	s := Scores{
		Sequence:  a.metricOrZero(MetricSequence, SequenceRatio(norm1, norm2)),
		Cosine:    a.metricOrZero(MetricCosine, a.cosineSimilarity(norm1, norm2)),
		Jaccard:   a.metricOrZero(MetricJaccard, a.jaccardSimilarity(norm1, norm2)),
		Keyword:   a.metricOrZero(MetricKeyword, a.keywordSimilarity(content1, content2)),
		Structure: a.metricOrZero(MetricStructure, structureSimilarity(content1, content2)),
	}
	s.Overall = s.Sequence*a.weights.Sequence +
		s.Cosine*a.weights.Cosine +
		s.Jaccard*a.weights.Jaccard +
		s.Keyword*a.weights.Keyword +
		s.Structure*a.weights.Structure
	return s
}

// IsSimilar applies a threshold to a score set and returns the verdict with an
// operator-facing reason listing the overall score, the threshold, and every
// metric that scored high on its own.
func (a *Analyzer) IsSimilar(scores Scores, threshold float64) (bool, string) {
	if scores.Overall < threshold {
		return false, fmt.Sprintf("overall similarity %.2f below threshold %.2f", scores.Overall, threshold)
	}

	metrics := scores.Metrics()
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var high []string
	for _, name := range names {
		if metrics[name] >= highScoreFloor {
			high = append(high, fmt.Sprintf("%s: %.2f", name, metrics[name]))
		}
	}

	reason := fmt.Sprintf("overall similarity %.2f (threshold %.2f)", scores.Overall, threshold)
	if len(high) > 0 {
		reason += ", high metrics: " + strings.Join(high, ", ")
	}
	return true, reason
}

// metricOrZero clamps a metric score to [0,1], degrading non-finite values to
// 0 so the composite calculation always completes.
func (a *Analyzer) metricOrZero(name string, score float64) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		logger.Get().Error().Str("metric", name).Msg("metric produced a non-finite score, contributing 0")
		return 0.0
	}
	return math.Max(0.0, math.Min(1.0, score))
}

// cosineSimilarity compares term-frequency vectors over the union vocabulary
// of the two token streams.
func (a *Analyzer) cosineSimilarity(norm1, norm2 string) float64 {
	counts1 := termFrequencies(tokenize(norm1, a.stopWords))
	counts2 := termFrequencies(tokenize(norm2, a.stopWords))

	seen := make(map[string]struct{}, len(counts1)+len(counts2))
	vocabulary := make([]string, 0, len(counts1)+len(counts2))
	for term := range counts1 {
		seen[term] = struct{}{}
		vocabulary = append(vocabulary, term)
	}
	for term := range counts2 {
		if _, ok := seen[term]; !ok {
			vocabulary = append(vocabulary, term)
		}
	}
	if len(vocabulary) == 0 {
		return 0.0
	}
	// Fixed summation order keeps the score symmetric and reproducible.
	sort.Strings(vocabulary)

	var dot, mag1, mag2 float64
	for _, term := range vocabulary {
		c1 := float64(counts1[term])
		c2 := float64(counts2[term])
		dot += c1 * c2
		mag1 += c1 * c1
		mag2 += c2 * c2
	}
	if mag1 == 0 || mag2 == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(mag1) * math.Sqrt(mag2))
}

// jaccardSimilarity compares the two token sets. Two empty sets are identical;
// an empty set against a non-empty one shares nothing.
func (a *Analyzer) jaccardSimilarity(norm1, norm2 string) float64 {
	set1 := tokenSet(tokenize(norm1, a.stopWords))
	set2 := tokenSet(tokenize(norm2, a.stopWords))

	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}

	intersection := 0
	for tok := range set1 {
		if _, ok := set2[tok]; ok {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// keywordSimilarity compares weighted occurrence counts of the high-signal
// keyword dictionary over the raw (non-normalized) contents.
func (a *Analyzer) keywordSimilarity(content1, content2 string) float64 {
	weighted1 := a.weightedKeywords(content1)
	weighted2 := a.weightedKeywords(content2)

	// Fixed summation order keeps the score symmetric and reproducible.
	dictionary := make([]string, 0, len(a.keywordWeights))
	for keyword := range a.keywordWeights {
		dictionary = append(dictionary, keyword)
	}
	sort.Strings(dictionary)

	var total1, total2, common float64
	for _, keyword := range dictionary {
		w1, ok1 := weighted1[keyword]
		w2, ok2 := weighted2[keyword]
		total1 += w1
		total2 += w2
		if ok1 && ok2 {
			common += math.Min(w1, w2)
		}
	}
	maxTotal := math.Max(total1, total2)
	if maxTotal == 0 {
		return 0.0
	}
	return common / maxTotal
}

// weightedKeywords returns occurrence-count-times-weight for every dictionary
// keyword present in the content.
func (a *Analyzer) weightedKeywords(content string) map[string]float64 {
	lower := strings.ToLower(content)
	weighted := make(map[string]float64)
	for keyword, weight := range a.keywordWeights {
		if count := strings.Count(lower, keyword); count > 0 {
			weighted[keyword] = float64(count) * weight
		}
	}
	return weighted
}

// structureSimilarity blends heading-set overlap (0.7) with paragraph-count
// ratio (0.3), both extracted from the raw Markdown.
func structureSimilarity(content1, content2 string) float64 {
	s1 := extractStructure(content1)
	s2 := extractStructure(content2)

	var headingSimilarity float64
	switch {
	case len(s1.headings) == 0 && len(s2.headings) == 0:
		headingSimilarity = 1.0
	case len(s1.headings) == 0 || len(s2.headings) == 0:
		headingSimilarity = 0.0
	default:
		intersection := 0
		for h := range s1.headings {
			if _, ok := s2.headings[h]; ok {
				intersection++
			}
		}
		union := len(s1.headings) + len(s2.headings) - intersection
		headingSimilarity = float64(intersection) / float64(union)
	}

	var paragraphSimilarity float64
	if s1.paragraphCount == 0 && s2.paragraphCount == 0 {
		paragraphSimilarity = 1.0
	} else {
		lo := math.Min(float64(s1.paragraphCount), float64(s2.paragraphCount))
		hi := math.Max(float64(s1.paragraphCount), float64(s2.paragraphCount))
		paragraphSimilarity = lo / hi
	}

	return headingSimilarity*0.7 + paragraphSimilarity*0.3
}

func termFrequencies(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	return counts
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}
