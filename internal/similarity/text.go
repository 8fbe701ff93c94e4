package similarity

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// affiliateDisclaimer is the fixed disclaimer line the article generator
// prepends to every published article. It carries no topical signal and is
// stripped before any comparison.
const affiliateDisclaimer = "※本記事にはアフィリエイトリンクを含みます"

var (
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	spacePattern   = regexp.MustCompile(`\s+`)
	headingMarker  = regexp.MustCompile(`#+\s*`)
	headingPattern = regexp.MustCompile(`(?m)^#+\s*(.+)$`)
	tokenPattern   = regexp.MustCompile(`[\p{L}\p{N}_]+`)

	// Strips symbols but keeps the CJK clause separators, which are the only
	// token boundaries unsegmented Japanese text has.
	symbolPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s。、！？]`)
)

// Normalize prepares article content for metric computation: URLs and the
// affiliate disclaimer removed, Markdown heading markers stripped, whitespace
// runs collapsed, symbols removed except CJK clause separators, Latin text
// lowercased so the sequence metric is case-insensitive.
func Normalize(content string) string {
	content = urlPattern.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, affiliateDisclaimer, "")
	content = headingMarker.ReplaceAllString(content, "")
	content = spacePattern.ReplaceAllString(content, " ")
	content = symbolPattern.ReplaceAllString(content, "")
	return strings.ToLower(strings.TrimSpace(content))
}

// SequenceRatio returns the longest-common-subsequence character ratio between
// two strings: 2*matches / (len1+len2). Two empty strings are identical (1.0);
// one empty string shares nothing (0.0).
func SequenceRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}
	// Keep the shorter string in the DP row.
	if len(rb) > len(ra) {
		ra, rb = rb, ra
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			switch {
			case ra[i-1] == rb[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	matches := prev[len(rb)]
	return 2 * float64(matches) / float64(len(ra)+len(rb))
}

// tokenize splits normalized content into comparison tokens. Word-character
// runs are lowercased; runs of CJK characters are decomposed into overlapping
// character bigrams so that token-set metrics still discriminate on Japanese
// text without word boundaries. Stop words and single-character tokens are
// dropped.
func tokenize(content string, stopWords map[string]struct{}) []string {
	var tokens []string
	for _, run := range tokenPattern.FindAllString(strings.ToLower(content), -1) {
		for _, segment := range splitByScript(run) {
			if segment.cjk {
				tokens = appendBigrams(tokens, segment.text, stopWords)
			} else {
				tokens = appendToken(tokens, segment.text, stopWords)
			}
		}
	}
	return tokens
}

type scriptSegment struct {
	text string
	cjk  bool
}

// splitByScript breaks a word-character run into maximal same-script segments.
func splitByScript(run string) []scriptSegment {
	var segments []scriptSegment
	var buf []rune
	var bufCJK bool
	for _, r := range run {
		c := isCJK(r)
		if len(buf) > 0 && c != bufCJK {
			segments = append(segments, scriptSegment{text: string(buf), cjk: bufCJK})
			buf = buf[:0]
		}
		buf = append(buf, r)
		bufCJK = c
	}
	if len(buf) > 0 {
		segments = append(segments, scriptSegment{text: string(buf), cjk: bufCJK})
	}
	return segments
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) || r == 'ー'
}

func appendToken(tokens []string, tok string, stopWords map[string]struct{}) []string {
	if utf8.RuneCountInString(tok) < 2 {
		return tokens
	}
	if _, stop := stopWords[tok]; stop {
		return tokens
	}
	return append(tokens, tok)
}

func appendBigrams(tokens []string, segment string, stopWords map[string]struct{}) []string {
	runes := []rune(segment)
	if len(runes) < 2 {
		return tokens
	}
	if len(runes) == 2 {
		return appendToken(tokens, segment, stopWords)
	}
	for i := 0; i+2 <= len(runes); i++ {
		tokens = appendToken(tokens, string(runes[i:i+2]), stopWords)
	}
	return tokens
}

// articleStructure captures the Markdown skeleton of an article.
type articleStructure struct {
	headings       map[string]struct{}
	paragraphCount int
}

func extractStructure(content string) articleStructure {
	headings := make(map[string]struct{})
	for _, m := range headingPattern.FindAllStringSubmatch(content, -1) {
		headings[strings.ToLower(strings.TrimSpace(m[1]))] = struct{}{}
	}
	paragraphs := 0
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) != "" {
			paragraphs++
		}
	}
	return articleStructure{headings: headings, paragraphCount: paragraphs}
}

// defaultStopWords returns the Japanese stop-word set: particles, copulas,
// demonstratives, and generic article-referring boilerplate.
func defaultStopWords() map[string]struct{} {
	words := []string{
		"の", "に", "は", "を", "が", "で", "と", "から", "まで", "より", "も",
		"こと", "もの", "ため", "など", "について", "により", "による", "として",
		"です", "である", "ます", "だ", "ある", "いる", "する", "なる",
		"この", "その", "あの", "どの", "これ", "それ", "あれ", "どれ",
		"ここ", "そこ", "あそこ", "どこ", "今", "昨日", "明日", "今日",
		"記事", "本記事", "今回", "以下", "上記", "下記", "参考", "詳細",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// defaultKeywordWeights returns the high-signal affiliate-article keyword
// dictionary with importance weights.
func defaultKeywordWeights() map[string]float64 {
	return map[string]float64{
		"おすすめ":   2.0,
		"レビュー":   2.0,
		"効果":     1.8,
		"使い方":    1.8,
		"比較":     1.8,
		"メリット":   1.5,
		"デメリット":  1.5,
		"方法":     1.5,
		"評価":     1.5,
		"価格":     1.3,
		"機能":     1.3,
		"特徴":     1.3,
	}
}
