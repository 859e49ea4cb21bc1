// Package compress reduces a cluster of news items to a bounded, prompt-sized
// representation: the most central member documents, their key sentences and
// terms, and coarse pattern-matched entities. The output is small enough to
// feed a cheap text-generation call and stable enough to act as a cache key.
package compress

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"news-narratives/internal/analysis"
)

const minSentenceRunes = 20

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Document is the text content of one cluster member.
type Document struct {
	Title         string
	Content       string
	Source        string
	URL           string
	PublishedDate time.Time
}

// Representative identifies a medoid document kept in the compressed output.
type Representative struct {
	Title         string    `json:"title"`
	Source        string    `json:"source"`
	URL           string    `json:"url"`
	PublishedDate time.Time `json:"published_date"`
}

// Options bounds the size of the compressed output.
type Options struct {
	MaxMedoids   int
	MaxSentences int
	MaxTerms     int
}

// DefaultOptions matches the bounds the weekly pipeline uses.
func DefaultOptions() Options {
	return Options{MaxMedoids: 3, MaxSentences: 6, MaxTerms: 12}
}

// Result is the compressed form of a cluster.
type Result struct {
	Representatives  []Representative    `json:"medoid_articles"`
	KeySentences     []string            `json:"key_sentences"`
	KeyTerms         []string            `json:"key_terms"`
	Entities         map[string][]string `json:"entities,omitempty"`
	ContentHash      string              `json:"content_hash"`
	TotalItems       int                 `json:"total_items"`
	CompressionRatio float64             `json:"compression_ratio"`
}

// Compressor selects representative content from clusters using one
// language profile and an ordered list of sentence-ranking strategies.
type Compressor struct {
	profile *LanguageProfile
	rankers []SentenceRanker
}

// New builds a compressor for the given language code. The ranking chain is
// graph centrality, then TF-IDF weight, then positional truncation; the last
// never fails, so compression always produces output.
func New(languageCode string) *Compressor {
	return &Compressor{
		profile: Profile(languageCode),
		rankers: []SentenceRanker{graphRanker{}, weightRanker{}, positionalRanker{}},
	}
}

// Compress reduces the cluster's documents to a bounded representation.
// When embeddings are provided (one per document) medoid selection picks the
// most central documents; otherwise the first MaxMedoids documents stand in.
func (c *Compressor) Compress(docs []Document, embeddings [][]float64, opts Options) Result {
	if len(docs) == 0 {
		return Result{}
	}

	var selected []Document
	if len(embeddings) == len(docs) {
		for _, idx := range analysis.Medoids(embeddings, opts.MaxMedoids) {
			selected = append(selected, docs[idx])
		}
	} else {
		max := opts.MaxMedoids
		if max > len(docs) {
			max = len(docs)
		}
		selected = docs[:max]
	}

	texts := make([]string, len(selected))
	reps := make([]Representative, len(selected))
	for i, doc := range selected {
		texts[i] = fmt.Sprintf("%s. %s", doc.Title, doc.Content)
		reps[i] = Representative{
			Title:         doc.Title,
			Source:        doc.Source,
			URL:           doc.URL,
			PublishedDate: doc.PublishedDate,
		}
	}

	var sentences []string
	for _, text := range texts {
		sentences = append(sentences, SplitSentences(text)...)
	}

	keySentences := c.rankSentences(sentences, opts.MaxSentences)
	keyTerms := c.keyTerms(texts, opts.MaxTerms)

	combined := strings.Join(texts, " ")
	entities := c.ExtractEntities(combined)

	ratio := 0.0
	if len(combined) > 0 {
		ratio = float64(len(strings.Join(keySentences, " "))) / float64(len(combined))
	}

	return Result{
		Representatives:  reps,
		KeySentences:     keySentences,
		KeyTerms:         keyTerms,
		Entities:         entities,
		ContentHash:      contentHash(keySentences, keyTerms),
		TotalItems:       len(docs),
		CompressionRatio: ratio,
	}
}

// SplitSentences breaks text on sentence-ending punctuation, dropping
// fragments under 20 characters.
func SplitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		s := strings.TrimSpace(part)
		if utf8.RuneCountInString(s) > minSentenceRunes {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// rankSentences walks the strategy chain and uses the first ranker that
// succeeds. The positional ranker at the end of the chain cannot fail.
func (c *Compressor) rankSentences(sentences []string, max int) []string {
	if len(sentences) <= max {
		return sentences
	}

	for _, ranker := range c.rankers {
		ranked, err := ranker.Rank(sentences, c.profile, max)
		if err != nil {
			log.Printf("sentence ranker %s failed: %v", ranker.Name(), err)
			continue
		}
		return ranked
	}

	// Unreachable while positionalRanker terminates the chain
	return sentences[:max]
}

// keyTerms extracts the top TF-IDF terms (unigrams and bigrams) across the
// selected texts, falling back to raw frequency counting.
func (c *Compressor) keyTerms(texts []string, max int) []string {
	model := fitTFIDF(texts, c.profile)
	if model == nil {
		return frequentTerms(texts, c.profile, max)
	}

	scores := model.termScores()
	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	terms := make([]string, 0, max)
	for _, idx := range indices {
		if len(terms) == max {
			break
		}
		if scores[idx] > 0 {
			terms = append(terms, model.terms[idx])
		}
	}
	return terms
}

// frequentTerms is the frequency-count fallback for key-term extraction.
func frequentTerms(texts []string, profile *LanguageProfile, max int) []string {
	counts := make(map[string]int)
	var order []string
	for _, text := range texts {
		for _, tok := range tokenize(text, profile) {
			if counts[tok] == 0 {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}

	sort.SliceStable(order, func(a, b int) bool {
		return counts[order[a]] > counts[order[b]]
	})
	if len(order) > max {
		order = order[:max]
	}
	return order
}

// ExtractEntities runs the profile's entity patterns over the text,
// deduplicating per type and omitting types with no matches.
func (c *Compressor) ExtractEntities(text string) map[string][]string {
	entities := make(map[string][]string)

	for _, ep := range c.profile.EntityPatterns {
		seen := make(map[string]bool)
		var values []string

		for _, match := range ep.Pattern.FindAllStringSubmatch(text, -1) {
			value := strings.TrimSpace(match[ep.Group])
			if value == "" || seen[value] {
				continue
			}
			seen[value] = true
			values = append(values, value)
		}

		if len(values) > 0 {
			entities[ep.Type] = values
		}
	}

	if len(entities) == 0 {
		return nil
	}
	return entities
}

// PromptContent renders the compressed result as the body of a naming prompt.
func (r Result) PromptContent() string {
	var parts []string

	if len(r.KeySentences) > 0 {
		parts = append(parts, "Key points:")
		for i, sentence := range r.KeySentences {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, sentence))
		}
	}

	if len(r.KeyTerms) > 0 {
		parts = append(parts, fmt.Sprintf("\nImportant terms: %s", strings.Join(r.KeyTerms, ", ")))
	}

	if len(r.Entities) > 0 {
		types := make([]string, 0, len(r.Entities))
		for t := range r.Entities {
			types = append(types, t)
		}
		sort.Strings(types)

		var entityParts []string
		for _, t := range types {
			values := r.Entities[t]
			if len(values) > 3 {
				values = values[:3]
			}
			entityParts = append(entityParts, fmt.Sprintf("%s: %s", t, strings.Join(values, ", ")))
		}
		parts = append(parts, fmt.Sprintf("\nKey entities: %s", strings.Join(entityParts, "; ")))
	}

	if len(r.Representatives) > 0 {
		seen := make(map[string]bool)
		var sources []string
		for _, rep := range r.Representatives {
			if !seen[rep.Source] {
				seen[rep.Source] = true
				sources = append(sources, rep.Source)
			}
		}
		parts = append(parts, fmt.Sprintf("\nSources (%d): %s", len(sources), strings.Join(sources, ", ")))
	}

	return strings.Join(parts, "\n")
}

// contentHash produces the stable cache key for the compressed content.
func contentHash(sentences, terms []string) string {
	h := md5.New()
	for _, s := range sentences {
		h.Write([]byte(s))
	}
	for _, t := range terms {
		h.Write([]byte(t))
	}
	return hex.EncodeToString(h.Sum(nil))
}
