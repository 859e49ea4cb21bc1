package compress

import (
	"math"
	"regexp"
	"strings"

	"gonum.org/v1/gonum/floats"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}']+`)

// tokenize lowercases text and returns its word tokens, dropping stop words
// and single-character fragments.
func tokenize(text string, profile *LanguageProfile) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len([]rune(tok)) < 2 || profile.IsStopWord(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// ngrams expands a token sequence into unigrams plus bigrams.
func ngrams(tokens []string) []string {
	terms := make([]string, 0, 2*len(tokens))
	terms = append(terms, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		terms = append(terms, tokens[i]+" "+tokens[i+1])
	}
	return terms
}

// tfidfModel holds TF-IDF vectors for a document collection.
type tfidfModel struct {
	vocab   map[string]int
	terms   []string
	vectors [][]float64
}

// fitTFIDF builds L2-normalized TF-IDF vectors over the documents, with
// unigram and bigram features. Smoothed IDF keeps terms that appear in every
// document from zeroing out.
func fitTFIDF(docs []string, profile *LanguageProfile) *tfidfModel {
	n := len(docs)
	docTerms := make([][]string, n)
	vocab := make(map[string]int)
	var terms []string

	for i, doc := range docs {
		docTerms[i] = ngrams(tokenize(doc, profile))
		for _, term := range docTerms[i] {
			if _, ok := vocab[term]; !ok {
				vocab[term] = len(terms)
				terms = append(terms, term)
			}
		}
	}

	if len(terms) == 0 {
		return nil
	}

	df := make([]float64, len(terms))
	for _, dts := range docTerms {
		seen := make(map[int]bool)
		for _, term := range dts {
			idx := vocab[term]
			if !seen[idx] {
				df[idx]++
				seen[idx] = true
			}
		}
	}

	idf := make([]float64, len(terms))
	for i := range idf {
		idf[i] = math.Log((1+float64(n))/(1+df[i])) + 1
	}

	vectors := make([][]float64, n)
	for i, dts := range docTerms {
		vec := make([]float64, len(terms))
		for _, term := range dts {
			vec[vocab[term]]++
		}
		for j := range vec {
			vec[j] *= idf[j]
		}
		if norm := floats.Norm(vec, 2); norm > 0 {
			floats.Scale(1/norm, vec)
		}
		vectors[i] = vec
	}

	return &tfidfModel{vocab: vocab, terms: terms, vectors: vectors}
}

// termScores sums each term's TF-IDF weight across all documents.
func (m *tfidfModel) termScores() []float64 {
	scores := make([]float64, len(m.terms))
	for _, vec := range m.vectors {
		floats.Add(scores, vec)
	}
	return scores
}
