package compress

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testDocs() []Document {
	published := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	return []Document{
		{
			Title:         "Parliament approves energy reform bill",
			Content:       "The parliament approved a sweeping energy reform bill on Tuesday. The energy reform changes tariff regulation for households. Critics argue the energy reform favors large producers over consumers.",
			Source:        "pravda.ua",
			URL:           "https://pravda.ua/energy-reform",
			PublishedDate: published,
		},
		{
			Title:         "Energy reform sparks debate among regulators",
			Content:       "Regulators spent the week debating the new energy reform framework. Several regional utilities warned about transition costs during the hearings.",
			Source:        "nv.ua",
			URL:           "https://nv.ua/energy-debate",
			PublishedDate: published.AddDate(0, 0, 1),
		},
		{
			Title:         "Utilities prepare for new tariff rules",
			Content:       "Utility companies started preparing billing systems for the new tariff rules. The transition period runs until the end of the year according to officials.",
			Source:        "suspilne.ua",
			URL:           "https://suspilne.ua/tariff-rules",
			PublishedDate: published.AddDate(0, 0, 2),
		},
	}
}

func TestSplitSentences(t *testing.T) {
	text := "Short one. This sentence is comfortably long enough to survive the filter! Tiny? Another sentence that also clears the twenty character minimum."

	sentences := SplitSentences(text)

	assert.Len(t, sentences, 2)
	assert.Contains(t, sentences[0], "comfortably long enough")
	assert.Contains(t, sentences[1], "twenty character minimum")
}

func TestSplitSentencesCountsRunesNotBytes(t *testing.T) {
	// 40 Cyrillic runes but nearly twice as many bytes; the filter must
	// count runes
	sentences := SplitSentences("Уряд ухвалив бюджетну резолюцію сьогодні.")
	assert.Len(t, sentences, 1)
}

func TestCompressBoundsOutput(t *testing.T) {
	c := New("en")
	docs := testDocs()

	result := c.Compress(docs, nil, Options{MaxMedoids: 2, MaxSentences: 3, MaxTerms: 5})

	assert.Len(t, result.Representatives, 2)
	assert.LessOrEqual(t, len(result.KeySentences), 3)
	assert.NotEmpty(t, result.KeySentences)
	assert.LessOrEqual(t, len(result.KeyTerms), 5)
	assert.Equal(t, 3, result.TotalItems)
	assert.Greater(t, result.CompressionRatio, 0.0)
	assert.Less(t, result.CompressionRatio, 1.0)
}

func TestCompressUsesMedoidsWhenEmbeddingsProvided(t *testing.T) {
	c := New("en")
	docs := testDocs()
	// Document 1 sits between the other two
	embeddings := [][]float64{
		{1, 0.1},
		{1, 1},
		{0.1, 1},
	}

	result := c.Compress(docs, embeddings, Options{MaxMedoids: 1, MaxSentences: 6, MaxTerms: 12})

	assert.Len(t, result.Representatives, 1)
	assert.Equal(t, "nv.ua", result.Representatives[0].Source)
}

func TestCompressEmptyInput(t *testing.T) {
	c := New("en")
	result := c.Compress(nil, nil, DefaultOptions())
	assert.Empty(t, result.KeySentences)
	assert.Empty(t, result.ContentHash)
	assert.Equal(t, 0, result.TotalItems)
}

func TestKeyTermsExcludeStopWords(t *testing.T) {
	c := New("en")
	result := c.Compress(testDocs(), nil, DefaultOptions())

	for _, term := range result.KeyTerms {
		for _, word := range strings.Fields(term) {
			assert.False(t, c.profile.IsStopWord(word), "stop word %q leaked into key terms", word)
		}
	}
	// The dominant topic should surface as a key term
	assert.Contains(t, strings.Join(result.KeyTerms, " "), "energy")
}

func TestContentHashStable(t *testing.T) {
	c := New("en")
	docs := testDocs()

	first := c.Compress(docs, nil, DefaultOptions())
	second := c.Compress(docs, nil, DefaultOptions())
	assert.Equal(t, first.ContentHash, second.ContentHash)

	docs[0].Content = "A completely different story about agriculture exports and grain corridors this season."
	third := c.Compress(docs, nil, DefaultOptions())
	assert.NotEqual(t, first.ContentHash, third.ContentHash)
}

func TestRankSentencesChainNeverEmpty(t *testing.T) {
	c := New("en")

	// Sentences with no shared vocabulary give the graph ranker no edges;
	// the chain must still return a ranking.
	sentences := []string{
		"Quarterly agriculture exports exceeded expectations again",
		"Municipal transport fares increase starting next month",
		"Hospital renovation funding finally received approval yesterday",
		"Championship qualifiers begin under difficult weather conditions",
	}

	ranked := c.rankSentences(sentences, 2)
	assert.Len(t, ranked, 2)
}

func TestExtractEntitiesEnglish(t *testing.T) {
	c := New("en")
	text := "President Joe Biden met officials in Washington on March 5, 2024 and pledged $3 million for the recovery program."

	entities := c.ExtractEntities(text)

	assert.Contains(t, entities[EntityPerson][0], "Joe Biden")
	assert.Contains(t, entities[EntityGPE], "Washington")
	assert.Contains(t, entities[EntityMoney][0], "$3 million")
	assert.Contains(t, entities[EntityDate][0], "March 5, 2024")
}

func TestExtractEntitiesUkrainian(t *testing.T) {
	c := New("uk")
	text := "Володимир Зеленський провів переговори у Львові 15 травня 2024 та анонсував ₴5 млрд на відбудову."

	entities := c.ExtractEntities(text)

	assert.Contains(t, entities[EntityPerson][0], "Володимир Зеленський")
	assert.Contains(t, entities[EntityGPE], "Львові")
	assert.NotEmpty(t, entities[EntityMoney])
	assert.Contains(t, entities[EntityDate][0], "15 травня 2024")
}

func TestExtractEntitiesDeduplicates(t *testing.T) {
	c := New("en")
	text := "Maria Petrova spoke first. Maria Petrova answered questions later."

	entities := c.ExtractEntities(text)
	assert.Equal(t, []string{"Maria Petrova"}, entities[EntityPerson])
}

func TestExtractEntitiesEmpty(t *testing.T) {
	c := New("en")
	assert.Nil(t, c.ExtractEntities("nothing notable here"))
}

func TestProfileFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, "en", Profile("xx").Code)
	assert.Equal(t, "uk", Profile("uk").Code)
}

func TestPromptContent(t *testing.T) {
	result := Result{
		KeySentences: []string{"Parliament approved the energy bill", "Regulators debated transition costs"},
		KeyTerms:     []string{"energy", "reform"},
		Entities:     map[string][]string{EntityGPE: {"Kyiv"}},
		Representatives: []Representative{
			{Source: "pravda.ua"},
			{Source: "nv.ua"},
			{Source: "pravda.ua"},
		},
	}

	content := result.PromptContent()

	assert.Contains(t, content, "Key points:")
	assert.Contains(t, content, "1. Parliament approved the energy bill")
	assert.Contains(t, content, "2. Regulators debated transition costs")
	assert.Contains(t, content, "Important terms: energy, reform")
	assert.Contains(t, content, "Key entities: GPE: Kyiv")
	assert.Contains(t, content, "Sources (2): pravda.ua, nv.ua")
}
