package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"news-narratives/internal/compress"
	"news-narratives/internal/models"
)

// Per-1K-token cost estimates for each task's model tier.
const (
	namingRatePer1K = 0.00015
	briefRatePer1K  = 0.001
)

// Name validation limits; anything longer falls back to the synthetic name.
const (
	maxNameWords = 6
	maxNameChars = 50
)

// Usage is the run-scoped call and cost accounting for one client.
type Usage struct {
	Calls   int
	CostUSD float64
}

// Client names clusters and writes weekly briefs through the text-generation
// service, routing each task to the appropriate model tier, caching responses
// by compressed-content hash, and accounting for every attempted call.
//
// A single client serves one single-threaded run; counters are not
// synchronized.
type Client struct {
	gen   Generator
	cache Cache
	usage Usage

	// FallbackPrefix seeds the deterministic synthetic name used when
	// generation fails or returns an invalid name.
	FallbackPrefix string

	// CallDelay is slept before every paid call; Cooldown is slept after a
	// response that looks like a rate or quota error.
	CallDelay time.Duration
	Cooldown  time.Duration
}

// NewClient builds a naming/briefing client. cache may be nil, which
// disables caching but not generation.
func NewClient(gen Generator, cache Cache) *Client {
	return &Client{
		gen:            gen,
		cache:          cache,
		FallbackPrefix: "News",
		CallDelay:      500 * time.Millisecond,
		Cooldown:       30 * time.Second,
	}
}

// Usage returns the calls made and estimated cost since the last reset.
func (c *Client) Usage() Usage {
	return c.usage
}

// ResetUsage clears the per-run counters. The batch orchestrator calls this
// between windows.
func (c *Client) ResetUsage() {
	c.usage = Usage{}
}

// FallbackName is the deterministic synthetic name for a cluster.
func (c *Client) FallbackName(clusterDate time.Time, clusterID int) string {
	return fmt.Sprintf("%s Cluster %s-%d", c.FallbackPrefix, clusterDate.Format("2006-01-02"), clusterID)
}

// NameCluster produces a short narrative name for compressed cluster content.
// Transport failures and invalid names degrade to the deterministic fallback;
// they never abort the run.
func (c *Client) NameCluster(ctx context.Context, compressed compress.Result, clusterDate time.Time, clusterID int) string {
	content := compressed.PromptContent()

	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, content, TaskNaming); ok {
			return cached
		}
	}

	prompt := fmt.Sprintf(`Analyze the following news content and create a concise narrative name (2-4 words):

%s

Generate a journalistic name that captures the main theme. Examples: "Climate Policy Debate", "Tech Regulation Update", "Economic Recovery Plans".

Name (2-4 words only):`, content)

	response, err := c.generate(ctx, TierCheap, TaskNaming, prompt)
	if err != nil {
		log.Printf("⚠️  Failed to generate name for cluster %d: %v", clusterID, err)
		return c.FallbackName(clusterDate, clusterID)
	}

	name := cleanName(response)
	if name == "" || len(strings.Fields(name)) > maxNameWords || len(name) > maxNameChars {
		return c.FallbackName(clusterDate, clusterID)
	}

	if c.cache != nil {
		meta := CacheMeta{CostUSD: estimateCost(TaskNaming, prompt, response), CachedAt: time.Now()}
		if err := c.cache.Put(ctx, content, name, TaskNaming, meta); err != nil {
			log.Printf("llm cache write error: %v", err)
		}
	}

	return name
}

// WeeklyBrief summarizes a week's narratives with the capable tier. On any
// failure it returns a deterministic count-based sentence.
func (c *Client) WeeklyBrief(ctx context.Context, narratives []models.Narrative) string {
	if len(narratives) == 0 {
		return "No significant narratives detected this week."
	}

	fallback := fmt.Sprintf("Weekly analysis completed with %d narratives detected.", len(narratives))

	var lines []string
	for _, n := range narratives {
		lines = append(lines, fmt.Sprintf("- %s (%d articles, %d sources, coherence: %.2f)",
			n.Name, n.SupportCount, n.UniqueSourcesCount, n.CoherenceScore))
	}
	summary := strings.Join(lines, "\n")

	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, summary, TaskBrief); ok {
			return cached
		}
	}

	prompt := fmt.Sprintf(`Create a concise weekly news narrative summary:

Detected Narratives (%d):
%s

Write a 2-3 sentence summary highlighting:
1. The main themes/topics that dominated the week
2. Any notable narrative shifts or emerging stories
3. Overall media focus trends

Weekly Summary:`, len(narratives), summary)

	response, err := c.generate(ctx, TierCapable, TaskBrief, prompt)
	if err != nil {
		log.Printf("⚠️  Failed to generate weekly brief: %v", err)
		return fallback
	}

	brief := strings.TrimSpace(response)
	if brief == "" {
		return fallback
	}

	if c.cache != nil {
		meta := CacheMeta{CostUSD: estimateCost(TaskBrief, prompt, response), CachedAt: time.Now()}
		if err := c.cache.Put(ctx, summary, brief, TaskBrief, meta); err != nil {
			log.Printf("llm cache write error: %v", err)
		}
	}

	return brief
}

// generate makes one paid call, accounting for it whether or not it
// succeeds. There are no retries: a rate or quota error only inserts a
// cooldown before the caller continues with its fallback.
func (c *Client) generate(ctx context.Context, tier Tier, task, prompt string) (string, error) {
	if c.CallDelay > 0 {
		time.Sleep(c.CallDelay)
	}

	response, err := c.gen.Generate(ctx, tier, prompt)
	c.usage.Calls++
	c.usage.CostUSD += estimateCost(task, prompt, response)

	if err != nil {
		if isRateLimited(err) && c.Cooldown > 0 {
			log.Printf("⏳ Rate limit signal from text-generation service, cooling down %v", c.Cooldown)
			time.Sleep(c.Cooldown)
		}
		return "", err
	}

	return response, nil
}

// estimateCost approximates tokens as characters/4 and applies the task rate.
func estimateCost(task, prompt, response string) float64 {
	tokens := float64(len(prompt)+len(response)) / 4.0
	rate := namingRatePer1K
	if task == TaskBrief {
		rate = briefRatePer1K
	}
	return tokens / 1000.0 * rate
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota")
}

// cleanName strips quoting and whitespace from a generated name.
func cleanName(response string) string {
	name := strings.TrimSpace(response)
	name = strings.ReplaceAll(name, `"`, "")
	name = strings.ReplaceAll(name, "'", "")
	return strings.TrimSpace(name)
}
