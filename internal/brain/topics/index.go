// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package topics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/shortforge/internal/brain/feature"
	"github.com/tomtom215/shortforge/internal/models"
)

// Config tunes fatigue detection and winner selection.
type Config struct {
	// FatigueUses is the use count F within the lookback window that,
	// combined with underperformance, marks a topic fatigued.
	FatigueUses int

	// FatigueWindowDays is the lookback window for counting uses.
	FatigueWindowDays int

	// FatigueOutcomeFactor: the last-three-uses mean outcome must be below
	// channelMedian * factor for fatigue to trigger.
	FatigueOutcomeFactor float64

	// ClusterSimilarity is the cosine threshold at which fatigue spreads
	// to similar topics.
	ClusterSimilarity float64

	// WinnerPercentile selects winner topics by rolling outcome.
	WinnerPercentile float64
}

// DefaultConfig returns the shipped thresholds.
func DefaultConfig() Config {
	return Config{
		FatigueUses:          3,
		FatigueWindowDays:    30,
		FatigueOutcomeFactor: 0.8,
		ClusterSimilarity:    0.7,
		WinnerPercentile:     0.75,
	}
}

// Index maintains a TF-IDF vector space over one channel's historical
// topics. The vector space is rebuilt lazily: mutations mark it stale and
// the next query rebuilds. Safe for concurrent use.
type Index struct {
	mu  sync.RWMutex
	cfg Config

	docs map[string]*models.TopicDocument

	// Built lazily from docs.
	vectors map[string]map[string]float64
	idf     map[string]float64
	stale   bool

	// now is swappable for tests.
	now func() time.Time
}

// NewIndex creates an empty index.
func NewIndex(cfg Config) *Index {
	if cfg.FatigueUses <= 0 {
		cfg.FatigueUses = DefaultConfig().FatigueUses
	}
	if cfg.FatigueWindowDays <= 0 {
		cfg.FatigueWindowDays = DefaultConfig().FatigueWindowDays
	}
	if cfg.FatigueOutcomeFactor <= 0 {
		cfg.FatigueOutcomeFactor = DefaultConfig().FatigueOutcomeFactor
	}
	if cfg.ClusterSimilarity <= 0 {
		cfg.ClusterSimilarity = DefaultConfig().ClusterSimilarity
	}
	if cfg.WinnerPercentile <= 0 || cfg.WinnerPercentile >= 1 {
		cfg.WinnerPercentile = DefaultConfig().WinnerPercentile
	}
	return &Index{
		cfg:   cfg,
		docs:  make(map[string]*models.TopicDocument),
		stale: true,
		now:   time.Now,
	}
}

// Load replaces the document set, typically from the store at startup.
func (ix *Index) Load(docs []*models.TopicDocument) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs = make(map[string]*models.TopicDocument, len(docs))
	for _, d := range docs {
		copied := *d
		ix.docs[d.Topic] = &copied
	}
	ix.stale = true
}

// Observe records a topic use at the given time, creating the document on
// first use.
func (ix *Index) Observe(channelID, topic string, usedAt time.Time) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	doc, ok := ix.docs[topic]
	if !ok {
		doc = &models.TopicDocument{ChannelID: channelID, Topic: topic}
		ix.docs[topic] = doc
		ix.stale = true
	}
	doc.UsedAt = append(doc.UsedAt, usedAt)
	if usedAt.After(doc.LastUsedAt) {
		doc.LastUsedAt = usedAt
	}
}

// RecordOutcome appends the final observed views of a use of topic.
func (ix *Index) RecordOutcome(channelID, topic string, views float64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	doc, ok := ix.docs[topic]
	if !ok {
		doc = &models.TopicDocument{ChannelID: channelID, Topic: topic}
		ix.docs[topic] = doc
		ix.stale = true
	}
	doc.Outcomes = append(doc.Outcomes, views)
}

// Documents returns a snapshot of all documents for persistence.
func (ix *Index) Documents() []*models.TopicDocument {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*models.TopicDocument, 0, len(ix.docs))
	for _, d := range ix.docs {
		copied := *d
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}

// NearestWinner returns, among topics whose rolling outcome is at or above
// the channel's winner percentile, the one most similar to the query. The
// boolean is false when the channel has no winners yet.
func (ix *Index) NearestWinner(topic string) (winner string, similarity float64, ok bool) {
	ix.mu.Lock()
	ix.rebuildLocked()
	winners := ix.winnersLocked()
	query := ix.vectorizeLocked(topic)
	ix.mu.Unlock()

	if len(winners) == 0 {
		return "", 0, false
	}

	best := -1.0
	for _, w := range winners {
		ix.mu.RLock()
		sim := cosine(query, ix.vectors[w])
		ix.mu.RUnlock()
		if sim > best {
			best = sim
			winner = w
		}
	}
	return winner, math.Max(best, 0), true
}

// Recommend returns up to k topics from the neighborhood of winners,
// ranked by rolling outcome, excluding fatigued topics. channelMedian
// feeds the fatigue check.
func (ix *Index) Recommend(k int, channelMedian float64) []string {
	ix.mu.Lock()
	ix.rebuildLocked()
	winners := ix.winnersLocked()

	type scored struct {
		topic   string
		outcome float64
	}
	neighborhood := make(map[string]float64)
	for _, w := range winners {
		neighborhood[w] = rollingOutcome(ix.docs[w])
		for topic, vec := range ix.vectors {
			if topic == w {
				continue
			}
			if cosine(ix.vectors[w], vec) >= ix.cfg.ClusterSimilarity {
				if _, seen := neighborhood[topic]; !seen {
					neighborhood[topic] = rollingOutcome(ix.docs[topic])
				}
			}
		}
	}
	ix.mu.Unlock()

	candidates := make([]scored, 0, len(neighborhood))
	for topic, outcome := range neighborhood {
		if ix.IsFatigued(topic, channelMedian) {
			continue
		}
		candidates = append(candidates, scored{topic, outcome})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].outcome != candidates[j].outcome {
			return candidates[i].outcome > candidates[j].outcome
		}
		return candidates[i].topic < candidates[j].topic
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.topic
	}
	return out
}

// IsFatigued reports whether the topic, or its similarity cluster, has been
// used at least F times in the lookback window while its recent outcomes
// fell below channelMedian * FatigueOutcomeFactor.
func (ix *Index) IsFatigued(topic string, channelMedian float64) bool {
	if channelMedian <= 0 {
		return false
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.rebuildLocked()

	cluster := ix.clusterLocked(topic)
	if len(cluster) == 0 {
		return false
	}

	cutoff := ix.now().AddDate(0, 0, -ix.cfg.FatigueWindowDays)

	type use struct {
		at      time.Time
		outcome float64
		scored  bool
	}
	var uses []use
	recentUses := 0
	for _, t := range cluster {
		doc := ix.docs[t]
		recentUses += doc.UsesSince(cutoff)
		for i, at := range doc.UsedAt {
			u := use{at: at}
			if i < len(doc.Outcomes) {
				u.outcome = doc.Outcomes[i]
				u.scored = true
			}
			uses = append(uses, u)
		}
	}

	if recentUses < ix.cfg.FatigueUses {
		return false
	}

	// Mean outcome of the last three scored uses across the cluster.
	sort.Slice(uses, func(i, j int) bool { return uses[i].at.Before(uses[j].at) })
	var lastThree []float64
	for i := len(uses) - 1; i >= 0 && len(lastThree) < 3; i-- {
		if uses[i].scored {
			lastThree = append(lastThree, uses[i].outcome)
		}
	}
	if len(lastThree) == 0 {
		return false
	}
	var sum float64
	for _, o := range lastThree {
		sum += o
	}
	mean := sum / float64(len(lastThree))

	return mean < channelMedian*ix.cfg.FatigueOutcomeFactor
}

// clusterLocked returns the indexed topics within ClusterSimilarity of the
// query, including the query topic itself when indexed.
func (ix *Index) clusterLocked(topic string) []string {
	query := ix.vectorizeLocked(topic)
	var cluster []string
	for t, vec := range ix.vectors {
		if t == topic || cosine(query, vec) >= ix.cfg.ClusterSimilarity {
			cluster = append(cluster, t)
		}
	}
	return cluster
}

// winnersLocked returns topics whose rolling outcome reaches the winner
// percentile of all scored topics.
func (ix *Index) winnersLocked() []string {
	var outcomes []float64
	for _, d := range ix.docs {
		if len(d.Outcomes) > 0 {
			outcomes = append(outcomes, rollingOutcome(d))
		}
	}
	if len(outcomes) == 0 {
		return nil
	}
	threshold := percentile(outcomes, ix.cfg.WinnerPercentile)

	var winners []string
	for topic, d := range ix.docs {
		if len(d.Outcomes) > 0 && rollingOutcome(d) >= threshold {
			winners = append(winners, topic)
		}
	}
	sort.Strings(winners)
	return winners
}

// rebuildLocked rebuilds the TF-IDF space if stale.
func (ix *Index) rebuildLocked() {
	if !ix.stale {
		return
	}

	n := len(ix.docs)
	df := make(map[string]int)
	tokenized := make(map[string][]string, n)
	for topic := range ix.docs {
		tokens := tokensOf(topic)
		tokenized[topic] = tokens
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, dup := seen[tok]; !dup {
				seen[tok] = struct{}{}
				df[tok]++
			}
		}
	}

	ix.idf = make(map[string]float64, len(df))
	for tok, count := range df {
		ix.idf[tok] = math.Log(float64(1+n)/float64(1+count)) + 1
	}

	ix.vectors = make(map[string]map[string]float64, n)
	for topic, tokens := range tokenized {
		ix.vectors[topic] = ix.tfidfLocked(tokens)
	}
	ix.stale = false
}

// vectorizeLocked builds a TF-IDF vector for an arbitrary query topic.
func (ix *Index) vectorizeLocked(topic string) map[string]float64 {
	if vec, ok := ix.vectors[topic]; ok {
		return vec
	}
	return ix.tfidfLocked(tokensOf(topic))
}

// stopwords are dropped before vectorization so function words do not
// dilute topic similarity.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "at": {}, "on": {},
	"and": {}, "or": {}, "to": {}, "for": {}, "with": {}, "from": {},
}

// tokensOf tokenizes a topic and strips stopwords.
func tokensOf(topic string) []string {
	raw := feature.Tokenize(topic)
	tokens := raw[:0:0]
	for _, tok := range raw {
		if _, skip := stopwords[tok]; !skip {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func (ix *Index) tfidfLocked(tokens []string) map[string]float64 {
	if len(tokens) == 0 {
		return nil
	}
	tf := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		tf[tok] += 1 / float64(len(tokens))
	}
	vec := make(map[string]float64, len(tf))
	for tok, f := range tf {
		idf, ok := ix.idf[tok]
		if !ok {
			// Unseen term: maximum inverse document frequency.
			idf = math.Log(float64(1+len(ix.docs))) + 1
		}
		vec[tok] = f * idf
	}
	return vec
}

// rollingOutcome is the mean of a document's most recent outcomes.
func rollingOutcome(d *models.TopicDocument) float64 {
	recent := d.LastOutcomes(5)
	if len(recent) == 0 {
		return 0
	}
	var sum float64
	for _, o := range recent {
		sum += o
	}
	return sum / float64(len(recent))
}

// cosine computes cosine similarity between sparse vectors.
func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for tok, va := range a {
		normA += va * va
		if vb, ok := b[tok]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// percentile returns the p-quantile (0<p<1) of xs using nearest-rank.
func percentile(xs []float64, p float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
