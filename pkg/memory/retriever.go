// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memory finds past incidents similar to the one being
// triaged, so the decision engine and response generator can draw on
// precedent. Unlike a vector-database-backed index, similarity here is
// TF-IDF cosine similarity over a bounded recent window - the
// similarity contract this engine needs does not justify operating a
// vector store (see DESIGN.md).
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Document is one incident's text summary, indexed by Retriever.
type Document struct {
	IncidentID string
	Title      string
	Category   string
	OccurredAt time.Time
	terms      map[string]int
}

// Match is a similar-incident result.
type Match struct {
	IncidentID string
	Score      float64
}

// Retriever indexes a rolling window of closed incidents and answers
// similarity queries against it. Safe for concurrent use.
type Retriever struct {
	mu      sync.RWMutex
	window  time.Duration
	docs    map[string]*Document
	idf     map[string]float64
	dirty   bool
}

// NewRetriever builds a Retriever that only considers documents whose
// OccurredAt is within window of "now" at query time. A zero window
// means no expiry.
func NewRetriever(window time.Duration) *Retriever {
	return &Retriever{window: window, docs: make(map[string]*Document)}
}

// Index adds or replaces a document. Call Refresh after a batch of
// Index calls to recompute inverse-document-frequency weights; a
// production deployment schedules Refresh hourly per spec.
func (r *Retriever) Index(incidentID, title, category string, occurredAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[incidentID] = &Document{
		IncidentID: incidentID,
		Title:      title,
		Category:   category,
		OccurredAt: occurredAt,
		terms:      termFrequencies(title),
	}
	r.dirty = true
}

// Refresh recomputes IDF weights over the current document set. Cheap
// enough to run on every call from a scheduled hourly job; callers
// that index in bursts should call it once at the end of the batch.
func (r *Retriever) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recomputeIDFLocked()
}

func (r *Retriever) recomputeIDFLocked() {
	df := make(map[string]int)
	for _, doc := range r.docs {
		for term := range doc.terms {
			df[term]++
		}
	}
	n := float64(len(r.docs))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((n+1)/(float64(count)+1)) + 1
	}
	r.idf = idf
	r.dirty = false
}

// Similar returns up to topK documents most similar to query's text,
// restricted to the configured window and sorted by descending score.
// Per spec.md §4.6 only matches scoring >= 0.7 are considered.
func (r *Retriever) Similar(ctx context.Context, query string, topK int) []Match {
	r.mu.Lock()
	if r.dirty {
		r.recomputeIDFLocked()
	}
	r.mu.Unlock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	queryVec := r.vectorLocked(termFrequencies(query))
	cutoff := time.Time{}
	if r.window > 0 {
		cutoff = time.Now().Add(-r.window)
	}

	var matches []Match
	for _, doc := range r.docs {
		if !cutoff.IsZero() && doc.OccurredAt.Before(cutoff) {
			continue
		}
		docVec := r.vectorLocked(doc.terms)
		score := cosineSimilarity(queryVec, docVec)
		if score >= 0.7 {
			matches = append(matches, Match{IncidentID: doc.IncidentID, Score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// vectorLocked builds a term -> tf*idf weight map. Callers hold r.mu.
func (r *Retriever) vectorLocked(tf map[string]int) map[string]float64 {
	vec := make(map[string]float64, len(tf))
	for term, count := range tf {
		vec[term] = float64(count) * r.idf[term]
	}
	return vec
}

func cosineSimilarity(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for term, wa := range a {
		normA += wa * wa
		if wb, ok := b[term]; ok {
			dot += wa * wb
		}
	}
	for _, wb := range b {
		normB += wb * wb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// termFrequencies tokenizes text into lowercase terms (punctuation
// trimmed, words of length <= 2 skipped) and counts occurrences,
// adapted from the keyword index's tokenizer.
func termFrequencies(text string) map[string]int {
	tf := make(map[string]int)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if len(word) > 2 {
			tf[word]++
		}
	}
	return tf
}
