package translation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/202030481266/FengWenServer/internal/domain"
)

const (
	maxTermsInPrompt = 100
	termsCacheTTL    = time.Hour
)

// TermsManager loads the admin-maintained glossary from PostgreSQL and
// selects the terms worth injecting into a translation prompt.
type TermsManager struct {
	repo  domain.TranslationRepository
	clock clockwork.Clock

	mu       sync.RWMutex
	terms    map[string]string
	loadedAt time.Time
}

func NewTermsManager(repo domain.TranslationRepository, clock clockwork.Clock) *TermsManager {
	return &TermsManager{
		repo:  repo,
		clock: clock,
		terms: map[string]string{},
	}
}

// Load refreshes the glossary from the database. Pairs whose Chinese and
// English sides have the same line count are split line by line; everything
// else is kept as a single term.
func (m *TermsManager) Load(ctx context.Context) error {
	pairs, err := m.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load translation pairs: %w", err)
	}

	terms := make(map[string]string)
	for _, pair := range pairs {
		chineseLines := splitLines(pair.ChineseText)
		englishLines := splitLines(pair.EnglishText)

		if len(chineseLines) == len(englishLines) {
			for i := range chineseLines {
				if chineseLines[i] != "" && englishLines[i] != "" {
					terms[chineseLines[i]] = englishLines[i]
				}
			}
			continue
		}

		zh := strings.TrimSpace(pair.ChineseText)
		en := strings.TrimSpace(pair.EnglishText)
		if zh != "" && en != "" {
			terms[zh] = en
		}
	}

	m.mu.Lock()
	m.terms = terms
	m.loadedAt = m.clock.Now()
	m.mu.Unlock()

	slog.Info("Loaded translation glossary", "terms", len(terms))
	return nil
}

// EnsureFresh reloads the glossary when the cached copy is stale. Load
// failures keep the previous copy.
func (m *TermsManager) EnsureFresh(ctx context.Context) {
	m.mu.RLock()
	stale := m.clock.Since(m.loadedAt) > termsCacheTTL
	m.mu.RUnlock()

	if !stale {
		return
	}
	if err := m.Load(ctx); err != nil {
		slog.Warn("Glossary refresh failed, keeping cached terms", "error", err)
	}
}

func splitLines(text string) []string {
	raw := strings.Split(strings.TrimSpace(text), "\n")
	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

type scoredTerm struct {
	score   float64
	term    string
	english string
}

// SelectTerms picks glossary terms relevant to the texts being translated.
// When too many match, high-frequency and short terms win, with a 70/30
// split between short terms and longer phrases.
func (m *TermsManager) SelectTerms(texts []string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	joined := strings.Join(texts, " ")

	relevant := make(map[string]string)
	frequency := make(map[string]int)
	for term, english := range m.terms {
		if !strings.Contains(joined, term) {
			continue
		}
		relevant[term] = english
		count := 0
		for _, text := range texts {
			if strings.Contains(text, term) {
				count++
			}
		}
		frequency[term] = count
	}

	if len(relevant) <= maxTermsInPrompt {
		return relevant
	}

	scored := make([]scoredTerm, 0, len(relevant))
	for term, english := range relevant {
		freq := frequency[term]
		lengthScore := 1 / (1 + float64(len([]rune(term)))/10)

		score := float64(freq)*2 + lengthScore
		if len([]rune(term)) > 4 && freq > 0 {
			score += 0.5
		}
		scored = append(scored, scoredTerm{score: score, term: term, english: english})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	selected := make(map[string]string, maxTermsInPrompt)
	shortCount, longCount := 0, 0
	for _, st := range scored {
		if len(selected) >= maxTermsInPrompt {
			break
		}
		if len([]rune(st.term)) <= 4 {
			if shortCount < maxTermsInPrompt*7/10 {
				selected[st.term] = st.english
				shortCount++
			}
		} else if longCount < maxTermsInPrompt*3/10 {
			selected[st.term] = st.english
			longCount++
		}
	}

	slog.Info("Selected glossary terms for prompt", "selected", len(selected), "relevant", len(relevant))
	return selected
}
