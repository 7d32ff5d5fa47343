package match

import (
	"context"
	"fmt"
	"testing"

	"github.com/itmedclk/HealthNews/internal/config"
	"github.com/itmedclk/HealthNews/internal/domain"
)

type fakeCompleter struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.reply, f.err
}

func (f *fakeCompleter) Configured() bool { return true }

func testCatalog() []domain.Product {
	return []domain.Product{
		{Name: "Turmeric Capsules", Category: "joint care"},
		{Name: "Magnesium Glycinate", Category: "sleep"},
		{Name: "Vitamin D3", Category: "immunity"},
	}
}

func TestSelectLexicalBest(t *testing.T) {
	t.Parallel()

	m := NewMatcher(config.MatchConfig{Threshold: 0.1}, nil, nil)
	entry := domain.NewsEntry{Title: "Turmeric compound studied for joint stiffness"}

	result := m.Select(context.Background(), entry, testCatalog())
	if result.Product == nil {
		t.Fatalf("expected a match, got none (score=%f)", result.Score)
	}
	if result.Product.Name != "Turmeric Capsules" {
		t.Fatalf("unexpected product: %s", result.Product.Name)
	}
}

func TestSelectBelowThreshold(t *testing.T) {
	t.Parallel()

	m := NewMatcher(config.MatchConfig{Threshold: 100}, nil, nil)
	entry := domain.NewsEntry{Title: "Turmeric compound studied for joint stiffness"}

	result := m.Select(context.Background(), entry, testCatalog())
	if result.Product != nil {
		t.Fatalf("expected no match above threshold, got %s", result.Product.Name)
	}
	if result.Score <= 0 {
		t.Fatalf("expected best score to be reported, got %f", result.Score)
	}
}

func TestSelectEmptyCatalog(t *testing.T) {
	t.Parallel()

	m := NewMatcher(config.MatchConfig{Threshold: 0.1}, nil, nil)

	result := m.Select(context.Background(), domain.NewsEntry{Title: "anything"}, nil)
	if result.Product != nil || result.Score != 0.0 {
		t.Fatalf("empty catalog should yield empty result, got %+v", result)
	}
}

func TestSelectRerankChoice(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: "CHOICE=1"}
	m := NewMatcher(config.MatchConfig{Threshold: 0.1, UseAIRerank: true, RerankTopN: 5}, completer, nil)
	entry := domain.NewsEntry{Title: "Turmeric compound studied for joint stiffness"}

	result := m.Select(context.Background(), entry, testCatalog())
	if result.Product == nil || result.Product.Name != "Turmeric Capsules" {
		t.Fatalf("expected reranked pick, got %+v", result)
	}
	if completer.calls != 1 {
		t.Fatalf("expected one rerank call, got %d", completer.calls)
	}
}

func TestSelectRerankNone(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: "CHOICE=NONE"}
	m := NewMatcher(config.MatchConfig{Threshold: 0.1, UseAIRerank: true}, completer, nil)
	entry := domain.NewsEntry{Title: "Turmeric compound studied for joint stiffness"}

	if result := m.Select(context.Background(), entry, testCatalog()); result.Product != nil {
		t.Fatalf("CHOICE=NONE should yield no match, got %s", result.Product.Name)
	}
}

func TestSelectRerankMalformed(t *testing.T) {
	t.Parallel()

	for _, reply := range []string{"I pick the first one", "CHOICE=abc", "CHOICE=99", "CHOICE=0", ""} {
		completer := &fakeCompleter{reply: reply}
		m := NewMatcher(config.MatchConfig{Threshold: 0.1, UseAIRerank: true}, completer, nil)
		entry := domain.NewsEntry{Title: "Turmeric compound studied for joint stiffness"}

		if result := m.Select(context.Background(), entry, testCatalog()); result.Product != nil {
			t.Fatalf("reply %q should yield no match, got %s", reply, result.Product.Name)
		}
	}
}

func TestSelectRerankCallError(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{err: fmt.Errorf("model down")}
	m := NewMatcher(config.MatchConfig{Threshold: 0.1, UseAIRerank: true}, completer, nil)
	entry := domain.NewsEntry{Title: "Turmeric compound studied for joint stiffness"}

	if result := m.Select(context.Background(), entry, testCatalog()); result.Product != nil {
		t.Fatalf("rerank failure should yield no match, got %s", result.Product.Name)
	}
}
