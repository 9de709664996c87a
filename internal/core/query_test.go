package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flockbase.app/assistant/internal/ai/aimock"
	"flockbase.app/assistant/internal/store"
)

func newQueryFixture(st *fakeStore) (*QueryService, *aimock.Embedder, *aimock.Completer) {
	embedder := &aimock.Embedder{}
	completer := &aimock.Completer{}
	svc := NewQueryService(st, st, embedder, completer, "français")
	return svc, embedder, completer
}

func TestAnswerValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   QueryRequest
		field string
	}{
		{"missing churchId", QueryRequest{Messages: []ChatMessage{{Role: "user", Content: "bonjour"}}}, "churchId"},
		{"no messages", QueryRequest{ChurchID: "c1"}, "messages"},
		{"no user turn", QueryRequest{ChurchID: "c1", Messages: []ChatMessage{{Role: "assistant", Content: "bonjour"}}}, "messages"},
		{"empty user content", QueryRequest{ChurchID: "c1", Messages: []ChatMessage{{Role: "user", Content: "  "}}}, "messages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newQueryFixture(&fakeStore{})

			_, err := svc.Answer(context.Background(), tt.req)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)

			// Rejected requests never leave the RECEIVED state.
			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, StageReceived, stageErr.Stage)
		})
	}
}

func TestAnswerUsesLatestUserMessage(t *testing.T) {
	svc, _, completer := newQueryFixture(&fakeStore{})

	_, err := svc.Answer(context.Background(), QueryRequest{
		ChurchID:   "c1",
		ChurchName: "Grace",
		Messages: []ChatMessage{
			{Role: "user", Content: "Bonjour"},
			{Role: "assistant", Content: "Bonjour, comment puis-je aider ?"},
			{Role: "user", Content: "À quelle heure est le culte ?"},
		},
	})

	require.NoError(t, err)
	assert.Contains(t, completer.LastUser, "À quelle heure est le culte ?")
	assert.NotContains(t, strings.SplitN(completer.LastUser, "### Instructions", 2)[0], "comment puis-je aider")
}

func TestAnswerFAQShortCircuit(t *testing.T) {
	st := &fakeStore{
		faqs: []store.FAQ{
			{ChurchID: "c1", Question: "Comment faire un don ?", Answer: "Allez dans Dons."},
		},
	}
	svc, _, completer := newQueryFixture(st)

	_, err := svc.Answer(context.Background(), QueryRequest{
		ChurchID:   "c1",
		ChurchName: "Grace",
		Messages:   []ChatMessage{{Role: "user", Content: "Comment faire un don ?"}},
	})

	require.NoError(t, err)
	assert.Contains(t, completer.LastUser, "Allez dans Dons.")
	assert.Contains(t, completer.LastUser, "Comment faire un don ?")
}

func TestAnswerFAQPrefixTruncation(t *testing.T) {
	longQuestion := strings.Repeat("a", FAQMatchPrefixLen) + " suite jamais utilisée pour le filtre"
	st := &fakeStore{
		faqs: []store.FAQ{
			{ChurchID: "c1", Question: strings.Repeat("a", FAQMatchPrefixLen), Answer: "réponse courte"},
		},
	}
	svc, _, completer := newQueryFixture(st)

	_, err := svc.Answer(context.Background(), QueryRequest{
		ChurchID: "c1",
		Messages: []ChatMessage{{Role: "user", Content: longQuestion}},
	})

	require.NoError(t, err)
	// Only the first FAQMatchPrefixLen characters are matched, so the entry
	// is found even though the question is longer.
	assert.Contains(t, completer.LastUser, "réponse courte")
}

func TestAnswerVectorRetrievalTopK(t *testing.T) {
	query := "À quelle heure est le culte du dimanche ?"
	queryVec := aimock.DeterministicVector(query, aimock.DefaultDimensions)

	st := &fakeStore{}
	// One chunk identical to the query embedding, several dissimilar ones.
	st.chunks = append(st.chunks, store.Chunk{
		ID: 1, ChurchID: "c1", Seq: 0,
		Content:   "Le culte du dimanche commence à 10h.",
		Embedding: queryVec,
	})
	for i := 2; i <= TopKChunks+3; i++ {
		st.chunks = append(st.chunks, store.Chunk{
			ID: int64(i), ChurchID: "c1", Seq: i - 1,
			Content:   fmt.Sprintf("contenu divers %d", i),
			Embedding: aimock.DeterministicVector(fmt.Sprintf("autre %d", i), aimock.DefaultDimensions),
		})
	}
	svc, _, completer := newQueryFixture(st)

	_, err := svc.Answer(context.Background(), QueryRequest{
		ChurchID: "c1",
		Messages: []ChatMessage{{Role: "user", Content: query}},
	})

	require.NoError(t, err)
	contextBlock := completer.LastUser
	assert.Contains(t, contextBlock, "Le culte du dimanche commence à 10h.")
	// The most similar chunk comes first in the context section.
	ctxStart := strings.Index(contextBlock, "### Contexte général")
	bestIdx := strings.Index(contextBlock, "Le culte du dimanche commence à 10h.")
	require.NotEqual(t, -1, ctxStart)
	for i := 2; i <= TopKChunks+3; i++ {
		if idx := strings.Index(contextBlock, fmt.Sprintf("contenu divers %d", i)); idx != -1 {
			assert.Greater(t, idx, bestIdx)
		}
	}
}

func TestAnswerTenantIsolation(t *testing.T) {
	query := "À quelle heure est le culte du dimanche ?"
	st := &fakeStore{
		chunks: []store.Chunk{
			{
				ID: 1, ChurchID: "c1", Seq: 0,
				Content: "Le culte du dimanche commence à 10h.",
				// Lexically identical to the query's embedding: maximally
				// similar, but belonging to another tenant.
				Embedding: aimock.DeterministicVector(query, aimock.DefaultDimensions),
			},
		},
		faqs: []store.FAQ{
			{ChurchID: "c1", Question: "À quelle heure est le culte du dimanche ?", Answer: "À 10h."},
		},
	}
	svc, _, completer := newQueryFixture(st)

	_, err := svc.Answer(context.Background(), QueryRequest{
		ChurchID: "c2",
		Messages: []ChatMessage{{Role: "user", Content: query}},
	})

	require.NoError(t, err)
	assert.NotContains(t, completer.LastUser, "10h")
	assert.Contains(t, completer.LastUser, noContextPlaceholder)
	assert.Contains(t, completer.LastUser, noFAQPlaceholder)
}

func TestAnswerEmptyCorpusGracefulDegradation(t *testing.T) {
	svc, _, completer := newQueryFixture(&fakeStore{})
	completer.CannedAnswer = FallbackAnswer

	answer, err := svc.Answer(context.Background(), QueryRequest{
		ChurchID:   "c2",
		ChurchName: "Grace",
		Messages:   []ChatMessage{{Role: "user", Content: "Quels sont les horaires ?"}},
	})

	require.NoError(t, err)
	assert.Equal(t, FallbackAnswer, answer)
	assert.Contains(t, completer.LastUser, noFAQPlaceholder)
	assert.Contains(t, completer.LastUser, noContextPlaceholder)
}

func TestAnswerStageTagging(t *testing.T) {
	t.Run("faq lookup failure", func(t *testing.T) {
		st := &fakeStore{queryErr: errors.New("db gone")}
		svc, _, _ := newQueryFixture(st)

		_, err := svc.Answer(context.Background(), QueryRequest{
			ChurchID: "c1",
			Messages: []ChatMessage{{Role: "user", Content: "bonjour"}},
		})

		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageFAQLookup, stageErr.Stage)
	})

	t.Run("embedding failure", func(t *testing.T) {
		svc, embedder, _ := newQueryFixture(&fakeStore{})
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("service unavailable")
		}

		_, err := svc.Answer(context.Background(), QueryRequest{
			ChurchID: "c1",
			Messages: []ChatMessage{{Role: "user", Content: "bonjour"}},
		})

		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageEmbedding, stageErr.Stage)
	})

	t.Run("llm failure", func(t *testing.T) {
		svc, _, completer := newQueryFixture(&fakeStore{})
		completer.CompleteFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return "", errors.New("model overloaded")
		}

		_, err := svc.Answer(context.Background(), QueryRequest{
			ChurchID: "c1",
			Messages: []ChatMessage{{Role: "user", Content: "bonjour"}},
		})

		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageLLMCall, stageErr.Stage)
	})
}

func TestAnswerSystemPromptBranding(t *testing.T) {
	svc, _, completer := newQueryFixture(&fakeStore{})

	_, err := svc.Answer(context.Background(), QueryRequest{
		ChurchID:   "c1",
		ChurchName: "Église de la Grâce",
		Messages:   []ChatMessage{{Role: "user", Content: "bonjour"}},
	})

	require.NoError(t, err)
	assert.Contains(t, completer.LastSystem, "Église de la Grâce")
	assert.Contains(t, completer.LastSystem, "français")
}

func TestIngestThenRetrieve(t *testing.T) {
	st := &fakeStore{}
	embedder := &aimock.Embedder{}
	ingestSvc := NewIngestionService(st, embedder)

	opening := "Le culte du dimanche commence à 10h. "
	result, err := ingestSvc.Ingest(context.Background(), IngestRequest{
		ChurchID: "c1",
		Title:    "Horaires",
		Text:     opening + strings.Repeat("La louange est suivie du message. ", 40),
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, result.ChunkCount, 2)

	completer := &aimock.Completer{}
	querySvc := NewQueryService(st, st, embedder, completer, "français")
	_, err = querySvc.Answer(context.Background(), QueryRequest{
		ChurchID:   "c1",
		ChurchName: "Grace",
		Messages:   []ChatMessage{{Role: "user", Content: "À quelle heure est le culte du dimanche ?"}},
	})
	require.NoError(t, err)

	// The ingested content reaches the prompt; the context section is no
	// longer the placeholder.
	assert.Contains(t, completer.LastUser, "10h")
	assert.NotContains(t, completer.LastUser, noContextPlaceholder)

	// Same question from another tenant sees none of it.
	otherCompleter := &aimock.Completer{}
	otherSvc := NewQueryService(st, st, embedder, otherCompleter, "français")
	_, err = otherSvc.Answer(context.Background(), QueryRequest{
		ChurchID: "c2",
		Messages: []ChatMessage{{Role: "user", Content: "À quelle heure est le culte du dimanche ?"}},
	})
	require.NoError(t, err)
	assert.NotContains(t, otherCompleter.LastUser, "10h")
	assert.Contains(t, otherCompleter.LastUser, noContextPlaceholder)
}
