package core

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"flockbase.app/assistant/internal/ai"
	"flockbase.app/assistant/internal/store"
	"flockbase.app/assistant/internal/utils"
)

const (
	// FAQMatchLimit caps how many FAQ entries are injected into the prompt.
	FAQMatchLimit = 3
	// FAQMatchPrefixLen is how many leading characters of the user message
	// are matched against FAQ question text. A cheap first pass, not a
	// ranked similarity search.
	FAQMatchPrefixLen = 40
	// TopKChunks is how many chunks vector retrieval returns, most-similar
	// first.
	TopKChunks = 6

	faqSeparator     = "\n---\n"
	contextSeparator = "\n\n---\n\n"
)

// FAQStore is the read-only slice of the persistence layer the query pipeline
// needs for FAQ pre-filtering.
type FAQStore interface {
	SearchFAQs(churchID, needle string, limit int) ([]store.FAQ, error)
}

type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

type QueryRequest struct {
	ChurchID   string
	ChurchName string
	Messages   []ChatMessage
}

// QueryService answers one chat turn: FAQ pre-filter, embedding, tenant-scoped
// vector search, prompt assembly, then a single LLM call. Each invocation is
// stateless and independent.
type QueryService struct {
	chunkStore ChunkStore
	faqStore   FAQStore
	embedder   ai.Embedder
	completer  ai.Completer
	language   string
}

func NewQueryService(chunkStore ChunkStore, faqStore FAQStore, embedder ai.Embedder, completer ai.Completer, language string) *QueryService {
	if language == "" {
		language = "français"
	}
	return &QueryService{
		chunkStore: chunkStore,
		faqStore:   faqStore,
		embedder:   embedder,
		completer:  completer,
		language:   language,
	}
}

// pipelineState is threaded through the stages; each stage fills in a bit
// more until the answer is ready.
type pipelineState struct {
	churchID   string
	churchName string
	question   string

	faqBlock       string
	queryEmbedding []float32
	contextBlock   string
	systemPrompt   string
	userPrompt     string
	answer         string
}

// Answer runs the query pipeline for the latest user message in the request.
// Errors are tagged with the stage they originated from; the error state is
// terminal.
func (s *QueryService) Answer(ctx context.Context, req QueryRequest) (string, error) {
	if strings.TrimSpace(req.ChurchID) == "" {
		return "", &StageError{Stage: StageReceived, Err: &ValidationError{Field: "churchId"}}
	}

	question := latestUserMessage(req.Messages)
	if question == "" {
		return "", &StageError{Stage: StageReceived, Err: &ValidationError{Field: "messages"}}
	}

	state := &pipelineState{
		churchID:   req.ChurchID,
		churchName: req.ChurchName,
		question:   question,
	}

	stages := []struct {
		stage Stage
		run   func(context.Context, *pipelineState) error
	}{
		{StageFAQLookup, s.lookupFAQ},
		{StageEmbedding, s.embedQuestion},
		{StageVectorSearch, s.searchChunks},
		{StagePromptBuild, s.buildPrompt},
		{StageLLMCall, s.callModel},
	}

	for _, st := range stages {
		if err := st.run(ctx, state); err != nil {
			return "", &StageError{Stage: st.stage, Err: err}
		}
	}

	log.Printf("Query pipeline reached %s for church %s", StageResponded, req.ChurchID)
	return state.answer, nil
}

// lookupFAQ matches the leading characters of the question against FAQ
// question text. No match is not an error; the pipeline just proceeds to
// general retrieval.
func (s *QueryService) lookupFAQ(_ context.Context, state *pipelineState) error {
	needle := state.question
	if runes := []rune(needle); len(runes) > FAQMatchPrefixLen {
		needle = string(runes[:FAQMatchPrefixLen])
	}

	faqs, err := s.faqStore.SearchFAQs(state.churchID, needle, FAQMatchLimit)
	if err != nil {
		return err
	}

	pairs := make([]string, 0, len(faqs))
	for _, faq := range faqs {
		pairs = append(pairs, fmt.Sprintf("Q : %s\nR : %s", faq.Question, faq.Answer))
	}
	state.faqBlock = strings.Join(pairs, faqSeparator)
	return nil
}

func (s *QueryService) embedQuestion(ctx context.Context, state *pipelineState) error {
	vectors, err := s.embedder.EmbedTexts(ctx, []string{state.question})
	if err != nil {
		return err
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return fmt.Errorf("expected one query embedding, got %d", len(vectors))
	}
	state.queryEmbedding = vectors[0]
	return nil
}

type scoredChunk struct {
	chunk      store.Chunk
	similarity float32
}

// searchChunks ranks the church's chunks by cosine similarity to the query
// embedding and keeps the top K. An empty corpus yields an empty context
// block, not an error.
func (s *QueryService) searchChunks(_ context.Context, state *pipelineState) error {
	chunks, err := s.chunkStore.GetChunksByChurch(state.churchID)
	if err != nil {
		return err
	}

	scored := make([]scoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			log.Printf("Skipping chunk %d: missing embedding", chunk.ID)
			continue
		}
		similarity, err := utils.CosineSimilarity(state.queryEmbedding, chunk.Embedding)
		if err != nil {
			log.Printf("Skipping chunk %d: %v", chunk.ID, err)
			continue
		}
		scored = append(scored, scoredChunk{chunk: chunk, similarity: similarity})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].similarity > scored[j].similarity
	})
	if len(scored) > TopKChunks {
		scored = scored[:TopKChunks]
	}

	contents := make([]string, len(scored))
	for i, sc := range scored {
		contents[i] = sc.chunk.Content
	}
	state.contextBlock = strings.Join(contents, contextSeparator)
	return nil
}

func (s *QueryService) buildPrompt(_ context.Context, state *pipelineState) error {
	state.systemPrompt = BuildSystemPrompt(state.churchName, s.language)
	state.userPrompt = BuildUserPrompt(state.faqBlock, state.contextBlock, state.question)
	return nil
}

func (s *QueryService) callModel(ctx context.Context, state *pipelineState) error {
	answer, err := s.completer.Complete(ctx, state.systemPrompt, state.userPrompt)
	if err != nil {
		return err
	}
	state.answer = answer
	return nil
}

// latestUserMessage walks the history backwards looking for the newest
// non-empty user turn.
func latestUserMessage(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" && strings.TrimSpace(messages[i].Content) != "" {
			return messages[i].Content
		}
	}
	return ""
}
