package pipeline_test

import (
	"context"
	"errors"
	"time"

	"brewcast.app/captioner/internal/generation"
	"brewcast.app/captioner/internal/model"
)

// mockBrandStore implements store.BrandStore for testing.
type mockBrandStore struct {
	getByIDFn    func(ctx context.Context, id int64) (*model.BrandVoiceProfile, error)
	getByNameFn  func(ctx context.Context, name string) (*model.BrandVoiceProfile, error)
	listActiveFn func(ctx context.Context) ([]model.BrandVoiceProfile, error)
}

func (m *mockBrandStore) GetByID(ctx context.Context, id int64) (*model.BrandVoiceProfile, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, errors.New("mock not configured")
}

func (m *mockBrandStore) GetByName(ctx context.Context, name string) (*model.BrandVoiceProfile, error) {
	if m.getByNameFn != nil {
		return m.getByNameFn(ctx, name)
	}
	return nil, errors.New("mock not configured")
}

func (m *mockBrandStore) Create(context.Context, *model.BrandVoiceProfile) error {
	return errors.New("not implemented")
}

func (m *mockBrandStore) Update(context.Context, *model.BrandVoiceProfile) error {
	return errors.New("not implemented")
}

func (m *mockBrandStore) ListActive(ctx context.Context) ([]model.BrandVoiceProfile, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return nil, errors.New("mock not configured")
}

// mockCaptionStore implements store.CaptionStore for testing.
type mockCaptionStore struct {
	createFn  func(ctx context.Context, artifact *model.CaptionArtifact) error
	getByIDFn func(ctx context.Context, id int64) (*model.CaptionArtifact, error)
	created   []*model.CaptionArtifact
}

func (m *mockCaptionStore) Create(ctx context.Context, artifact *model.CaptionArtifact) error {
	m.created = append(m.created, artifact)
	if m.createFn != nil {
		return m.createFn(ctx, artifact)
	}
	return nil
}

func (m *mockCaptionStore) GetByID(ctx context.Context, id int64) (*model.CaptionArtifact, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, errors.New("mock not configured")
}

func (m *mockCaptionStore) ListByBrand(context.Context, int64, int32) ([]model.CaptionArtifact, error) {
	return nil, errors.New("not implemented")
}

func (m *mockCaptionStore) ListRecentHashes(context.Context, int64, int32) ([]string, error) {
	return nil, errors.New("not implemented")
}

// mockUsageStore implements store.UsageStore for testing.
type mockUsageStore struct {
	recorded chan *model.UsageRecord
}

func newMockUsageStore() *mockUsageStore {
	return &mockUsageStore{recorded: make(chan *model.UsageRecord, 8)}
}

func (m *mockUsageStore) Record(_ context.Context, rec *model.UsageRecord) error {
	m.recorded <- rec
	return nil
}

func (m *mockUsageStore) SumCostSince(context.Context, time.Time) (float64, error) {
	return 0, errors.New("not implemented")
}

// mockHistoryStore implements store.HistoryStore for testing.
type mockHistoryStore struct {
	seenFn     func(ctx context.Context, brandID int64, hash string) (bool, error)
	remembered []string
}

func (m *mockHistoryStore) Seen(ctx context.Context, brandID int64, hash string) (bool, error) {
	if m.seenFn != nil {
		return m.seenFn(ctx, brandID, hash)
	}
	return false, nil
}

func (m *mockHistoryStore) Remember(_ context.Context, _ int64, hash string) error {
	m.remembered = append(m.remembered, hash)
	return nil
}

// mockRetriever implements pipeline.Retriever for testing.
type mockRetriever struct {
	retrieveFn func(ctx context.Context, query model.RetrievalQuery, profile *model.BrandVoiceProfile) ([]model.RankedSnippet, error)
	callCount  int
}

func (m *mockRetriever) Retrieve(ctx context.Context, query model.RetrievalQuery, profile *model.BrandVoiceProfile) ([]model.RankedSnippet, error) {
	m.callCount++
	if m.retrieveFn != nil {
		return m.retrieveFn(ctx, query, profile)
	}
	return nil, nil
}

// mockGenerator implements pipeline.Generator for testing.
type mockGenerator struct {
	generateFn func(ctx context.Context, prompt generation.Prompt, preferred string) (*model.GenerationResult, error)
	callCount  int
	prompts    []generation.Prompt
	preferreds []string
}

func (m *mockGenerator) Generate(ctx context.Context, prompt generation.Prompt, preferred string) (*model.GenerationResult, error) {
	m.callCount++
	m.prompts = append(m.prompts, prompt)
	m.preferreds = append(m.preferreds, preferred)
	if m.generateFn != nil {
		return m.generateFn(ctx, prompt, preferred)
	}
	return nil, errors.New("mock not configured")
}

// mockKeywordSource implements pipeline.KeywordSource for testing.
type mockKeywordSource struct {
	keyword string
	err     error
}

func (m *mockKeywordSource) Pick(context.Context) (string, error) {
	return m.keyword, m.err
}
