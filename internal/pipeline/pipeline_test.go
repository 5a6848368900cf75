package pipeline_test

import (
	"context"
	"errors"
	"strings"

	"brewcast.app/captioner/internal/generation"
	"brewcast.app/captioner/internal/model"
	"brewcast.app/captioner/internal/pipeline"
	"brewcast.app/captioner/internal/store"
	"brewcast.app/captioner/internal/voice"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testProfile() *model.BrandVoiceProfile {
	return &model.BrandVoiceProfile{
		ID:            1,
		Name:          "Daily Grind",
		Adjectives:    []string{"warm", "playful"},
		DefaultTone:   model.TonePair{Primary: "friendly", Secondary: "witty"},
		LexiconAlways: []string{"handcrafted"},
		LexiconNever:  []string{"cheap"},
		HashtagSeeds:  []string{"DailyGrind"},
		Mix:           model.ContentMix{EducationPct: 40, EngagementPct: 40, PromotionPct: 20},
		Active:        true,
	}
}

func llmResult(text string) *model.GenerationResult {
	return &model.GenerationResult{
		Text:             text,
		Provider:         "ollama",
		Model:            "phi3:mini",
		Method:           model.MethodLLM,
		PromptTokens:     120,
		CompletionTokens: 45,
	}
}

const goodCaption = "Our handcrafted cold brew is the smoothest way into a summer morning!"

var _ = Describe("Pipeline.Generate", func() {
	var (
		brands    *mockBrandStore
		captions  *mockCaptionStore
		usage     *mockUsageStore
		history   *mockHistoryStore
		retriever *mockRetriever
		generator *mockGenerator
		keywords  *mockKeywordSource
		p         *pipeline.Pipeline
		req       pipeline.GenerateRequest
	)

	BeforeEach(func() {
		profile := testProfile()
		brands = &mockBrandStore{
			getByIDFn: func(_ context.Context, id int64) (*model.BrandVoiceProfile, error) {
				if id == profile.ID {
					return profile, nil
				}
				return nil, store.ErrNotFound
			},
		}
		captions = &mockCaptionStore{}
		usage = newMockUsageStore()
		history = &mockHistoryStore{}
		retriever = &mockRetriever{
			retrieveFn: func(context.Context, model.RetrievalQuery, *model.BrandVoiceProfile) ([]model.RankedSnippet, error) {
				return []model.RankedSnippet{
					{DocumentID: 10, Text: "Cold brew steeps overnight for a smoother cup.", Score: 0.9, Source: "reddit"},
				}, nil
			},
		}
		generator = &mockGenerator{
			generateFn: func(_ context.Context, _ generation.Prompt, _ string) (*model.GenerationResult, error) {
				return llmResult(goodCaption), nil
			},
		}
		keywords = &mockKeywordSource{keyword: "cold brew"}

		p = pipeline.New(brands, captions, usage, history, retriever, generator, keywords,
			voice.NewEnforcer(20, 1), pipeline.Config{TopK: 4, DedupAttempts: 3})

		req = pipeline.GenerateRequest{
			BrandID:  1,
			Platform: "instagram",
			Keyword:  "cold brew",
		}
	})

	It("produces a complete caption artifact", func() {
		artifact, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())

		Expect(artifact.ID).NotTo(BeZero())
		Expect(artifact.Caption).To(Equal(goodCaption))
		Expect(artifact.Platform).To(Equal(model.PlatformInstagram))
		Expect(artifact.Method).To(Equal(model.MethodLLM))
		Expect(artifact.Provider).To(Equal("ollama"))
		Expect(artifact.Hashtags).NotTo(BeEmpty())
		Expect(len(artifact.Hashtags)).To(BeNumerically("<=", 5))
		Expect(artifact.Hashtags[0]).To(Equal("#dailygrind"))
		Expect(artifact.ImagePrompt).NotTo(BeEmpty())
		Expect(artifact.VisualStyle).NotTo(BeEmpty())
		Expect(artifact.Snippets).To(HaveLen(1))
	})

	It("persists the artifact and its history hash", func() {
		artifact, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())

		Expect(captions.created).To(HaveLen(1))
		Expect(captions.created[0].ID).To(Equal(artifact.ID))
		Expect(history.remembered).To(ContainElement(model.CaptionHash(artifact.Caption)))
	})

	It("records provider usage off the request path", func() {
		_, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())

		// Caption and image prompt generation each burn one model call.
		var rec *model.UsageRecord
		Eventually(usage.recorded).Should(Receive(&rec))
		Expect(rec.Provider).To(Equal("ollama"))
		Expect(rec.PromptTokens).To(Equal(240))
	})

	It("rejects an unknown brand with an invalid-request error", func() {
		req.BrandID = 42
		_, err := p.Generate(context.Background(), req)

		var invalid *pipeline.InvalidRequestError
		Expect(errors.As(err, &invalid)).To(BeTrue())
	})

	It("rejects an inactive brand", func() {
		inactive := testProfile()
		inactive.Active = false
		brands.getByIDFn = func(context.Context, int64) (*model.BrandVoiceProfile, error) {
			return inactive, nil
		}

		_, err := p.Generate(context.Background(), req)
		var invalid *pipeline.InvalidRequestError
		Expect(errors.As(err, &invalid)).To(BeTrue())
	})

	It("rejects an unknown platform", func() {
		req.Platform = "myspace"
		_, err := p.Generate(context.Background(), req)

		var invalid *pipeline.InvalidRequestError
		Expect(errors.As(err, &invalid)).To(BeTrue())
	})

	It("falls back to a trending keyword when none is given", func() {
		req.Keyword = ""
		keywords.keyword = "oat milk latte"

		artifact, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(artifact.Keyword).To(Equal("oat milk latte"))
	})

	It("regenerates once on a hard voice violation without re-retrieving", func() {
		calls := 0
		generator.generateFn = func(_ context.Context, _ generation.Prompt, _ string) (*model.GenerationResult, error) {
			calls++
			if calls == 1 {
				return llmResult("Nothing cheap about this handcrafted espresso, we promise you that!"), nil
			}
			return llmResult(goodCaption), nil
		}

		artifact, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(artifact.Caption).To(Equal(goodCaption))
		// Draft, regeneration, image prompt.
		Expect(calls).To(Equal(3))
		Expect(retriever.callCount).To(Equal(1))
	})

	It("tells the regeneration prompt which rules were broken", func() {
		calls := 0
		generator.generateFn = func(_ context.Context, prompt generation.Prompt, _ string) (*model.GenerationResult, error) {
			calls++
			if calls == 1 {
				return llmResult("Nothing cheap about this handcrafted espresso, we promise you that!"), nil
			}
			if calls == 2 {
				Expect(prompt.User).To(ContainSubstring("broke brand rules"))
			}
			return llmResult(goodCaption), nil
		}

		_, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(3))
	})

	It("attaches surviving violations to the artifact", func() {
		generator.generateFn = func(context.Context, generation.Prompt, string) (*model.GenerationResult, error) {
			return llmResult("Nothing cheap about this handcrafted espresso, we promise you that!"), nil
		}

		artifact, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(artifact.Violations).NotTo(BeEmpty())
		Expect(artifact.Violations[0].Rule).To(Equal("lexicon-never"))
		Expect(artifact.Violations[0].Hard).To(BeTrue())
	})

	It("leaves a clean caption's violations empty", func() {
		artifact, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(artifact.Violations).To(BeEmpty())
	})

	It("retries on duplicate captions with a fresh angle", func() {
		duplicateHash := model.CaptionHash(goodCaption)
		returned := []string{
			goodCaption,
			"Our handcrafted nitro pour is a whole new kind of smooth, come try it!",
		}
		calls := 0
		generator.generateFn = func(_ context.Context, _ generation.Prompt, _ string) (*model.GenerationResult, error) {
			idx := calls
			if idx >= len(returned) {
				idx = len(returned) - 1
			}
			calls++
			return llmResult(returned[idx]), nil
		}
		history.seenFn = func(_ context.Context, _ int64, hash string) (bool, error) {
			return hash == duplicateHash, nil
		}

		artifact, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(artifact.Caption).To(Equal(returned[1]))
		// Duplicate draft, fresh angle, image prompt.
		Expect(calls).To(Equal(3))
		Expect(generator.prompts[1].User).To(ContainSubstring("different angle"))
	})

	It("accepts duplicate template output instead of spinning", func() {
		generator.generateFn = func(_ context.Context, _ generation.Prompt, _ string) (*model.GenerationResult, error) {
			return &model.GenerationResult{
				Text:     "Some things are worth slowing down for. Cold brew is one of them, and it is waiting for you.",
				Provider: "template",
				Method:   model.MethodTemplate,
			}, nil
		}
		history.seenFn = func(context.Context, int64, string) (bool, error) {
			return true, nil
		}

		artifact, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(artifact.Method).To(Equal(model.MethodTemplate))
		Expect(generator.callCount).To(Equal(1))
	})

	It("propagates generator failure", func() {
		generator.generateFn = func(context.Context, generation.Prompt, string) (*model.GenerationResult, error) {
			return nil, errors.New("every provider is down")
		}

		_, err := p.Generate(context.Background(), req)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("generate caption"))
	})

	It("caps hashtags at the platform limit", func() {
		req.Platform = "twitter"
		artifact, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(artifact.Hashtags)).To(BeNumerically("<=", 2))
	})

	It("threads a provider override through every generator call", func() {
		req.Provider = "anthropic"

		_, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(generator.preferreds).NotTo(BeEmpty())
		for _, preferred := range generator.preferreds {
			Expect(preferred).To(Equal("anthropic"))
		}
	})

	It("falls back to the brand's preferred provider without an override", func() {
		preferred := testProfile()
		preferred.PreferredProvider = "gemini"
		brands.getByIDFn = func(context.Context, int64) (*model.BrandVoiceProfile, error) {
			return preferred, nil
		}

		_, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(generator.preferreds[0]).To(Equal("gemini"))
	})

	It("defaults to the single active brand when none is named", func() {
		req.BrandID = 0
		brands.listActiveFn = func(context.Context) ([]model.BrandVoiceProfile, error) {
			return []model.BrandVoiceProfile{*testProfile()}, nil
		}

		artifact, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(artifact.BrandID).To(Equal(int64(1)))
	})

	It("rejects an unnamed brand when several are active", func() {
		req.BrandID = 0
		second := testProfile()
		second.ID = 2
		second.Name = "Night Owl Roasters"
		brands.listActiveFn = func(context.Context) ([]model.BrandVoiceProfile, error) {
			return []model.BrandVoiceProfile{*testProfile(), *second}, nil
		}

		_, err := p.Generate(context.Background(), req)
		var invalid *pipeline.InvalidRequestError
		Expect(errors.As(err, &invalid)).To(BeTrue())
	})

	It("resolves a brand by name", func() {
		req.BrandID = 0
		req.BrandName = "Daily Grind"
		brands.getByNameFn = func(_ context.Context, name string) (*model.BrandVoiceProfile, error) {
			Expect(name).To(Equal("Daily Grind"))
			return testProfile(), nil
		}

		artifact, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(artifact.BrandID).To(Equal(int64(1)))
	})

	It("writes the image prompt with the model chain", func() {
		const brief = "A sweating glass of cold brew on a marble counter in soft morning light."
		generator.generateFn = func(_ context.Context, prompt generation.Prompt, _ string) (*model.GenerationResult, error) {
			if strings.Contains(prompt.System, "image generation prompts") {
				return llmResult(brief), nil
			}
			return llmResult(goodCaption), nil
		}

		artifact, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(artifact.ImagePrompt).To(Equal(brief))
	})

	It("keeps a template image prompt when the chain degrades mid-request", func() {
		generator.generateFn = func(_ context.Context, prompt generation.Prompt, _ string) (*model.GenerationResult, error) {
			if strings.Contains(prompt.System, "image generation prompts") {
				return &model.GenerationResult{Text: "keyword filler", Provider: "template", Method: model.MethodTemplate}, nil
			}
			return llmResult(goodCaption), nil
		}

		artifact, err := p.Generate(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(artifact.ImagePrompt).To(ContainSubstring("Professional product photograph"))
	})
})

var _ = Describe("Pipeline.RegenerateImage", func() {
	var (
		brands    *mockBrandStore
		captions  *mockCaptionStore
		generator *mockGenerator
		p         *pipeline.Pipeline
	)

	BeforeEach(func() {
		profile := testProfile()
		brands = &mockBrandStore{
			getByIDFn: func(context.Context, int64) (*model.BrandVoiceProfile, error) {
				return profile, nil
			},
		}
		captions = &mockCaptionStore{
			getByIDFn: func(_ context.Context, id int64) (*model.CaptionArtifact, error) {
				if id != 77 {
					return nil, store.ErrNotFound
				}
				return &model.CaptionArtifact{
					ID:          77,
					BrandID:     1,
					Keyword:     "cold brew",
					VisualStyle: "rustic",
					Snippets: []model.RankedSnippet{
						{DocumentID: 10, Text: "Cold brew steeps overnight for a smoother cup.", Score: 0.9},
					},
				}, nil
			},
		}
		generator = &mockGenerator{}

		p = pipeline.New(brands, captions, newMockUsageStore(), &mockHistoryStore{},
			&mockRetriever{}, generator, &mockKeywordSource{},
			voice.NewEnforcer(20, 1), pipeline.Config{})
	})

	It("writes a fresh prompt through the chain with the stored snippets", func() {
		const brief = "A mason jar of cold brew beside roasted beans on reclaimed wood."
		generator.generateFn = func(_ context.Context, prompt generation.Prompt, _ string) (*model.GenerationResult, error) {
			Expect(prompt.User).To(ContainSubstring("steeps overnight"))
			return llmResult(brief), nil
		}

		prompt, err := p.RegenerateImage(context.Background(), 77, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(prompt).To(Equal(brief))
	})

	It("falls back to the style tables when every model is down", func() {
		prompt, err := p.RegenerateImage(context.Background(), 77, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(prompt).To(ContainSubstring("cold brew"))
		Expect(strings.ToLower(prompt)).To(ContainSubstring("wooden table"))
	})

	It("honors a style override", func() {
		prompt, err := p.RegenerateImage(context.Background(), 77, "minimalist")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.ToLower(prompt)).To(ContainSubstring("negative space"))
	})

	It("returns an invalid-request error for unknown captions", func() {
		_, err := p.RegenerateImage(context.Background(), 12345, "")

		var invalid *pipeline.InvalidRequestError
		Expect(errors.As(err, &invalid)).To(BeTrue())
	})
})
