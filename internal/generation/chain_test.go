package generation_test

import (
	"context"
	"errors"
	"time"

	"brewcast.app/captioner/common/llm"
	"brewcast.app/captioner/internal/generation"
	"brewcast.app/captioner/internal/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockProvider implements generation.Provider for testing.
type mockProvider struct {
	id         string
	terminal   bool
	available  bool
	generateFn func(ctx context.Context, prompt generation.Prompt) (*model.GenerationResult, error)
	callCount  int
}

func (m *mockProvider) ID() string    { return m.id }
func (m *mockProvider) Model() string { return "test-model" }

func (m *mockProvider) Available(context.Context) bool { return m.available }
func (m *mockProvider) Terminal() bool                 { return m.terminal }

func (m *mockProvider) Generate(ctx context.Context, prompt generation.Prompt) (*model.GenerationResult, error) {
	m.callCount++
	if m.generateFn != nil {
		return m.generateFn(ctx, prompt)
	}
	return nil, errors.New("mock not configured")
}

func succeeding(id string) *mockProvider {
	return &mockProvider{
		id:        id,
		available: true,
		generateFn: func(_ context.Context, _ generation.Prompt) (*model.GenerationResult, error) {
			return &model.GenerationResult{
				Text:     "A lovingly made caption about coffee that says enough to post.",
				Provider: id,
				Method:   model.MethodLLM,
			}, nil
		},
	}
}

func failing(id string) *mockProvider {
	return &mockProvider{
		id:        id,
		available: true,
		generateFn: func(_ context.Context, _ generation.Prompt) (*model.GenerationResult, error) {
			// 400 is a client error, so the chain moves on without retrying.
			return nil, &llm.HTTPError{StatusCode: 400, Body: "bad request"}
		},
	}
}

func terminal() *mockProvider {
	return &mockProvider{
		id:        "template",
		terminal:  true,
		available: true,
		generateFn: func(_ context.Context, _ generation.Prompt) (*model.GenerationResult, error) {
			return &model.GenerationResult{
				Text:     "Some things are worth slowing down for.",
				Provider: "template",
				Method:   model.MethodTemplate,
			}, nil
		},
	}
}

func newChain(providers ...generation.Provider) *generation.Chain {
	chain, err := generation.NewChain(providers, time.Second, 10)
	Expect(err).NotTo(HaveOccurred())
	return chain
}

var _ = Describe("Chain", func() {
	var prompt generation.Prompt

	BeforeEach(func() {
		prompt = generation.Prompt{
			Keyword:  "cold brew",
			Platform: model.PlatformInstagram,
		}
	})

	Describe("construction", func() {
		It("rejects an empty chain", func() {
			_, err := generation.NewChain(nil, time.Second, 10)
			Expect(err).To(MatchError(generation.ErrNoTerminalProvider))
		})

		It("rejects a chain without a terminal provider", func() {
			_, err := generation.NewChain([]generation.Provider{succeeding("openai")}, time.Second, 10)
			Expect(err).To(MatchError(generation.ErrNoTerminalProvider))
		})

		It("rejects a terminal provider in the middle", func() {
			_, err := generation.NewChain([]generation.Provider{
				terminal(), succeeding("openai"), terminal(),
			}, time.Second, 10)
			Expect(err).To(HaveOccurred())
		})
	})

	It("uses the first provider when it succeeds", func() {
		first := succeeding("ollama")
		second := succeeding("openai")
		chain := newChain(first, second, terminal())

		result, err := chain.Generate(context.Background(), prompt, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Provider).To(Equal("ollama"))
		Expect(second.callCount).To(BeZero())
		Expect(result.Attempts).To(HaveLen(1))
	})

	It("skips unavailable providers without generating", func() {
		down := succeeding("ollama")
		down.available = false
		next := succeeding("openai")
		chain := newChain(down, next, terminal())

		result, err := chain.Generate(context.Background(), prompt, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Provider).To(Equal("openai"))
		Expect(down.callCount).To(BeZero())
		Expect(result.Attempts).To(HaveLen(2))
		Expect(result.Attempts[0].Err).To(Equal("provider unavailable"))
	})

	It("falls back through failures to the terminal provider", func() {
		chain := newChain(failing("ollama"), failing("openai"), terminal())

		result, err := chain.Generate(context.Background(), prompt, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Provider).To(Equal("template"))
		Expect(result.Method).To(Equal(model.MethodTemplate))
		Expect(result.Attempts).To(HaveLen(3))
		Expect(result.Attempts[0].Successful).To(BeFalse())
		Expect(result.Attempts[1].Successful).To(BeFalse())
		Expect(result.Attempts[2].Successful).To(BeTrue())
	})

	It("does not retry non-retryable errors", func() {
		hard := failing("openai")
		chain := newChain(hard, terminal())

		_, err := chain.Generate(context.Background(), prompt, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(hard.callCount).To(Equal(1))
	})

	It("prefers the brand's provider when named", func() {
		first := succeeding("ollama")
		preferred := succeeding("anthropic")
		chain := newChain(first, preferred, terminal())

		result, err := chain.Generate(context.Background(), prompt, "anthropic")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Provider).To(Equal("anthropic"))
		Expect(first.callCount).To(BeZero())
	})

	It("ignores an unknown preferred provider", func() {
		first := succeeding("ollama")
		chain := newChain(first, terminal())

		result, err := chain.Generate(context.Background(), prompt, "nonsense")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Provider).To(Equal("ollama"))
	})

	It("returns the context error when cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		chain := newChain(succeeding("ollama"), terminal())
		_, err := chain.Generate(ctx, prompt, "")
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("TemplateProvider", func() {
	It("is terminal and always available", func() {
		p := generation.NewTemplateProvider(0)
		Expect(p.Terminal()).To(BeTrue())
		Expect(p.Available(context.Background())).To(BeTrue())
	})

	It("produces the same caption for the same keyword", func() {
		p := generation.NewTemplateProvider(0)
		prompt := generation.Prompt{Keyword: "oat milk latte", Platform: model.PlatformInstagram}

		first, err := p.Generate(context.Background(), prompt)
		Expect(err).NotTo(HaveOccurred())
		second, err := p.Generate(context.Background(), prompt)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Text).To(Equal(second.Text))
	})

	It("includes the keyword in the caption", func() {
		p := generation.NewTemplateProvider(42)
		result, err := p.Generate(context.Background(), generation.Prompt{
			Keyword:  "pumpkin spice",
			Platform: model.PlatformInstagram,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(ContainSubstring("pumpkin spice"))
		Expect(result.Method).To(Equal(model.MethodTemplate))
	})

	It("grades up to hybrid when a snippet fits", func() {
		p := generation.NewTemplateProvider(42)
		result, err := p.Generate(context.Background(), generation.Prompt{
			Keyword:  "espresso",
			Platform: model.PlatformLinkedIn,
			Snippets: []model.RankedSnippet{
				{Text: "Fresh beans change everything."},
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Method).To(Equal(model.MethodHybrid))
		Expect(result.Text).To(ContainSubstring("Fresh beans change everything."))
	})
})
