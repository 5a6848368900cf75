package generation

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"

	"brewcast.app/captioner/internal/model"
)

// captionTemplates are the local fallback shapes. %s slots take the keyword.
// Hashtags and emoji are left to the assembly layer like any other caption.
var captionTemplates = []string{
	"There is a moment every morning when %s makes everything make sense. Today is that moment.",
	"We have been perfecting our take on %s and honestly, we cannot stop talking about it.",
	"Some things are worth slowing down for. %s is one of them, and it is waiting for you.",
	"Ask our baristas about %s next time you are in. Fair warning: they will not stop talking.",
	"The secret to a better day? Start it with %s made the way it deserves to be made.",
	"%s season is every season if you ask us. Come taste why.",
}

// templateProvider is the terminal fallback: deterministic local caption
// assembly that cannot fail for external reasons.
type templateProvider struct {
	seed int64
}

// NewTemplateProvider creates the terminal template provider. A zero seed
// selects templates from the keyword hash, keeping output deterministic per
// keyword; a non-zero seed fixes selection for tests.
func NewTemplateProvider(seed int64) Provider {
	return &templateProvider{seed: seed}
}

func (p *templateProvider) ID() string {
	return "template"
}

func (p *templateProvider) Model() string {
	return ""
}

func (p *templateProvider) Available(context.Context) bool {
	return true
}

func (p *templateProvider) Terminal() bool {
	return true
}

func (p *templateProvider) Generate(_ context.Context, prompt Prompt) (*model.GenerationResult, error) {
	keyword := strings.TrimSpace(prompt.Keyword)
	if keyword == "" {
		keyword = "great coffee"
	}

	rng := rand.New(rand.NewSource(p.seedFor(keyword)))
	template := captionTemplates[rng.Intn(len(captionTemplates))]

	text := fmt.Sprintf(template, keyword)
	if strings.HasPrefix(template, "%s") {
		text = upperFirst(text)
	}

	// A retrieved snippet grades the caption up from pure template output.
	method := model.MethodTemplate
	if len(prompt.Snippets) > 0 {
		best := strings.TrimSpace(prompt.Snippets[0].Text)
		if best != "" && len(text)+len(best)+1 <= prompt.Platform.Spec().MaxChars {
			text = best + " " + text
			method = model.MethodHybrid
		}
	}

	return &model.GenerationResult{
		Text:     text,
		Provider: p.ID(),
		Method:   method,
	}, nil
}

func (p *templateProvider) seedFor(keyword string) int64 {
	if p.seed != 0 {
		return p.seed
	}
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(keyword)))
	return int64(h.Sum64())
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
