package model

import (
	"fmt"
	"strings"
	"time"
)

// TonePair is the voice for one content scenario: the tone that leads and
// the tone that tempers it.
type TonePair struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

// ContentMix is the brand's target split across post intents. Percentages
// must sum to 100.
type ContentMix struct {
	EducationPct  int `json:"education_pct"`
	EngagementPct int `json:"engagement_pct"`
	PromotionPct  int `json:"promotion_pct"`
}

// BrandVoiceProfile is the steering configuration for one brand. It is
// created and edited by the brand-onboarding collaborator; the engine reads
// it on every generation request and never writes it.
type BrandVoiceProfile struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	Adjectives     []string            `json:"adjectives"`
	ToneByScenario map[string]TonePair `json:"tone_by_scenario,omitempty"`
	DefaultTone    TonePair            `json:"default_tone"`

	LexiconAlways []string `json:"lexicon_always_use,omitempty"`
	LexiconNever  []string `json:"lexicon_never_use,omitempty"`

	// EmojiMax caps emoji per caption; zero means the platform default rules.
	EmojiMax         int    `json:"emoji_max,omitempty"`
	PunctuationStyle string `json:"punctuation_style,omitempty"`

	ImageStyle          string   `json:"image_style,omitempty"`
	HashtagSeeds        []string `json:"hashtag_seeds,omitempty"`
	InappropriateTopics []string `json:"inappropriate_topics,omitempty"`

	Mix ContentMix `json:"content_mix"`

	// PreferredProvider is tried first in the fallback order when set.
	PreferredProvider string `json:"preferred_provider,omitempty"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the profile invariants at load time so generation never
// has to defend against a malformed profile mid-request.
func (p *BrandVoiceProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("brand profile %d: name is required", p.ID)
	}

	if sum := p.Mix.EducationPct + p.Mix.EngagementPct + p.Mix.PromotionPct; sum != 100 {
		return fmt.Errorf("brand profile %d: content mix sums to %d, want 100", p.ID, sum)
	}

	never := make(map[string]struct{}, len(p.LexiconNever))
	for _, term := range p.LexiconNever {
		never[strings.ToLower(term)] = struct{}{}
	}
	for _, term := range p.LexiconAlways {
		if _, clash := never[strings.ToLower(term)]; clash {
			return fmt.Errorf("brand profile %d: %q appears in both always-use and never-use lexicons", p.ID, term)
		}
	}

	if p.EmojiMax < 0 {
		return fmt.Errorf("brand profile %d: emoji max must not be negative", p.ID)
	}

	return nil
}

// Tone resolves the tone pair for a scenario, falling back to the profile
// default when the scenario has no dedicated entry.
func (p *BrandVoiceProfile) Tone(scenario string) TonePair {
	if scenario != "" {
		if tone, ok := p.ToneByScenario[strings.ToLower(scenario)]; ok {
			return tone
		}
	}
	return p.DefaultTone
}
