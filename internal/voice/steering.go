package voice

import (
	"fmt"
	"strings"

	"brewcast.app/captioner/internal/model"
)

// SteeringInput carries everything the prompt builder needs for one
// generation pass.
type SteeringInput struct {
	Profile  *model.BrandVoiceProfile
	Platform model.Platform
	Keyword  string
	Scenario string
	Snippets []model.RankedSnippet
}

// SystemPrompt renders the brand voice constraints as the system message.
// Constraint order is stable so prompts for the same profile hash
// identically across runs.
func SystemPrompt(in SteeringInput) string {
	spec := in.Platform.Spec()
	tone := in.Profile.Tone(in.Scenario)

	var sb strings.Builder
	sb.WriteString("You are the social media copywriter for ")
	sb.WriteString(in.Profile.Name)
	sb.WriteString(".\n\n")

	if len(in.Profile.Adjectives) > 0 {
		sb.WriteString("Brand personality: ")
		sb.WriteString(strings.Join(in.Profile.Adjectives, ", "))
		sb.WriteString(".\n")
	}

	sb.WriteString("Tone: ")
	sb.WriteString(tone.Primary)
	if tone.Secondary != "" {
		sb.WriteString(" with a ")
		sb.WriteString(tone.Secondary)
		sb.WriteString(" undertone")
	}
	sb.WriteString(".\n")

	if len(in.Profile.LexiconAlways) > 0 {
		sb.WriteString("Work in these brand words where natural: ")
		sb.WriteString(strings.Join(in.Profile.LexiconAlways, ", "))
		sb.WriteString(".\n")
	}
	if len(in.Profile.LexiconNever) > 0 {
		sb.WriteString("Never use these words: ")
		sb.WriteString(strings.Join(in.Profile.LexiconNever, ", "))
		sb.WriteString(".\n")
	}
	if in.Profile.PunctuationStyle != "" {
		sb.WriteString("Punctuation style: ")
		sb.WriteString(in.Profile.PunctuationStyle)
		sb.WriteString(".\n")
	}

	fmt.Fprintf(&sb, "\nPlatform: %s. %s %s\n", in.Platform, spec.ToneStyle, spec.FormatStyle)
	fmt.Fprintf(&sb, "Hard limits: %d to %d characters, at most %d emoji.\n",
		spec.MinChars, spec.MaxChars, emojiLimit(in.Profile, spec))
	sb.WriteString("Write only the caption text. No hashtags, no quotes around the output.")

	return sb.String()
}

// UserPrompt renders the keyword and retrieved context as the user message.
func UserPrompt(in SteeringInput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a %s caption about: %s\n", in.Platform, in.Keyword)

	if len(in.Snippets) > 0 {
		sb.WriteString("\nInspiration from recent coffee conversations:\n")
		for _, s := range in.Snippets {
			sb.WriteString("- ")
			sb.WriteString(s.Text)
			sb.WriteString("\n")
		}
		sb.WriteString("\nDraw on the inspiration for specifics but do not copy it verbatim.")
	}

	return sb.String()
}

// ImagePromptSystem renders the system message for chain-generated image
// prompts. The model writes a photography brief, not a caption.
func ImagePromptSystem(profile *model.BrandVoiceProfile) string {
	var sb strings.Builder
	sb.WriteString("You write image generation prompts for ")
	sb.WriteString(profile.Name)
	sb.WriteString("'s social media photography.\n")
	sb.WriteString("Describe one photograph: subject, setting, lighting, mood. ")
	sb.WriteString("One paragraph, no camera jargon, no text overlays.\n")
	sb.WriteString("Output only the prompt itself.")
	return sb.String()
}

// ImagePromptUser renders the user message for chain-generated image
// prompts, carrying the visual style cues and any retrieved context.
func ImagePromptUser(keyword, visualStyle string, snippets []model.RankedSnippet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Subject: %s.\n", keyword)
	if desc, ok := visualStyleDescriptions[visualStyle]; ok {
		fmt.Fprintf(&sb, "Visual style: %s.\n", desc)
	}
	if len(snippets) > 0 {
		sb.WriteString("\nDetails worth showing, drawn from recent coffee conversations:\n")
		for _, s := range snippets {
			sb.WriteString("- ")
			sb.WriteString(s.Text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// ImagePrompt renders the companion image generation prompt from the style
// tables alone. It is the deterministic fallback when no model is available
// to write a richer brief.
func ImagePrompt(profile *model.BrandVoiceProfile, keyword, visualStyle string) string {
	style := profile.ImageStyle
	if style == "" {
		style = visualStyle
	}
	if style == "" {
		style = "modern_cafe"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Professional product photograph of %s", keyword)
	if desc, ok := visualStyleDescriptions[style]; ok {
		sb.WriteString(", ")
		sb.WriteString(desc)
	}
	sb.WriteString(", high resolution, appetizing, social media ready")
	return sb.String()
}

func emojiLimit(profile *model.BrandVoiceProfile, spec model.PlatformSpec) int {
	if profile.EmojiMax > 0 && profile.EmojiMax < spec.MaxEmoji {
		return profile.EmojiMax
	}
	return spec.MaxEmoji
}
