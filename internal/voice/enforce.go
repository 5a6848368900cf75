package voice

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"brewcast.app/captioner/internal/model"
	"github.com/forPelevin/gomoji"
)

// truncationMarker ends a caption cut mid-sentence.
const truncationMarker = "…"

// Violation records one constraint the raw caption broke. Hard violations
// trigger a single regeneration pass; soft violations are logged and kept.
// The type lives in model so caption artifacts can carry violations without
// an import cycle.
type Violation = model.Violation

// EnforceResult is the outcome of running a raw caption through the
// constraint engine.
type EnforceResult struct {
	Caption    string
	Violations []Violation
}

// NeedsRegeneration reports whether any unrepaired hard violation remains.
func (r EnforceResult) NeedsRegeneration() bool {
	for _, v := range r.Violations {
		if v.Hard && !v.Repaired {
			return true
		}
	}
	return false
}

// Enforcer applies brand and platform constraints to generated captions.
type Enforcer struct {
	MinViableLen int
	MinAlwaysUse int
}

func NewEnforcer(minViableLen, minAlwaysUse int) *Enforcer {
	if minViableLen <= 0 {
		minViableLen = 20
	}
	if minAlwaysUse < 0 {
		minAlwaysUse = 0
	}
	return &Enforcer{MinViableLen: minViableLen, MinAlwaysUse: minAlwaysUse}
}

// Enforce validates and repairs a raw caption against the profile and
// platform. Repairs run in a fixed order: banned-word removal, length
// truncation, emoji capping. Checks that cannot be repaired in place mark
// the result for regeneration.
func (e *Enforcer) Enforce(raw string, profile *model.BrandVoiceProfile, platform model.Platform) EnforceResult {
	spec := platform.Spec()
	caption := strings.TrimSpace(raw)
	var violations []Violation

	caption, removed := removeBannedWords(caption, profile.LexiconNever)
	for _, word := range removed {
		// Removal leaves grammatical scars, so banned output still counts as
		// a hard violation even after repair.
		violations = append(violations, Violation{
			Rule:   "lexicon-never",
			Detail: fmt.Sprintf("caption contained banned word %q", word),
			Hard:   true,
		})
	}

	// Platform limits count characters, not bytes, so multi-byte captions
	// are measured in runes throughout.
	if utf8.RuneCountInString(caption) > spec.MaxChars {
		truncated := Truncate(caption, spec.MaxChars)
		violations = append(violations, Violation{
			Rule:     "max-length",
			Detail:   fmt.Sprintf("caption ran %d chars, platform cap is %d", utf8.RuneCountInString(caption), spec.MaxChars),
			Repaired: true,
		})
		caption = truncated
	}

	limit := emojiLimit(profile, spec)
	capped, dropped := capEmoji(caption, limit)
	if dropped > 0 {
		violations = append(violations, Violation{
			Rule:     "emoji-cap",
			Detail:   fmt.Sprintf("dropped %d emoji over the limit of %d", dropped, limit),
			Repaired: true,
		})
		caption = capped
	}

	if e.MinAlwaysUse > 0 && len(profile.LexiconAlways) > 0 {
		used := countAlwaysUse(caption, profile.LexiconAlways)
		if used < e.MinAlwaysUse {
			violations = append(violations, Violation{
				Rule:   "lexicon-always",
				Detail: fmt.Sprintf("caption used %d brand words, target is %d", used, e.MinAlwaysUse),
			})
		}
	}

	if utf8.RuneCountInString(caption) < e.MinViableLen {
		violations = append(violations, Violation{
			Rule:   "min-length",
			Detail: fmt.Sprintf("caption shrank to %d chars, minimum viable is %d", utf8.RuneCountInString(caption), e.MinViableLen),
			Hard:   true,
		})
	}

	return EnforceResult{Caption: caption, Violations: violations}
}

// removeBannedWords strips whole-word, case-insensitive matches and
// collapses the whitespace left behind.
func removeBannedWords(caption string, banned []string) (string, []string) {
	var removed []string
	for _, word := range banned {
		if word == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		if err != nil {
			continue
		}
		if re.MatchString(caption) {
			removed = append(removed, word)
			caption = re.ReplaceAllString(caption, "")
		}
	}
	if len(removed) > 0 {
		caption = strings.Join(strings.Fields(caption), " ")
	}
	return caption, removed
}

// Truncate cuts the caption to fit the limit, preferring a sentence
// boundary past 60% of the limit and falling back to a word boundary with a
// truncation marker. The limit counts runes, matching how platforms count
// characters.
func Truncate(caption string, limit int) string {
	runes := []rune(caption)
	if len(runes) <= limit {
		return caption
	}

	cut := runes[:limit]
	sentenceFloor := limit * 60 / 100

	best := -1
	for i, r := range cut {
		if (r == '.' || r == '!' || r == '?') && i >= sentenceFloor {
			best = i
		}
	}
	if best > 0 {
		return strings.TrimSpace(string(cut[:best+1]))
	}

	// No usable sentence end; cut at a word and mark it. The marker is one
	// rune, so it fits in the freed slot.
	withMarker := cut[:limit-1]
	lastSpace := -1
	for i, r := range withMarker {
		if r == ' ' {
			lastSpace = i
		}
	}
	if lastSpace > 0 {
		withMarker = withMarker[:lastSpace]
	}
	return strings.TrimSpace(string(withMarker)) + truncationMarker
}

// capEmoji keeps the first limit emoji and drops the rest, trimming from
// the end where decorative emoji pile up.
func capEmoji(caption string, limit int) (string, int) {
	emojis := gomoji.CollectAll(caption)
	if len(emojis) <= limit {
		return caption, 0
	}

	keep := limit
	var sb strings.Builder
	for _, r := range caption {
		if gomoji.ContainsEmoji(string(r)) {
			if keep > 0 {
				keep--
				sb.WriteRune(r)
			}
			continue
		}
		sb.WriteRune(r)
	}

	return strings.TrimSpace(strings.Join(strings.Fields(sb.String()), " ")), len(emojis) - limit
}

func countAlwaysUse(caption string, always []string) int {
	lower := strings.ToLower(caption)
	used := 0
	for _, word := range always {
		if word == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(word)) {
			used++
		}
	}
	return used
}
