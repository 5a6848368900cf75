package pipeline

import (
	"regexp"
	"strings"

	"brewcast.app/captioner/internal/model"
)

var nonTagChars = regexp.MustCompile(`[^a-z0-9]+`)

// evergreenTags pad out the hashtag set when brand seeds and keyword tags
// come up short of the platform allowance.
var evergreenTags = []string{
	"coffee", "coffeelover", "cafelife", "espresso", "coffeetime",
}

// Hashtag normalizes a phrase into one hashtag: lowercased, non-alphanumeric
// runs removed, leading # added. Empty results mean the phrase had nothing
// usable in it.
func Hashtag(phrase string) string {
	lower := strings.ToLower(strings.TrimSpace(phrase))
	tag := nonTagChars.ReplaceAllString(lower, "")
	if tag == "" {
		return ""
	}
	return "#" + tag
}

// BuildHashtags assembles the hashtag set for a caption: brand seeds first,
// then keyword-derived tags, then evergreen padding, deduplicated and capped
// at the platform allowance.
func BuildHashtags(profile *model.BrandVoiceProfile, keyword string, platform model.Platform) []string {
	limit := platform.Spec().MaxHashtags
	if limit == 0 {
		return []string{}
	}

	seen := make(map[string]struct{})
	tags := make([]string, 0, limit)

	add := func(phrase string) {
		if len(tags) >= limit {
			return
		}
		tag := Hashtag(phrase)
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	for _, seed := range profile.HashtagSeeds {
		add(seed)
	}

	// The whole keyword as one tag, then its standalone words.
	add(keyword)
	for _, word := range strings.Fields(keyword) {
		if len(word) >= 4 {
			add(word)
		}
	}

	for _, tag := range evergreenTags {
		add(tag)
	}

	return tags
}
