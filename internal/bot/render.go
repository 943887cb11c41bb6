package bot

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/SahilKashid/FlashcardLM/pkg/models"
)

var clozePattern = regexp.MustCompile(`\{\{c(\d+)::([^}]*)\}\}`)

// RenderClozeFront formats a cloze text for the question side of the card
// with the given deletion index: the matching spans become blanks, every
// other span shows its answer text.
func RenderClozeFront(text string, index int) string {
	return clozePattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := clozePattern.FindStringSubmatch(match)
		if groups[1] == fmt.Sprintf("%d", index) {
			return "[...]"
		}
		return groups[2]
	})
}

// RenderClozeBack formats a cloze text for the answer side: every span
// shows its text, the spans for the asked index are bracketed so the
// learner can spot what was hidden.
func RenderClozeBack(text string, index int) string {
	return clozePattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := clozePattern.FindStringSubmatch(match)
		if groups[1] == fmt.Sprintf("%d", index) {
			return "[" + groups[2] + "]"
		}
		return groups[2]
	})
}

// ClozeIndexes returns the distinct deletion indexes found in a cloze
// text, ascending. Each index becomes one physical card.
func ClozeIndexes(text string) []int {
	seen := make(map[int]bool)
	var indexes []int
	for _, groups := range clozePattern.FindAllStringSubmatch(text, -1) {
		var index int
		fmt.Sscanf(groups[1], "%d", &index)
		if index > 0 && !seen[index] {
			seen[index] = true
			indexes = append(indexes, index)
		}
	}
	sort.Ints(indexes)
	return indexes
}

// renderFront returns the question side of any card variant
func renderFront(card models.Card) string {
	switch card.Type {
	case models.CardTypeCloze:
		return RenderClozeFront(card.ClozeText, card.ClozeIndex)
	case models.CardTypeImageOcclusion:
		var sb strings.Builder
		sb.WriteString("🖼 " + card.ImagePath)
		sb.WriteString(fmt.Sprintf("\n%d masked regions — reveal them one by one or all at once.", len(card.Occlusions)))
		return sb.String()
	default:
		return card.Front
	}
}

// renderBack returns the answer side of any card variant
func renderBack(card models.Card) string {
	switch card.Type {
	case models.CardTypeCloze:
		return RenderClozeBack(card.ClozeText, card.ClozeIndex)
	case models.CardTypeImageOcclusion:
		var sb strings.Builder
		sb.WriteString("🖼 " + card.ImagePath)
		for _, rect := range card.Occlusions {
			label := rect.Label
			if label == "" {
				label = fmt.Sprintf("region %d", rect.ID)
			}
			sb.WriteString("\n• " + label)
		}
		return sb.String()
	default:
		return card.Back
	}
}
