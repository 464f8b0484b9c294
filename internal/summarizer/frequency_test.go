package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreview_PicksFrequentTopicSentences(t *testing.T) {
	text := "Solar panels convert sunlight into electricity. " +
		"The cafeteria closes early on Fridays. " +
		"Solar electricity output depends on panel orientation and sunlight hours. " +
		"Solar installations keep growing as panels get cheaper."

	p := NewFrequency(2)
	preview := p.Preview(text)

	assert.Contains(t, strings.ToLower(preview), "solar")
	assert.NotContains(t, preview, "cafeteria")
}

func TestPreview_KeepsDocumentOrder(t *testing.T) {
	text := "Gophers dig tunnels. Gophers eat roots. Gophers avoid snakes."
	preview := NewFrequency(3).Preview(text)
	assert.Equal(t, "Gophers dig tunnels. Gophers eat roots. Gophers avoid snakes.", preview)
}

func TestPreview_NoSentencePunctuation(t *testing.T) {
	assert.Equal(t, "just a fragment", NewFrequency(2).Preview("  just a fragment  "))
}

func TestPreview_EmptyText(t *testing.T) {
	assert.Equal(t, "", NewFrequency(2).Preview(""))
}

func TestNewFrequency_DefaultLength(t *testing.T) {
	text := "One. Two. Three. Four. Five. Six."
	preview := NewFrequency(0).Preview(text)
	assert.Len(t, strings.Split(preview, ". "), DefaultMaxSentences)
}
