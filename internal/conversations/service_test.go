package conversations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitleShortMessage(t *testing.T) {
	assert.Equal(t, "Привет", DeriveTitle("Привет"))
}

func TestDeriveTitleTakesFirstSixWords(t *testing.T) {
	title := DeriveTitle("What is the capital of France and why?")
	assert.Equal(t, "What is the capital of France", title)
}

func TestDeriveTitleCollapsesWhitespace(t *testing.T) {
	title := DeriveTitle("  раз \t два\nтри  ")
	assert.Equal(t, "раз два три", title)
}

func TestDeriveTitleTruncatesLongWords(t *testing.T) {
	long := strings.Repeat("а", 80)
	title := DeriveTitle(long)
	assert.Equal(t, strings.Repeat("а", 50)+"...", title)
}

func TestDeriveTitleEmpty(t *testing.T) {
	assert.Equal(t, "", DeriveTitle("   "))
}
