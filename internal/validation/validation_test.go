package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitle(t *testing.T) {
	assert.NoError(t, Title("a"))
	assert.NoError(t, Title(strings.Repeat("a", MaxTitleLen)))
	assert.Error(t, Title(""))
	assert.Error(t, Title(strings.Repeat("a", MaxTitleLen+1)))
	assert.Error(t, Title("bad\ttitle"))
	assert.NoError(t, Title("spaces are fine"))
}

func TestDescriptionAcceptsLongFreeText(t *testing.T) {
	long := strings.Repeat("x", MinDescriptionCap+500)
	assert.NoError(t, Description(long))
	assert.NoError(t, Description("line one\nline two\ttabbed"))
}

func TestPriority(t *testing.T) {
	assert.NoError(t, Priority(0))
	assert.NoError(t, Priority(4))
	assert.Error(t, Priority(-1))
	assert.Error(t, Priority(5))
}

func TestLabel(t *testing.T) {
	assert.NoError(t, Label("bug"))
	assert.Error(t, Label(""))
	assert.Error(t, Label("   "))
	assert.Error(t, Label("a,b"))
	assert.Error(t, Label(strings.Repeat("a", MaxLabelLen+1)))
}

func TestNormalizeLabelsDedupesPreservingOrder(t *testing.T) {
	out, err := NormalizeLabels([]string{" bug ", "ui", "bug", "", "  "})
	require.NoError(t, err)
	assert.Equal(t, []string{"bug", "ui"}, out)
}

func TestNormalizeLabelsRejectsInvalid(t *testing.T) {
	_, err := NormalizeLabels([]string{"a,b"})
	assert.Error(t, err)
}
