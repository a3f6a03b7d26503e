package openai

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
)

func TestClassify_SupportedKind(t *testing.T) {
	srv, last := fakeCompletions(t, "delivery_note")
	c := NewClassifier(testClient(t, srv))

	kind, err := c.Classify(context.Background(), "送货单 No. 42")
	require.NoError(t, err)
	assert.Equal(t, domain.KindDeliveryNote, kind)
	assert.Equal(t, "test-model", last.Model)
}

func TestClassify_AnswerNormalised(t *testing.T) {
	srv, _ := fakeCompletions(t, "  Contract\n")
	c := NewClassifier(testClient(t, srv))

	kind, err := c.Classify(context.Background(), "purchase agreement")
	require.NoError(t, err)
	assert.Equal(t, domain.KindContract, kind)
}

func TestClassify_UnknownAnswerIsUnclassified(t *testing.T) {
	srv, _ := fakeCompletions(t, "invoice")
	c := NewClassifier(testClient(t, srv))

	kind, err := c.Classify(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, domain.KindUnclassified, kind)
}

func TestClassify_TruncatesLongText(t *testing.T) {
	srv, last := fakeCompletions(t, "receipt")
	c := NewClassifier(testClient(t, srv))

	_, err := c.Classify(context.Background(), strings.Repeat("x", 3*classifyTextLimit))
	require.NoError(t, err)

	content, ok := last.Messages[0].Content.(string)
	require.True(t, ok)
	assert.Less(t, len(content), 2*classifyTextLimit)
}
