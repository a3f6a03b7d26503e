package openai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
)

func TestExtract_DatesAndMaterials(t *testing.T) {
	answer := `{
		"dates": {"delivery": "2023年4月1日"},
		"materials": [
			{"name": "螺纹钢", "spec": "HRB400 Φ12", "quantity": 100, "unit": "t", "reference": "B-7"},
			{"name": "水泥", "spec": "", "quantity": 50.5, "unit": "袋", "reference": ""}
		]
	}`
	srv, _ := fakeCompletions(t, answer)
	e := NewExtractor(testClient(t, srv))

	record, err := e.Extract(context.Background(), "doc text", domain.KindDeliveryNote)
	require.NoError(t, err)

	assert.Equal(t, domain.KindDeliveryNote, record.Kind)
	require.Contains(t, record.Dates, domain.DateDelivery)
	assert.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), record.Dates[domain.DateDelivery])

	require.Len(t, record.Materials, 2)
	assert.Equal(t, "螺纹钢", record.Materials[0].Name)
	assert.Equal(t, "HRB400 Φ12", record.Materials[0].Spec)
	assert.Equal(t, 100.0, record.Materials[0].Quantity)
	assert.Equal(t, "t", record.Materials[0].Unit)
	assert.Equal(t, "B-7", record.Materials[0].Reference)
}

func TestExtract_UnparseableDateDropped(t *testing.T) {
	answer := `{"dates": {"signing": "sometime in spring"}, "materials": []}`
	srv, _ := fakeCompletions(t, answer)
	e := NewExtractor(testClient(t, srv))

	record, err := e.Extract(context.Background(), "doc text", domain.KindContract)
	require.NoError(t, err)
	assert.Empty(t, record.Dates)
}

func TestExtract_UnparseableAnswer(t *testing.T) {
	srv, _ := fakeCompletions(t, "no structured data here")
	e := NewExtractor(testClient(t, srv))

	_, err := e.Extract(context.Background(), "doc text", domain.KindReceipt)
	assert.ErrorIs(t, err, domain.ErrDataUnparseable)
}

func TestExtract_UnsupportedKind(t *testing.T) {
	srv, _ := fakeCompletions(t, "{}")
	e := NewExtractor(testClient(t, srv))

	_, err := e.Extract(context.Background(), "doc text", domain.KindUnclassified)
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
}
