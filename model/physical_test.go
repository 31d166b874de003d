package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesMapper_ToPhysical(t *testing.T) {
	migrated := NewLogicalTopic("pl.allegro.orders", ContentTypeJSON)
	migrated.MigrateToAvro()

	tests := []struct {
		name      string
		namespace string
		topic     LogicalTopic
		expected  []string
		dual      bool
	}{
		{
			name:     "json topic is a single log",
			topic:    NewLogicalTopic("pl.allegro.orders", ContentTypeJSON),
			expected: []string{"pl.allegro.orders"},
		},
		{
			name:     "avro topic uses suffixed log",
			topic:    NewLogicalTopic("pl.allegro.orders", ContentTypeAvro),
			expected: []string{"pl.allegro.orders_avro"},
		},
		{
			name:     "migrated topic is backed by both logs",
			topic:    migrated,
			expected: []string{"pl.allegro.orders", "pl.allegro.orders_avro"},
			dual:     true,
		},
		{
			name:      "namespace is prepended",
			namespace: "prod",
			topic:     migrated,
			expected:  []string{"prod_pl.allegro.orders", "prod_pl.allegro.orders_avro"},
			dual:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			physical, err := NewNamesMapper(tt.namespace).ToPhysical(tt.topic)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, physical.Names())
			assert.Equal(t, tt.dual, physical.IsDual())
		})
	}
}

func TestNamesMapper_UnknownContentType(t *testing.T) {
	_, err := NewNamesMapper("").ToPhysical(LogicalTopic{Name: "x", ContentType: "XML"})
	assert.ErrorIs(t, err, ErrUnknownContentType)
}
