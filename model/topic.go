package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ContentType is the encoding of messages published to a topic.
type ContentType string

const (
	// ContentTypeJSON marks topics carrying JSON payloads.
	ContentTypeJSON ContentType = "JSON"

	// ContentTypeAvro marks topics carrying Avro payloads.
	ContentTypeAvro ContentType = "AVRO"
)

// LogicalTopic is a topic as known to publishers and subscribers, independent of how
// many physical logs back it.
//
// A JSON topic is backed by one log named after the topic. An Avro topic is backed by a
// log with the "_avro" suffix. While a JSON topic is being migrated to Avro
// (MigratedFromJSON), both logs back it and both must be rewound together.
type LogicalTopic struct {
	ID               int64       `json:"id" db:"id"`
	Name             string      `json:"name" db:"name"`                           // Qualified topic name (e.g. "pl.allegro.orders")
	ContentType      ContentType `json:"contentType" db:"content_type"`            // Current encoding
	MigratedFromJSON bool        `json:"migratedFromJson" db:"migrated_from_json"` // Old JSON log still holds messages
	CreatedAt        time.Time   `json:"createdAt" db:"created_at"`
}

// TableName returns the database table name for LogicalTopic.
func (t LogicalTopic) TableName() string {
	return tablePrefix + "topic"
}

// NewLogicalTopic creates a topic with the given encoding.
func NewLogicalTopic(name string, contentType ContentType) LogicalTopic {
	return LogicalTopic{
		ID:          0,
		Name:        name,
		ContentType: contentType,
		CreatedAt:   time.Now(),
	}
}

// MigrateToAvro switches a JSON topic to Avro while keeping the JSON log as a backing
// log. Topics that already are Avro are left untouched.
func (t *LogicalTopic) MigrateToAvro() {
	if t.ContentType == ContentTypeAvro {
		return
	}
	t.ContentType = ContentTypeAvro
	t.MigratedFromJSON = true
}

// Validate implements validation.Validatable.
func (t LogicalTopic) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required, validation.Length(1, 249)),
		validation.Field(&t.ContentType, validation.Required, validation.In(ContentTypeJSON, ContentTypeAvro)),
	)
}
