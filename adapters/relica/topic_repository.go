package relica

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coregx/relica"

	"github.com/coregx/retransmit"
	"github.com/coregx/retransmit/model"
)

// TopicRepository implements retransmit.TopicRepository using Relica.
type TopicRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewTopicRepository creates a new TopicRepository with default table prefix.
func NewTopicRepository(sqlDB *sql.DB, driverName string) *TopicRepository {
	return NewTopicRepositoryWithPrefix(sqlDB, driverName, retransmit.DefaultTablePrefix)
}

// NewTopicRepositoryWithPrefix creates a new TopicRepository with custom table prefix.
func NewTopicRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *TopicRepository {
	return &TopicRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *TopicRepository) tableName() string {
	return r.tablePrefix + "topic"
}

// Save creates or updates a topic.
func (r *TopicRepository) Save(ctx context.Context, m model.LogicalTopic) (model.LogicalTopic, error) {
	if err := m.Validate(); err != nil {
		return m, retransmit.NewErrorWithCause(retransmit.ErrCodeValidation, "invalid topic", err)
	}

	if m.ID == 0 {
		// Insert using Model() API
		err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Insert()
		if err != nil {
			return m, retransmit.NewErrorWithCause(retransmit.ErrCodeDatabase, "failed to insert topic", err)
		}
		return m, nil
	}

	// Update using Model() API
	err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Update()
	if err != nil {
		return m, retransmit.NewErrorWithCause(retransmit.ErrCodeDatabase, "failed to update topic", err)
	}
	return m, nil
}

// GetByName retrieves a topic by its unique qualified name.
func (r *TopicRepository) GetByName(ctx context.Context, name string) (model.LogicalTopic, error) {
	var topic model.LogicalTopic
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("name = ?", name).One(&topic)
	if errors.Is(err, sql.ErrNoRows) {
		return topic, retransmit.ErrNoData
	}
	if err != nil {
		return topic, retransmit.NewErrorWithCause(retransmit.ErrCodeDatabase, "failed to find topic by name", err)
	}
	return topic, nil
}
