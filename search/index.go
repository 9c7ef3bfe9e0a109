// Package search maintains a full-text index of persisted group messages so
// clients can search chat history from the event surface.
package search

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"hobbyhub/domain"
)

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// NewIndex opens (or creates) a Bluge index at the given path.
func NewIndex(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

// NewMemoryIndex builds an in-memory index, used in tests.
func NewMemoryIndex(log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// Add indexes the searchable text of a message: the content for text messages
// and the question for polls. System notices and image URLs are skipped.
func (i *Index) Add(message domain.Message) error {
	var text string
	switch message.Kind {
	case domain.KindText:
		text = message.Content
	case domain.KindPoll:
		text = message.PollQuestion
	default:
		return nil
	}

	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewKeywordField("group", message.Group)).
		AddField(bluge.NewTextField("text", text))
	return i.writer.Update(doc.ID(), doc)
}

// Search returns the ids of messages in the group matching the query terms,
// best match first.
func (i *Index) Search(ctx context.Context, group, terms string, limit int) ([]uuid.UUID, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Closing index reader failed", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(group).SetField("group")).
		AddMust(bluge.NewMatchQuery(terms).SetField("text"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				if id, err := uuid.Parse(string(value)); err == nil {
					ids = append(ids, id)
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}
