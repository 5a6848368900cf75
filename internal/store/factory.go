package store

import (
	"brewcast.app/captioner/core/db"
	"github.com/redis/go-redis/v9"
)

type Stores struct {
	db      *db.DB
	history HistoryStore
}

// NewStores wires the typed stores over one connection pool. A nil redis
// client degrades the history store to the in-process implementation.
func NewStores(database *db.DB, redisClient *redis.Client) *Stores {
	history := HistoryStore(NewMemoryHistory())
	if redisClient != nil {
		history = NewRedisHistory(redisClient)
	}
	return &Stores{db: database, history: history}
}

func (s *Stores) Documents() DocumentStore {
	return newDocumentStore(s.db)
}

func (s *Stores) Brands() BrandStore {
	return newBrandStore(s.db)
}

func (s *Stores) Captions() CaptionStore {
	return newCaptionStore(s.db)
}

func (s *Stores) Keywords() KeywordStore {
	return newKeywordStore(s.db)
}

func (s *Stores) Usage() UsageStore {
	return newUsageStore(s.db)
}

func (s *Stores) History() HistoryStore {
	return s.history
}
