package redis

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-progression-service/internal/domain"
)

// CatalogLoader fetches question content from the backing store.
type CatalogLoader interface {
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	ListActiveQuestions(ctx context.Context) ([]domain.Question, error)
}

// CatalogCache keeps questions in Redis in front of a loader.
// Layout:
//
//	HSET question:{id} number/text/options/correct/difficulty/active
//	ZADD questions:active {number} {id}
//
// The sorted set doubles as the active index: count is its cardinality and
// by-number lookups are score range queries. Entries expire with TTL plus
// jitter, so deactivations become visible within one TTL.
type CatalogCache struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalogCache(client *redis.Client, loader CatalogLoader, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

const activeIndexKey = "questions:active"

func questionKey(id int64) string {
	return "question:" + strconv.FormatInt(id, 10)
}

func (c *CatalogCache) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	fields, err := c.client.HGetAll(ctx, questionKey(id)).Result()
	if err == nil && len(fields) > 0 {
		return questionFromHash(id, fields)
	}

	result, err, _ := c.sf.Do(questionKey(id), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := c.client.HGetAll(ctx, questionKey(id)).Result()
		if err == nil && len(fields) > 0 {
			return questionFromHash(id, fields)
		}

		question, err := c.loader.GetQuestion(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}
		c.storeQuestion(ctx, c.client.Pipeline(), question, false)
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *CatalogCache) CountActiveQuestions(ctx context.Context) (int, error) {
	count, err := c.client.ZCard(ctx, activeIndexKey).Result()
	if err == nil && count > 0 {
		return int(count), nil
	}
	if err := c.fillActiveIndex(ctx); err != nil {
		return 0, err
	}
	count, err = c.client.ZCard(ctx, activeIndexKey).Result()
	return int(count), err
}

func (c *CatalogCache) FindActiveQuestionByNumber(ctx context.Context, number int, match domain.NumberMatch) (domain.Question, error) {
	if count, err := c.client.ZCard(ctx, activeIndexKey).Result(); err != nil || count == 0 {
		if err := c.fillActiveIndex(ctx); err != nil {
			return domain.Question{}, err
		}
	}

	rng := &redis.ZRangeBy{
		Min:   strconv.Itoa(number),
		Max:   strconv.Itoa(number),
		Count: 1,
	}
	if match == domain.MatchGTE {
		rng.Max = "+inf"
	}
	ids, err := c.client.ZRangeByScore(ctx, activeIndexKey, rng).Result()
	if err != nil {
		return domain.Question{}, fmt.Errorf("query active index: %w", err)
	}
	if len(ids) == 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	id, err := strconv.ParseInt(ids[0], 10, 64)
	if err != nil {
		return domain.Question{}, fmt.Errorf("parse cached question id: %w", err)
	}
	return c.GetQuestion(ctx, id)
}

// fillActiveIndex loads the whole active set and caches both the index and
// the per-question hashes in one pipeline.
func (c *CatalogCache) fillActiveIndex(ctx context.Context) error {
	_, err, _ := c.sf.Do(activeIndexKey, func() (interface{}, error) {
		if count, err := c.client.ZCard(ctx, activeIndexKey).Result(); err == nil && count > 0 {
			return nil, nil
		}

		questions, err := c.loader.ListActiveQuestions(ctx)
		if err != nil {
			return nil, err
		}

		pipe := c.client.Pipeline()
		for _, q := range questions {
			c.storeQuestion(ctx, pipe, q, true)
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, activeIndexKey, ttl)
		}
		_, _ = pipe.Exec(ctx)
		return nil, nil
	})
	return err
}

func (c *CatalogCache) storeQuestion(ctx context.Context, pipe redis.Pipeliner, q domain.Question, indexed bool) {
	key := questionKey(q.ID)
	pipe.HSet(ctx, key,
		"number", q.Number,
		"text", q.Text,
		"option_a", q.OptionA,
		"option_b", q.OptionB,
		"option_c", q.OptionC,
		"option_d", q.OptionD,
		"correct", q.CorrectOption,
		"difficulty", string(q.Difficulty),
		"active", strconv.FormatBool(q.IsActive),
	)
	if ttl := c.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if indexed {
		pipe.ZAdd(ctx, activeIndexKey, redis.Z{Score: float64(q.Number), Member: strconv.FormatInt(q.ID, 10)})
	} else {
		_, _ = pipe.Exec(ctx)
	}
}

func questionFromHash(id int64, fields map[string]string) (domain.Question, error) {
	number, err := strconv.Atoi(fields["number"])
	if err != nil {
		return domain.Question{}, fmt.Errorf("parse cached question number: %w", err)
	}
	active, _ := strconv.ParseBool(fields["active"])
	return domain.Question{
		ID:            id,
		Number:        number,
		Text:          fields["text"],
		OptionA:       fields["option_a"],
		OptionB:       fields["option_b"],
		OptionC:       fields["option_c"],
		OptionD:       fields["option_d"],
		CorrectOption: fields["correct"],
		Difficulty:    domain.Difficulty(fields["difficulty"]),
		IsActive:      active,
	}, nil
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
