package infra

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"bff-gateway/middleware/ratelimit/domain"
)

// incrWindowScript incrementa e, SOMENTE no primeiro hit da janela, define a
// expiração, tudo em uma única operação atômica no servidor.
//
// Fazer INCR e EXPIRE em dois round trips abre duas corridas clássicas:
// (a) dois "primeiros hits" concorrentes reiniciando uma expiração que já
// estava correndo, e (b) um crash entre as duas chamadas deixando uma chave
// sem expiração para sempre. O script elimina as duas.
var incrWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisCounterStore implementa domain.CounterStore sobre redis.
//
// Cada Incr é um único round trip. O timeout de operação é curto e
// independente do deadline da requisição: uma lentidão do redis degrada para
// fail-open na camada de aplicação em vez de segurar a requisição.
type RedisCounterStore struct {
	rdb       *redis.Client
	prefix    string
	opTimeout time.Duration
}

type RedisCounterOption func(*RedisCounterStore)

func WithCounterPrefix(prefix string) RedisCounterOption {
	return func(s *RedisCounterStore) { s.prefix = prefix }
}

func WithCounterOpTimeout(d time.Duration) RedisCounterOption {
	return func(s *RedisCounterStore) { s.opTimeout = d }
}

func NewRedisCounterStore(rdb *redis.Client, opts ...RedisCounterOption) *RedisCounterStore {
	s := &RedisCounterStore{
		rdb:       rdb,
		prefix:    "ratelimit",
		opTimeout: 150 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Incr implementa domain.CounterStore.
func (s *RedisCounterStore) Incr(ctx context.Context, key domain.Key, window time.Duration) (int64, error) {
	if s.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opTimeout)
		defer cancel()
	}

	seconds := int64(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	return incrWindowScript.Run(ctx, s.rdb, []string{s.prefix + ":" + string(key)}, seconds).Int64()
}
