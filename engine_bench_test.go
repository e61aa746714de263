package sessiongate

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sessiongate/sessiongate/revocation"
)

func BenchmarkVerifyMemory(b *testing.B) {
	e := newTestEngine(b, testConfig(b, nil))
	token := mustLogin(b, e)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Verify(context.Background(), token); err != nil {
			b.Fatalf("verify: %v", err)
		}
	}
}

func BenchmarkVerifyParallelMemory(b *testing.B) {
	e := newTestEngine(b, testConfig(b, nil))
	token := mustLogin(b, e)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := e.Verify(context.Background(), token); err != nil {
				b.Errorf("verify: %v", err)
				return
			}
		}
	})
}

func BenchmarkVerifyRedis(b *testing.B) {
	mr := miniredis.RunT(b)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b.Cleanup(func() { _ = client.Close() })

	cfg := testConfig(b, nil)
	cfg.Revocations = revocation.NewRedisStore(client)
	e := newTestEngine(b, cfg)
	token := mustLogin(b, e)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Verify(context.Background(), token); err != nil {
			b.Fatalf("verify: %v", err)
		}
	}
}

func BenchmarkLoginRevoke(b *testing.B) {
	e := newTestEngine(b, testConfig(b, nil))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		token := mustLogin(b, e)
		if err := e.Revoke(context.Background(), token); err != nil {
			b.Fatalf("revoke: %v", err)
		}
	}
}
