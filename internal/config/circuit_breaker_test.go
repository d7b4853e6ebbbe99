package config

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker"
)

func TestNewCircuitBreaker_TripsAfterThreeFailures(t *testing.T) {
	cb := NewCircuitBreaker("PostgreSQL")
	boom := errors.New("connection refused")

	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (interface{}, error) { return nil, boom })
	}
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", cb.State())
	}

	_, err := cb.Execute(func() (interface{}, error) { return nil, nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
}

func TestNewCircuitBreaker_BenignErrorsDoNotTrip(t *testing.T) {
	notFound := errors.New("not found")
	cb := NewCircuitBreaker("PostgreSQL", notFound)

	for i := 0; i < 10; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, notFound })
		if !errors.Is(err, notFound) {
			t.Fatalf("benign error should be returned unchanged, got %v", err)
		}
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected closed breaker, got %s", cb.State())
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example, ,https://b.example ")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", got)
	}
}

func TestRedisEnabled(t *testing.T) {
	tests := []struct {
		cfg  Config
		want bool
	}{
		{Config{StoreDriver: DriverPostgres, RedisAddress: "localhost:6379"}, true},
		{Config{StoreDriver: DriverMemory, RedisAddress: "localhost:6379"}, false},
		{Config{StoreDriver: DriverMemory, RedisAddress: "localhost:6379", ChangeFeed: FeedRedis}, true},
		{Config{StoreDriver: DriverPostgres}, false},
	}
	for _, tt := range tests {
		if got := tt.cfg.RedisEnabled(); got != tt.want {
			t.Errorf("%+v: expected %v, got %v", tt.cfg, tt.want, got)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"redis feed with address", Config{ChangeFeed: FeedRedis, RedisAddress: "localhost:6379"}, false},
		{"redis feed without address", Config{ChangeFeed: FeedRedis}, true},
		{"postgres feed without redis", Config{ChangeFeed: DriverPostgres}, false},
		{"memory store and feed", Config{StoreDriver: DriverMemory, ChangeFeed: DriverMemory}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
