package dns

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeResolver struct {
	records []*net.MX
	err     error
	delay   time.Duration
}

func (f fakeResolver) LookupMX(ctx context.Context, _ string) ([]*net.MX, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.records, f.err
}

func TestHasMX(t *testing.T) {
	tests := []struct {
		name     string
		resolver fakeResolver
		domain   string
		want     bool
	}{
		{"has records", fakeResolver{records: []*net.MX{{Host: "mx.example.com."}}}, "example.com", true},
		{"no records", fakeResolver{}, "example.com", false},
		{"nxdomain", fakeResolver{err: &net.DNSError{Err: "no such host", IsNotFound: true}}, "nowhere.example", false},
		{"lookup error, well-known", fakeResolver{err: errors.New("servfail")}, "gmail.com", true},
		{"lookup error, unknown", fakeResolver{err: errors.New("servfail")}, "tiny.example", false},
		{"empty domain", fakeResolver{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &MXValidator{resolver: tt.resolver, timeout: time.Second}
			assert.Equal(t, tt.want, v.HasMX(context.Background(), tt.domain))
		})
	}
}

func TestHasMX_TimeoutFallsBackToAllowList(t *testing.T) {
	slow := fakeResolver{records: []*net.MX{{Host: "mx."}}, delay: time.Second}
	v := &MXValidator{resolver: slow, timeout: 20 * time.Millisecond}

	assert.True(t, v.HasMX(context.Background(), "outlook.com"))
	assert.False(t, v.HasMX(context.Background(), "slow.example"))
}
