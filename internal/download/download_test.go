package download

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seiggy/apm/internal/auth"
	"github.com/seiggy/apm/internal/hosts"
	"github.com/seiggy/apm/internal/refs"
)

func TestDisplayRef(t *testing.T) {
	fullCommit := "0123456789abcdef0123456789abcdef01234567"
	tests := []struct {
		name string
		in   ResolvedReference
		want string
	}{
		{
			name: "branch with commit",
			in:   ResolvedReference{Ref: "main", RefType: refs.RefBranch, ResolvedCommit: fullCommit},
			want: "main@01234567",
		},
		{
			name: "tag without commit",
			in:   ResolvedReference{Ref: "v1.0.0", RefType: refs.RefTag},
			want: "v1.0.0",
		},
		{
			name: "commit ref is not doubled",
			in:   ResolvedReference{Ref: "0123456", RefType: refs.RefCommit, ResolvedCommit: fullCommit},
			want: "0123456",
		},
		{
			name: "commit only",
			in:   ResolvedReference{ResolvedCommit: fullCommit},
			want: "01234567",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.DisplayRef())
		})
	}
}

func TestLockKeySerializesPerKey(t *testing.T) {
	d := New(hosts.NewPolicy(), auth.Env{})

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := d.lockKey("dev/tool")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, counter)
}

func TestDownloaderZeroValueAccessors(t *testing.T) {
	d := &Downloader{}
	assert.NotNil(t, d.policy())
	assert.NotNil(t, d.httpClient())
	assert.NotNil(t, d.logger())
}
