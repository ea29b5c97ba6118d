package identity

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRotator_EmptyPool(t *testing.T) {
	_, err := NewRotator(Pool{})
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestRotator_CyclesWholePool(t *testing.T) {
	pool := Pool{UserAgents: []string{"ua-a", "ua-b", "ua-c"}}
	r, err := NewRotator(pool)
	require.NoError(t, err)

	seen := make(map[string]int)
	for i := 0; i < 9; i++ {
		id := r.Next()
		seen[id.UserAgent]++
		assert.NotZero(t, id.Viewport.Width)
		assert.NotEmpty(t, id.Timezone)
		assert.Equal(t, "en-US", id.Locale)
	}
	for _, ua := range pool.UserAgents {
		assert.Equal(t, 3, seen[ua], "round robin should visit %s exactly 3 times in 9 calls", ua)
	}
}

func TestRotator_ConcurrentNext(t *testing.T) {
	r, err := NewRotator(Pool{UserAgents: []string{"ua-a", "ua-b", "ua-c", "ua-d"}})
	require.NoError(t, err)

	const callers, perCaller = 8, 100
	counts := make([]map[string]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen := make(map[string]int)
			for j := 0; j < perCaller; j++ {
				id := r.Next()
				require.True(t, strings.HasPrefix(id.UserAgent, "ua-"), "torn read: %q", id.UserAgent)
				seen[id.UserAgent]++
			}
			counts[i] = seen
		}(i)
	}
	wg.Wait()

	total := make(map[string]int)
	for _, seen := range counts {
		for ua, n := range seen {
			total[ua] += n
		}
	}
	// 800 calls over a pool of 4 means exactly 200 per agent.
	for _, n := range total {
		assert.Equal(t, 200, n)
	}
}

func TestRotator_Shuffled(t *testing.T) {
	r, err := NewRotator(Pool{UserAgents: []string{"ua-a", "ua-b", "ua-c"}})
	require.NoError(t, err)

	ids := r.Shuffled()
	require.Len(t, ids, 3)
	seen := make(map[string]bool)
	for _, id := range ids {
		seen[id.UserAgent] = true
	}
	assert.Len(t, seen, 3, "shuffle must keep every identity exactly once")
}

func TestRandomUserAgent(t *testing.T) {
	ua := RandomUserAgent()
	assert.True(t, strings.HasPrefix(ua, "Mozilla/5.0 ("))
	assert.Contains(t, ua, "Chrome/")
}
