package sessioncache

import (
	"sort"
	"time"

	"github.com/mealmind/memtier/pkg/storage"
)

// headScore is the relevance score of the newest buffered message. Every
// existing score decays on each update, so scores fall off exponentially
// with age in turns.
const headScore = 1.0

// decayAndInsert applies one update step to the ranked message buffer:
// every existing score is multiplied by decay, the new message enters at
// the head with the maximum score, and the buffer is truncated to max
// entries, dropping the lowest-scored first.
func decayAndInsert(buffer []storage.RankedMessage, role, content string, decay float64, max int, now time.Time) []storage.RankedMessage {
	next := make([]storage.RankedMessage, 0, len(buffer)+1)
	next = append(next, storage.RankedMessage{
		Role:    role,
		Content: content,
		Score:   headScore,
		AddedAt: now,
	})

	for _, m := range buffer {
		m.Score *= decay
		next = append(next, m)
	}

	sort.SliceStable(next, func(i, j int) bool {
		return next[i].Score > next[j].Score
	})

	if len(next) > max {
		next = next[:max]
	}

	return next
}
