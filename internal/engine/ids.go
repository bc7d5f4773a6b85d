package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// IDGenerator issues order identifiers of the form P<yyyyMMddHHmmss>-<node>-<seq>.
// seq is a process-wide counter, so IDs never repeat within a process; node
// distinguishes processes started independently.
type IDGenerator struct {
	node string
	seq  atomic.Uint64
	now  func() time.Time
}

// NewIDGenerator creates a generator with a random node tag.
func NewIDGenerator() *IDGenerator {
	node := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return &IDGenerator{node: node, now: time.Now}
}

// Next returns a fresh order identifier.
func (g *IDGenerator) Next() string {
	n := g.seq.Add(1)
	return fmt.Sprintf("P%s-%s-%06d", g.now().Format("20060102150405"), g.node, n)
}
