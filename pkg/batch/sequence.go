package batch

import (
	"fmt"
	"strconv"
	"time"
)

// SequenceGenerator produces the strictly increasing sequence numbers the
// gate uses to order messages within a table.
type SequenceGenerator struct {
	fill int
	now  func() time.Time
}

// NewSequenceGenerator creates a generator sized for the given record limit.
func NewSequenceGenerator(maxRecords int) *SequenceGenerator {
	return &SequenceGenerator{
		// an extra order of magnitude because a buffer can briefly hold
		// more than the record limit
		fill: len(strconv.Itoa(10 * maxRecords)),
		now:  time.Now,
	}
}

// Generate builds a sequence from the current time in millis with a
// zero-padded message number appended.
func (g *SequenceGenerator) Generate(messageNum int) int64 {
	base := strconv.FormatInt(g.now().UnixMilli(), 10)
	suffix := fmt.Sprintf("%0*d", g.fill, messageNum)

	seq, err := strconv.ParseInt(base+suffix, 10, 64)
	if err != nil {
		// Only reachable if the pad width plus millis overflow int64;
		// the record-limit validation keeps the width in range.
		panic(fmt.Sprintf("sequence overflow: %s%s", base, suffix))
	}
	return seq
}
