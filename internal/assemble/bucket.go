package assemble

import (
	"time"

	"github.com/animus-labs/smsc-go/internal/domain"
	"github.com/animus-labs/smsc-go/internal/simerr"
)

const day = 24 * time.Hour

// Bucket splits time-sorted snapshots into consecutive day-sized groups.
// The step is the gap between the first two snapshots; it must divide a
// day and every gap must equal it. A single snapshot forms one group.
func Bucket(snaps []domain.OutputSnapshot) ([][]domain.OutputSnapshot, error) {
	if len(snaps) == 0 {
		return nil, nil
	}
	if len(snaps) == 1 {
		return [][]domain.OutputSnapshot{snaps}, nil
	}
	sorted := make([]domain.OutputSnapshot, len(snaps))
	copy(sorted, snaps)
	sortSnapshots(sorted)

	step := sorted[1].Instant.Sub(sorted[0].Instant)
	if step <= 0 {
		return nil, simerr.Engine("bucket", "duplicate instant %s", sorted[0].Instant.Format(time.RFC3339))
	}
	if day%step != 0 {
		return nil, simerr.Engine("bucket", "output step %s does not divide a day", step)
	}
	for i := 2; i < len(sorted); i++ {
		if gap := sorted[i].Instant.Sub(sorted[i-1].Instant); gap != step {
			return nil, simerr.Engine("bucket", "irregular output cadence: %s after %s, expected %s",
				gap, sorted[i-1].Instant.Format(time.RFC3339), step)
		}
	}

	perDay := int(day / step)
	groups := make([][]domain.OutputSnapshot, 0, (len(sorted)+perDay-1)/perDay)
	for i := 0; i < len(sorted); i += perDay {
		groups = append(groups, sorted[i:min(i+perDay, len(sorted))])
	}
	return groups, nil
}
