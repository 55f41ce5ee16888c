package engine

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/miradorstack/anomaly-timeline/internal/models"
)

// Result is a memoised aggregation. Tasks are shared between callers and must not be modified.
type Result struct {
	Fingerprint uint64
	Tasks       models.TaskBuckets
	Report      Report
}

// Memo re-invokes the aggregator only for inputs whose content fingerprint it has not seen.
type Memo struct {
	aggregator *Aggregator
	results    *lru.Cache[uint64, Result]
}

// NewMemo wraps aggregator with an LRU of the given size.
func NewMemo(aggregator *Aggregator, size int) (*Memo, error) {
	if aggregator == nil {
		return nil, fmt.Errorf("aggregator is required")
	}
	if size <= 0 {
		size = 16
	}
	results, err := lru.New[uint64, Result](size)
	if err != nil {
		return nil, fmt.Errorf("create memo cache: %w", err)
	}
	return &Memo{aggregator: aggregator, results: results}, nil
}

// Aggregate returns the aggregation of buckets and whether it was served from the memo.
func (m *Memo) Aggregate(buckets []models.DateBucket) (Result, bool) {
	fp := Fingerprint(buckets)
	if cached, ok := m.results.Get(fp); ok {
		return cached, true
	}
	tasks, report := m.aggregator.Aggregate(buckets)
	result := Result{Fingerprint: fp, Tasks: tasks, Report: report}
	m.results.Add(fp, result)
	return result, false
}

// Len reports how many distinct inputs are memoised.
func (m *Memo) Len() int { return m.results.Len() }

// Fingerprint hashes the content of buckets. Two inputs with equal dates, record order and
// record fields hash equally regardless of slice identity.
func Fingerprint(buckets []models.DateBucket) uint64 {
	d := xxhash.New()
	buf := make([]byte, 0, 256)

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(buckets)))
	for _, bucket := range buckets {
		buf = appendString(buf, bucket.Date)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(bucket.Anomalies)))
		for _, r := range bucket.Anomalies {
			buf = appendString(buf, r.ID)
			buf = appendString(buf, r.Camera.ID)
			buf = appendString(buf, r.Camera.Name)
			buf = appendString(buf, r.Camera.Location)
			buf = binary.LittleEndian.AppendUint64(buf, uint64(r.Timestamp.UnixNano()))
			buf = appendString(buf, r.Duration)
			buf = appendString(buf, r.Type)
			buf = appendString(buf, r.Status)
			buf = appendString(buf, r.Description)
			_, _ = d.Write(buf)
			buf = buf[:0]
		}
	}
	_, _ = d.Write(buf)
	return d.Sum64()
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}
