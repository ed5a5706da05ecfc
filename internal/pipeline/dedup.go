package pipeline

import "github.com/yourorg/popularity-vision/internal/types"

// Dedupe collapses the concatenated adapter output to one record per
// natural key. Later records replace earlier ones (last-write-wins), which
// matches the store's upsert semantics; output keeps the position of each
// key's first occurrence so merge order stays deterministic. The returned
// count is the number of records collapsed away.
func Dedupe(records []types.WorkflowRecord) ([]types.WorkflowRecord, int) {
	if len(records) == 0 {
		return nil, 0
	}
	out := make([]types.WorkflowRecord, 0, len(records))
	index := make(map[string]int, len(records))
	duplicates := 0
	for _, rec := range records {
		k := rec.Key()
		if i, ok := index[k]; ok {
			out[i] = rec
			duplicates++
			continue
		}
		index[k] = len(out)
		out = append(out, rec)
	}
	return out, duplicates
}
