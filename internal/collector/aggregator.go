package collector

// Result 单个订阅源的拉取结果，Err 非空时 Entries 必为空
type Result struct {
	Source  string
	Entries []Entry
	Err     error
}

// Partition 按原顺序拆分成功与失败的结果
func Partition(results []Result) (ok, failed []Result) {
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
			continue
		}
		ok = append(ok, r)
	}
	return ok, failed
}

// Aggregate 按顺序拼接各批次条目，不做任何过滤或去重
func Aggregate(batches ...[]Entry) []Entry {
	n := 0
	for _, b := range batches {
		n += len(b)
	}
	out := make([]Entry, 0, n)
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}
