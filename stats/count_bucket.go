package stats

// CountBuckets
//
// 用來快速定位複製數 -> DistReport 位置 O(1)
//
// 請勿修改預設值
//   - 複製數區間: [0], [1], [2], [3,5), [5,10), [10,20), [20,+inf)
var CountBuckets *CountBucket = newCountBucket(
	[]int{0, 1, 2, 3, 5, 10, 20},
	[]string{"[0]", "[1]", "[2]", "[3,5)", "[5,10)", "[10,20)", "[20,+inf)"},
)

type CountBucket struct {
	bounds []int
	labels []string
	lut    []int // lut[count] = idx，count < len(lut)
	maxIdx int
}

func newCountBucket(bounds []int, labels []string) *CountBucket {
	last := bounds[len(bounds)-1]
	lut := make([]int, last)
	idx := 0
	for i := range last {
		for idx+1 < len(bounds) && i >= bounds[idx+1] {
			idx++
		}
		lut[i] = idx
	}
	return &CountBucket{
		bounds: bounds,
		labels: labels,
		lut:    lut,
		maxIdx: len(bounds) - 1,
	}
}

// Labels 區間標籤
func (b *CountBucket) Labels() []string {
	out := make([]string, len(b.labels))
	copy(out, b.labels)
	return out
}

func (b *CountBucket) Len() int { return len(b.labels) }

// Index 複製數所屬的區間索引
func (b *CountBucket) Index(count int) int {
	if count < 0 {
		return 0
	}
	if count >= len(b.lut) {
		return b.maxIdx
	}
	return b.lut[count]
}
