package stats

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// Report 重抽樣統計報告
type Report struct {
	Summary   *SummaryReport   `json:"Summary"`
	Particles []ParticleReport `json:"Particles,omitempty"`
	Dist      *DistReport      `json:"Dist"`
	isDone    bool
}

// SummaryReport 整體統計
//
// Recorder 只填入累計值（Generations, Draws, Sorted, MaxDeviation, ZeroWeightHits 等），
// 其餘欄位在 Done 時計算。
type SummaryReport struct {
	Name           string  `json:"Name"`
	Algorithm      string  `json:"Algorithm"`
	Particles      int     `json:"Particles"`
	Generations    int     `json:"Generations"`
	Draws          int     `json:"Draws"`
	DrawsPerGen    float64 `json:"DrawsPerGen"`
	ESS            float64 `json:"ESS"`
	Sorted         int     `json:"Sorted"` // 輸出非遞減的世代數
	SortedRatio    float64 `json:"SortedRatio"`
	SortedCI       CI      `json:"SortedCI"`
	MaxDeviation   float64 `json:"MaxDeviation"` // 單一世代 |count - N·w| 的最大值
	MeanVariance   float64 `json:"MeanVariance"` // 各粒子複製數變異數的平均
	ChiSquare      float64 `json:"ChiSquare"`
	ChiSquareDF    int     `json:"ChiSquareDF"`
	PValue         float64 `json:"PValue"`
	ZeroWeightHits int     `json:"ZeroWeightHits"` // 權重為 0 的粒子被選中的次數
}

// ParticleReport 單一粒子的複製數統計
type ParticleReport struct {
	Index     int     `json:"Index"     csv:"index"`
	Weight    float32 `json:"Weight"    csv:"weight"`
	Expected  float64 `json:"Expected"  csv:"expected"` // N·w
	Total     int     `json:"Total"     csv:"total"`    // 所有世代的複製數總和
	SqSum     int     `json:"SqSum"     csv:"-"`        // 平方和
	Mean      float64 `json:"Mean"      csv:"mean"`
	Variance  float64 `json:"Variance"  csv:"variance"`
	Deviation float64 `json:"Deviation" csv:"deviation"` // Mean - Expected
}

// DistReport 每個 (粒子, 世代) 的複製數落點統計
type DistReport struct {
	CountBucket  []string  `json:"CountBucket"`
	CountCollect []int     `json:"CountCollect"`
	CountDist    []float64 `json:"CountDist"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
func (r *Report) Done() {
	if r.isDone {
		return
	}
	s := r.Summary
	g := float64(s.Generations)

	if s.Generations > 0 {
		s.DrawsPerGen = float64(s.Draws) / g
	}
	s.SortedRatio, s.SortedCI = proportionCICP(s.Sorted, s.Generations, 0.95)

	observed := make([]int, len(r.Particles))
	expected := make([]float64, len(r.Particles))
	vars := make([]float64, len(r.Particles))
	for i := range r.Particles {
		p := &r.Particles[i]
		if s.Generations > 0 {
			p.Mean = float64(p.Total) / g
		}
		if s.Generations > 1 {
			v := (float64(p.SqSum) - float64(p.Total)*float64(p.Total)/g) / (g - 1)
			p.Variance = max(v, 0)
		}
		p.Deviation = p.Mean - p.Expected
		observed[i] = p.Total
		expected[i] = p.Expected * g
		vars[i] = p.Variance
	}
	if len(vars) > 0 {
		s.MeanVariance = stat.Mean(vars, nil)
	}
	s.ChiSquare, s.ChiSquareDF, s.PValue = chiSquareTest(observed, expected)

	if d := r.Dist; d != nil {
		total := 0
		for _, c := range d.CountCollect {
			total += c
		}
		d.CountDist = make([]float64, len(d.CountCollect))
		if total > 0 {
			for i, c := range d.CountCollect {
				d.CountDist[i] = float64(c) / float64(total)
			}
		}
	}
	r.isDone = true
}

func (r *Report) WriteWith(w io.Writer, rep ReportRender) error {
	r.Done()
	return rep.Write(w, r)
}

// StdOut 印出耗時與摘要表
func (r *Report) StdOut(ut time.Duration) {
	r.Done()
	fmt.Print(formatDuration(ut, r.Summary.Generations))
	sk, sm := r.fmtBasic()
	fmt.Println(fmtTable(r.Summary.Name, sk, sm))
}

// Table 摘要表字串
func (r *Report) Table() string {
	r.Done()
	sk, sm := r.fmtBasic()
	return fmtTable(r.Summary.Name, sk, sm)
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, gens int) string {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	gps := int(float64(gens) / sec)
	if sec < 60.0 {
		return p.Sprintf("used: %.2f seconds\ngps : %d generations/sec\n", sec, gps)
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		return p.Sprintf("used: %dm %ds\ngps : %d generations/sec\n", m, s, gps)
	}
	return p.Sprintf("used: %dh:%dm:%ds\ngps : %d generations/sec\n", h, m, s, gps)
}

func (r *Report) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	s := r.Summary
	basic := map[string]string{
		"Name":            p.Sprintf("%s", s.Name),
		"Algorithm":       p.Sprintf("%s", s.Algorithm),
		"Particles":       p.Sprintf("%d", s.Particles),
		"Generations":     p.Sprintf("%d", s.Generations),
		"Draws / Gen":     p.Sprintf("%.2f", s.DrawsPerGen),
		"ESS":             p.Sprintf("%.2f", s.ESS),
		"Sorted Ratio":    p.Sprintf("%.2f %%", 100.0*s.SortedRatio),
		"Sorted 95% CI":   p.Sprintf("[%.2f%%,%.2f%%]", 100.0*s.SortedCI.Lo, 100.0*s.SortedCI.Hi),
		"Max Deviation":   p.Sprintf("%.4f", s.MaxDeviation),
		"Mean Variance":   p.Sprintf("%.4f", s.MeanVariance),
		"Chi-Square (df)": p.Sprintf("%.3f (%d)", s.ChiSquare, s.ChiSquareDF),
		"P-Value":         p.Sprintf("%.4f", s.PValue),
		"Zero-Wt Hits":    p.Sprintf("%d", s.ZeroWeightHits),
	}
	keys := []string{"Name", "Algorithm", "Particles", "Generations", "Draws / Gen", "ESS", "Sorted Ratio", "Sorted 95% CI", "Max Deviation", "Mean Variance", "Chi-Square (df)", "P-Value", "Zero-Wt Hits"}
	return keys, basic
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := runewidth.StringWidth(title)
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString(p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right)))
	sb.WriteString(divider)
	for _, k := range keys {
		sb.WriteString(p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k]))))
	}
	sb.WriteString(divider)
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
