package stats

import "gonum.org/v1/gonum/stat/distuv"

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// chiSquareTest 皮爾森適合度檢定：observed 為合併後的複製數，expected 為對應的期望值。
//
// 期望值為 0 的格子不計入（被選中的次數另外以 ZeroWeightHits 呈現）。
// 自由度 = 有效格數 - 1；自由度 < 1 時沒有可檢定的內容，p 值回傳 1。
//
// 注意：systematic/residual/stratified 的複製數變異遠小於多項分佈，
// 此時統計量會接近 0、p 值接近 1，這是演算法的特性而不是偏差。
func chiSquareTest(observed []int, expected []float64) (chi2 float64, df int, p float64) {
	cells := 0
	for i, e := range expected {
		if e <= 0 {
			continue
		}
		d := float64(observed[i]) - e
		chi2 += d * d / e
		cells++
	}
	df = cells - 1
	if df < 1 {
		return chi2, 0, 1
	}
	dist := distuv.ChiSquared{K: float64(df)}
	return chi2, df, dist.Survival(chi2)
}
