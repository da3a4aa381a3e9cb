package leak

import (
	"math"
	"time"

	"github.com/weisyn/memwatch/pkg/types"
)

// Fit 最小二乘拟合结果
type Fit struct {
	Slope     float64 // 每单位 x 的 y 增量
	Intercept float64
	RSquared  float64 // 决定系数，y 无方差时为 0
}

// LinearRegression 对 (i, ys[i]) 做普通最小二乘回归
func LinearRegression(ys []float64) Fit {
	if len(ys) < 2 {
		return Fit{}
	}

	n := float64(len(ys))
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denominator := n*sumX2 - sumX*sumX
	if denominator == 0 {
		return Fit{Intercept: sumY / n}
	}

	slope := (n*sumXY - sumX*sumY) / denominator
	intercept := (sumY - slope*sumX) / n

	// R² = 1 - SSres/SStot
	mean := sumY / n
	var ssTot, ssRes float64
	for i, y := range ys {
		pred := intercept + slope*float64(i)
		ssTot += (y - mean) * (y - mean)
		ssRes += (y - pred) * (y - pred)
	}
	r2 := 0.0
	if ssTot > 0 {
		r2 = clamp01(1 - ssRes/ssTot)
	}

	return Fit{Slope: slope, Intercept: intercept, RSquared: r2}
}

// SamplesPerMinute 根据首尾时间戳推算采样频率；时间戳无效时返回 0
func SamplesPerMinute(samples []types.MemorySample) float64 {
	if len(samples) < 2 {
		return 0
	}
	span := samples[len(samples)-1].Timestamp.Sub(samples[0].Timestamp)
	if span <= 0 {
		return 0
	}
	interval := span / time.Duration(len(samples)-1)
	if interval <= 0 {
		return 0
	}
	return float64(time.Minute) / float64(interval)
}

// EstimateGrowthRate 以样本序号回归后换算为字节/分钟
func EstimateGrowthRate(samples []types.MemorySample) float64 {
	perMinute := SamplesPerMinute(samples)
	if perMinute == 0 {
		return 0
	}
	return LinearRegression(memoryValues(samples)).Slope * perMinute
}

func memoryValues(samples []types.MemorySample) []float64 {
	ys := make([]float64, len(samples))
	for i, s := range samples {
		ys[i] = float64(s.MemoryBytes)
	}
	return ys
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// coefficientOfVariation 标准差/均值；均值为 0 时返回 +Inf
func coefficientOfVariation(xs []float64) float64 {
	m := mean(xs)
	if m == 0 {
		return math.Inf(1)
	}
	var sq float64
	for _, x := range xs {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq/float64(len(xs))) / m
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
