package telemetry

import (
	"time"

	"github.com/weisyn/memwatch/pkg/types"
)

// Band 一个压力等级的判定条件，占用百分比或剩余字节任一满足即命中
type Band struct {
	PercentUsed float64 // 占用百分比不低于该值
	FreeBelow   uint64  // 剩余内存低于该值
}

func (b Band) match(percentUsed float64, free uint64) bool {
	return percentUsed >= b.PercentUsed || free < b.FreeBelow
}

// PressureTable 按严重程度排列的三档阈值
type PressureTable struct {
	Critical Band
	High     Band
	Medium   Band
}

var (
	// smallTable 总内存不超过 4GB，阈值最严
	smallTable = PressureTable{
		Critical: Band{PercentUsed: 90, FreeBelow: 256 * mib},
		High:     Band{PercentUsed: 80, FreeBelow: 512 * mib},
		Medium:   Band{PercentUsed: 70, FreeBelow: 1 * gib},
	}
	mediumTable = PressureTable{
		Critical: Band{PercentUsed: 92, FreeBelow: 512 * mib},
		High:     Band{PercentUsed: 85, FreeBelow: 1 * gib},
		Medium:   Band{PercentUsed: 75, FreeBelow: 2 * gib},
	}
	// largeTable 总内存超过 8GB，阈值最宽
	largeTable = PressureTable{
		Critical: Band{PercentUsed: 95, FreeBelow: 1 * gib},
		High:     Band{PercentUsed: 90, FreeBelow: 2 * gib},
		Medium:   Band{PercentUsed: 80, FreeBelow: 4 * gib},
	}
)

// TableFor 按系统总内存选择阈值表
func TableFor(totalBytes uint64) PressureTable {
	switch {
	case totalBytes <= 4*gib:
		return smallTable
	case totalBytes <= 8*gib:
		return mediumTable
	default:
		return largeTable
	}
}

// Level 按 critical、high、medium 的顺序返回第一个命中的等级
func (t PressureTable) Level(percentUsed float64, free uint64) types.PressureLevel {
	switch {
	case t.Critical.match(percentUsed, free):
		return types.PressureCritical
	case t.High.match(percentUsed, free):
		return types.PressureHigh
	case t.Medium.match(percentUsed, free):
		return types.PressureMedium
	default:
		return types.PressureLow
	}
}

// ComputePressure 由总内存与剩余内存计算压力快照
func ComputePressure(at time.Time, total, free uint64) types.SystemPressureSnapshot {
	snap := types.SystemPressureSnapshot{
		Timestamp:     at,
		TotalBytes:    total,
		FreeBytes:     free,
		PressureLevel: types.PressureLow,
	}
	if total == 0 {
		return snap
	}
	if free > total {
		free = total
		snap.FreeBytes = free
	}
	snap.PercentUsed = float64(total-free) / float64(total) * 100
	snap.PressureLevel = TableFor(total).Level(snap.PercentUsed, free)
	return snap
}
