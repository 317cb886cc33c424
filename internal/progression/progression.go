// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package progression implements the XP curve.
package progression

// RequiredXP is the XP needed to go from level to level+1.
func RequiredXP(level int) float64 {
	return float64(level) * 100
}

// TotalXPForLevel is the cumulative XP at which level is reached:
// the sum of RequiredXP(i) for i in [1, level).
func TotalXPForLevel(level int) float64 {
	if level <= 1 {
		return 0
	}
	l := float64(level)
	return 50 * l * (l - 1)
}

// LevelUp advances level while totalXP reaches the next threshold, stopping
// at maxLevel. It only walks the levels actually crossed.
func LevelUp(level int, totalXP float64, maxLevel int) int {
	for level < maxLevel && totalXP >= TotalXPForLevel(level+1) {
		level++
	}
	return level
}

// LevelForXP computes the level for totalXP from scratch, capped at
// maxLevel. Used when XP is set directly and may go down.
func LevelForXP(totalXP float64, maxLevel int) int {
	return LevelUp(1, totalXP, maxLevel)
}

// Progress is the XP earned towards the next level.
func Progress(level int, totalXP float64) float64 {
	return totalXP - TotalXPForLevel(level)
}
