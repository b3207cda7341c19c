// Package scheduler runs independent periodic background tasks.
//
// Each task owns a goroutine and a ticker. A task failure or panic is logged
// and never stops the scheduler or the other tasks; the next tick runs
// normally. Paused tasks skip their ticks until resumed.
package scheduler
