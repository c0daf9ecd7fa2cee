// Package model defines shared data structures.
package model

import "time"

// Config defines brew settings resolved from flags and the config file.
type Config struct {
	Beans    int
	WakeLock bool
	Journal  bool
}

// BrewRecord captures one finished or abandoned brew session.
type BrewRecord struct {
	StartedAt      time.Time
	EndedAt        time.Time
	BeansGrams     int
	WaterGrams     int
	ElapsedSeconds int
	Completed      bool
}

// BrewEntry is a stored brew record with its row id.
type BrewEntry struct {
	ID int64
	BrewRecord
}

// HistoryConfig defines filters for journal output.
type HistoryConfig struct {
	Last int
}
