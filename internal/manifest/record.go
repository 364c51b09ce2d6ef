// Package manifest records every batch file a run writes.
package manifest

import "time"

// TableName is the manifest table.
const TableName = "helios_batch_manifest"

// Record is one written batch file.
type Record struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	RunID      string    `gorm:"column:run_id;index:idx_helios_batch_manifest_run,priority:1"`
	Split      string    `gorm:"column:split;index:idx_helios_batch_manifest_run,priority:2"`
	Name       string    `gorm:"column:name"`
	Path       string    `gorm:"column:path"`
	IndexPath  string    `gorm:"column:index_path"`
	Samples    int       `gorm:"column:samples"`
	Labeled    int       `gorm:"column:labeled"`
	RangeStart int       `gorm:"column:range_start"`
	RangeEnd   int       `gorm:"column:range_end"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName implements gorm's Tabler.
func (Record) TableName() string { return TableName }
