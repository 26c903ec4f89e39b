package snapshot

import "time"

// Logical snapshot names written at stage boundaries.
const (
	NameRaw                   = "staging-raw"
	NameClean                 = "staging-clean"
	NameFeatures              = "features"
	NameTrain                 = "train"
	NameValidation            = "validation"
	NameInference             = "inference"
	NamePredictions           = "predictions"
	NameValidationPredictions = "validation-predictions"
)

// Names lists every snapshot in pipeline order.
var Names = []string{
	NameRaw,
	NameClean,
	NameFeatures,
	NameTrain,
	NameValidation,
	NameInference,
	NamePredictions,
	NameValidationPredictions,
}

// Snapshot is the header row of a stored table.
type Snapshot struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:64;uniqueIndex;not null"`
	RunID     string    `gorm:"size:36;index"`
	Columns   string    `gorm:"type:text;not null"` // JSON encoded []table.Column
	RowCount  int       `gorm:"not null"`
	Checksum  string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"index"`
}

// SnapshotRow holds one encoded row of a snapshot.
type SnapshotRow struct {
	ID         uint   `gorm:"primaryKey"`
	SnapshotID uint   `gorm:"index:idx_snapshot_rows_position,priority:1;not null"`
	Position   int    `gorm:"index:idx_snapshot_rows_position,priority:2;not null"`
	EntityID   string `gorm:"size:64;index"`
	Payload    string `gorm:"type:text;not null"` // JSON array, see table.EncodeRow
}

// Info describes a stored snapshot.
type Info struct {
	Name      string    `yaml:"name" json:"name"`
	RunID     string    `yaml:"run_id" json:"run_id"`
	Rows      int       `yaml:"rows" json:"rows"`
	Columns   int       `yaml:"columns" json:"columns"`
	Checksum  string    `yaml:"checksum" json:"checksum"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}
