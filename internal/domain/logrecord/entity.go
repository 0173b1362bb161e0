package logrecord

import "time"

// Rating values a flight-report uploader can pick.
const (
	RatingNone           = ""
	RatingGood           = "good"
	RatingUnsatisfactory = "unsatisfactory"
	RatingCrashSoftware  = "crash_sw_hw"
	RatingCrashPilot     = "crash_pilot"
)

// Upload sources.
const (
	SourceWebUI          = "webui"
	SourceCI             = "CI"
	SourceBulk           = "bulk"
	SourceQGroundControl = "QGroundControl"
)

// LogRecord is one admitted log. The identifier doubles as the storage
// path key of the persisted binary file and is never mutated after
// admission.
type LogRecord struct {
	ID               string    `gorm:"column:Id;primaryKey"`
	Title            string    `gorm:"column:Title"`
	Description      string    `gorm:"column:Description"`
	OriginalFilename string    `gorm:"column:OriginalFilename"`
	Date             time.Time `gorm:"column:Date"`
	AllowForAnalysis int       `gorm:"column:AllowForAnalysis"`
	Obfuscated       int       `gorm:"column:Obfuscated"`
	Source           string    `gorm:"column:Source"`
	Email            string    `gorm:"column:Email"`
	WindSpeed        int       `gorm:"column:WindSpeed"`
	Rating           string    `gorm:"column:Rating"`
	Feedback         string    `gorm:"column:Feedback"`
	Type             string    `gorm:"column:Type"`
	VideoURL         string    `gorm:"column:videoUrl"`
	ErrorLabels      string    `gorm:"column:ErrorLabels"`
	Public           int       `gorm:"column:Public"`

	// Token authorizes later edit/delete of this record. It is disclosed
	// to the uploader once and never shown again.
	Token string `gorm:"column:Token" json:"-"`
}

func (LogRecord) TableName() string { return "Logs" }

// VehicleRecord tracks the most recent log per vehicle hardware id.
// Replaced wholesale on every admission referencing the same UUID.
type VehicleRecord struct {
	UUID        string  `gorm:"column:UUID;primaryKey"`
	LatestLogID string  `gorm:"column:LatestLogId"`
	Name        string  `gorm:"column:Name"`
	FlightTime  float64 `gorm:"column:FlightTime"` // seconds, from the latest log
}

func (VehicleRecord) TableName() string { return "Vehicle" }
