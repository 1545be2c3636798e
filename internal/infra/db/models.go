package db

import "time"

type VisitModel struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	CreatedAt      time.Time `gorm:"not null;index"`
	HardwareHash   string    `gorm:"size:64;index;not null"`
	SoftwareHash   string    `gorm:"size:64;index;not null"`
	FullHash       string    `gorm:"size:64;index;not null"`
	MetaBrowser    string    `gorm:"size:64"`
	MetaOS         string    `gorm:"column:meta_os;size:64"`
	MetaDeviceType string    `gorm:"size:32"`
	MetaCountry    string    `gorm:"size:8"`
	MetaScreen     string    `gorm:"size:32"`
	MetaGPUVendor  string    `gorm:"column:meta_gpu_vendor;size:128"`
	RawJSON        []byte    `gorm:"column:raw_json;type:jsonb"`
}

func (VisitModel) TableName() string { return "visits" }

type DeletionRequestModel struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	HashType      string  `gorm:"size:16;not null;index:idx_deletion_target"`
	HashValue     string  `gorm:"size:64;not null;index:idx_deletion_target"`
	Email         *string `gorm:"size:254"`
	Reason        *string
	Status        string    `gorm:"size:16;not null;index"`
	CreatedAt     time.Time `gorm:"not null;index"`
	CompletedAt   *time.Time
	RetryCount    int `gorm:"not null;default:0"`
	LastError     *string
	LastAttemptAt *time.Time
}

func (DeletionRequestModel) TableName() string { return "deletion_requests" }

type StatsCacheModel struct {
	ID                 string    `gorm:"primaryKey;size:16"`
	TotalFingerprints  int64     `gorm:"not null"`
	UniqueFullHash     int64     `gorm:"not null"`
	UniqueHardwareHash int64     `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (StatsCacheModel) TableName() string { return "stats_cache" }
