package domain

import "time"

// HashType is the public name of the lock a deletion request targets.
type HashType string

const (
	HashTypeHardware HashType = "hardware"
	HashTypeSoftware HashType = "software"
	HashTypeFull     HashType = "full"
)

// HashColumn identifies the stored lock column a deletion operates on.
type HashColumn int

const (
	HashColumnGold HashColumn = iota + 1
	HashColumnSilver
	HashColumnBronze
)

func (c HashColumn) String() string {
	switch c {
	case HashColumnGold:
		return "gold"
	case HashColumnSilver:
		return "silver"
	case HashColumnBronze:
		return "bronze"
	default:
		return "unknown"
	}
}

var hashTypeColumns = map[HashType]HashColumn{
	HashTypeHardware: HashColumnGold,
	HashTypeSoftware: HashColumnSilver,
	HashTypeFull:     HashColumnBronze,
}

// ColumnFor maps a hash type onto its lock column. The mapping is closed:
// anything else returns ErrUnknownHashType.
func ColumnFor(t HashType) (HashColumn, error) {
	column, ok := hashTypeColumns[t]
	if !ok {
		return 0, ErrUnknownHashType
	}
	return column, nil
}

type DeletionStatus string

const (
	DeletionStatusPending   DeletionStatus = "pending"
	DeletionStatusCompleted DeletionStatus = "completed"
	DeletionStatusFailed    DeletionStatus = "failed"
	DeletionStatusRejected  DeletionStatus = "rejected"
)

func (s DeletionStatus) Terminal() bool {
	return s == DeletionStatusCompleted || s == DeletionStatusFailed || s == DeletionStatusRejected
}

// MaxDeletionRetries is the retry count at which a request becomes failed.
const MaxDeletionRetries = 3

type DeletionRequest struct {
	ID            string
	HashType      HashType
	HashValue     string
	Email         string
	Reason        string
	Status        DeletionStatus
	CreatedAt     time.Time
	CompletedAt   *time.Time
	RetryCount    int
	LastError     string
	LastAttemptAt *time.Time
}
