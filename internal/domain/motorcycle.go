package domain

import "time"

// UnknownRegion is stored when OCR found no region line below the plate.
const UnknownRegion = "REGION UNKNOWN"

type StatusFlag string

const (
	FlagBlacklisted StatusFlag = "blacklisted"
	FlagExpired     StatusFlag = "expired"
	FlagViolations  StatusFlag = "violations"
)

func (f StatusFlag) Valid() bool {
	switch f {
	case FlagBlacklisted, FlagExpired, FlagViolations:
		return true
	}
	return false
}

type Motorcycle struct {
	PlateNumber string     `bson:"plate_number" json:"plate_number"`
	Region      string     `bson:"region" json:"region"`
	Blacklisted bool       `bson:"blacklisted" json:"blacklisted"`
	Expired     bool       `bson:"expired" json:"expired"`
	Violations  bool       `bson:"violations" json:"violations"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	LastSeenAt  *time.Time `bson:"last_seen_at,omitempty" json:"last_seen_at,omitempty"`
}

// Flagged is true when any status flag is set.
func (m *Motorcycle) Flagged() bool {
	return m.Blacklisted || m.Expired || m.Violations
}

func (m *Motorcycle) Flags() StatusFlags {
	return StatusFlags{Blacklisted: m.Blacklisted, Expired: m.Expired, Violations: m.Violations}
}

type StatusFlags struct {
	Blacklisted bool `bson:"blacklisted" json:"blacklisted"`
	Expired     bool `bson:"expired" json:"expired"`
	Violations  bool `bson:"violations" json:"violations"`
}

type RegisterMotorcycleDTO struct {
	PlateNumber string `json:"plate_number" binding:"required"`
	Region      string `json:"region"`
	Blacklisted bool   `json:"blacklisted"`
	Expired     bool   `json:"expired"`
	Violations  bool   `json:"violations"`
}

type MotorcycleFilterDTO struct {
	Blacklisted *bool  `form:"blacklisted"`
	Expired     *bool  `form:"expired"`
	Violations  *bool  `form:"violations"`
	Region      string `form:"region"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

// Action is one operator action on a plate and whether it is currently allowed.
type Action struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message,omitempty"`
}

// Actions mirrors the record management buttons shown next to an OCR result.
type Actions struct {
	Add       Action `json:"add"`
	Blacklist Action `json:"blacklist"`
	Expire    Action `json:"expire"`
	Violation Action `json:"violation"`
	Delete    Action `json:"delete"`
}

const msgNotInDB = "Plate not in DB."

// ActionsFor derives the allowed actions from a record, or from its absence when m is nil.
func ActionsFor(m *Motorcycle) Actions {
	if m == nil {
		disabled := Action{Enabled: false, Message: msgNotInDB}
		return Actions{
			Add:       Action{Enabled: true},
			Blacklist: disabled,
			Expire:    disabled,
			Violation: disabled,
			Delete:    disabled,
		}
	}
	return Actions{
		Add:       Action{Enabled: false, Message: "Plate already exists in DB."},
		Blacklist: flagAction(m.Blacklisted, "Already blacklisted."),
		Expire:    flagAction(m.Expired, "Already expired."),
		Violation: flagAction(m.Violations, "Already has violations."),
		Delete:    Action{Enabled: true},
	}
}

func flagAction(set bool, msg string) Action {
	if set {
		return Action{Enabled: false, Message: msg}
	}
	return Action{Enabled: true}
}

// RecordStatus is the lookup answer for a plate: the record if it exists and what can be done with it.
type RecordStatus struct {
	PlateNumber string      `json:"plate_number"`
	Exists      bool        `json:"exists"`
	Record      *Motorcycle `json:"record,omitempty"`
	Actions     Actions     `json:"actions"`
}
