package model

import (
	"time"

	"github.com/google/uuid"
)

// EvaluationStrategy enum constants
const (
	EvaluationStrategySimple  = "SIMPLE"
	EvaluationStrategyComplex = "COMPLEX"
)

// LogicOperator enum constants
const (
	LogicOperatorAnd = "AND"
	LogicOperatorOr  = "OR"
)

// AccessLevel enum constants
const (
	AccessLevelRead  = "READ"
	AccessLevelWrite = "WRITE"
	AccessLevelAdmin = "ADMIN"
)

// ConditionOperator enum constants
const (
	OperatorEquals      = "EQUALS"
	OperatorNotEquals   = "NOT_EQUALS"
	OperatorContains    = "CONTAINS"
	OperatorNotContains = "NOT_CONTAINS"
	OperatorStartsWith  = "STARTS_WITH"
	OperatorEndsWith    = "ENDS_WITH"
	OperatorGT          = "GREATER_THAN"
	OperatorGTE         = "GREATER_THAN_OR_EQUAL"
	OperatorLT          = "LESS_THAN"
	OperatorLTE         = "LESS_THAN_OR_EQUAL"
	OperatorIn          = "IN"
	OperatorNotIn       = "NOT_IN"
	OperatorExists      = "EXISTS"
	OperatorNotExists   = "NOT_EXISTS"
)

// Weekday tokens for days_of_week sets
const (
	DayMonday    = "MONDAY"
	DayTuesday   = "TUESDAY"
	DayWednesday = "WEDNESDAY"
	DayThursday  = "THURSDAY"
	DayFriday    = "FRIDAY"
	DaySaturday  = "SATURDAY"
	DaySunday    = "SUNDAY"
)

// AccessControl is the root aggregate binding one (resource_type, resource_id)
// pair to its rule tree and global scheduling constraints. Uniqueness of the
// pair is enforced by the composite index so concurrent creates can not slip
// past the application-level existence check.
type AccessControl struct {
	ID                  uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ResourceType        string      `gorm:"type:varchar(50);not null;uniqueIndex:idx_access_controls_resource" json:"resource_type"`
	ResourceID          string      `gorm:"type:varchar(255);not null;uniqueIndex:idx_access_controls_resource" json:"resource_id"`
	IsEnabled           bool        `gorm:"default:true" json:"is_enabled"`
	EvaluationStrategy  string      `gorm:"type:varchar(20);not null;default:'COMPLEX';index" json:"evaluation_strategy"`
	MainLogicOperator   string      `gorm:"type:varchar(3);not null;default:'AND'" json:"main_logic_operator"`
	MaxConcurrentUsers  *int        `json:"max_concurrent_users"`
	MaxAccessCount      *int        `json:"max_access_count"`
	StartDate           *time.Time  `json:"start_date"`
	EndDate             *time.Time  `json:"end_date"`
	StartTime           string      `gorm:"type:varchar(5)" json:"start_time"` // "HH:MM", empty = unrestricted
	EndTime             string      `gorm:"type:varchar(5)" json:"end_time"`
	DaysOfWeek          []string    `gorm:"type:jsonb;serializer:json" json:"days_of_week"`
	RequiredAuthMethods []string    `gorm:"type:jsonb;serializer:json" json:"required_auth_methods"`
	RuleGroups          []RuleGroup `gorm:"foreignKey:AccessControlID;constraint:OnDelete:CASCADE" json:"rule_groups"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// RuleGroup is a named, prioritized collection of rules combined by one
// logic operator. Owned exclusively by its AccessControl.
type RuleGroup struct {
	ID              uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AccessControlID uuid.UUID     `gorm:"type:uuid;not null;index" json:"access_control_id"`
	Name            string        `gorm:"type:varchar(255);not null" json:"name"`
	Description     string        `gorm:"type:text" json:"description"`
	LogicOperator   string        `gorm:"type:varchar(3);not null;default:'AND'" json:"logic_operator"`
	Priority        int           `gorm:"not null;default:0;index" json:"priority"`
	IsEnabled       bool          `gorm:"default:true" json:"is_enabled"`
	Rules           []ComplexRule `gorm:"foreignKey:RuleGroupID;constraint:OnDelete:CASCADE" json:"rules"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ComplexRule combines conditions into a named rule that grants an access
// level. Its individual window fields narrow the parent control's window.
type ComplexRule struct {
	ID                   uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RuleGroupID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"rule_group_id"`
	Name                 string          `gorm:"type:varchar(255);not null" json:"name"`
	Description          string          `gorm:"type:text" json:"description"`
	LogicOperator        string          `gorm:"type:varchar(3);not null;default:'AND'" json:"logic_operator"`
	AccessLevel          string          `gorm:"type:varchar(10);not null;default:'READ'" json:"access_level"`
	Priority             int             `gorm:"not null;default:0;index" json:"priority"`
	IsEnabled            bool            `gorm:"default:true" json:"is_enabled"`
	IndividualStartDate  *time.Time      `json:"individual_start_date"`
	IndividualEndDate    *time.Time      `json:"individual_end_date"`
	IndividualStartTime  string          `gorm:"type:varchar(5)" json:"individual_start_time"`
	IndividualEndTime    string          `gorm:"type:varchar(5)" json:"individual_end_time"`
	IndividualDaysOfWeek []string        `gorm:"type:jsonb;serializer:json" json:"individual_days_of_week"`
	Conditions           []RuleCondition `gorm:"foreignKey:ComplexRuleID;constraint:OnDelete:CASCADE" json:"conditions"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// RuleCondition is a leaf predicate: one comparison of a dot-path field of
// the evaluated subject against a value. Value is polymorphic JSON; its
// shape is validated against Operator at the service boundary.
type RuleCondition struct {
	ID            uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ComplexRuleID uuid.UUID   `gorm:"type:uuid;not null;index" json:"complex_rule_id"`
	FieldPath     string      `gorm:"type:varchar(255);not null" json:"field_path"`
	Operator      string      `gorm:"type:varchar(30);not null" json:"operator"`
	Value         interface{} `gorm:"type:jsonb;serializer:json" json:"value"`
	IsNegated     bool        `gorm:"default:false" json:"is_negated"`
	Priority      int         `gorm:"not null;default:0;index" json:"priority"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
