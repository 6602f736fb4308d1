package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"accessctl/internal/model"
	"accessctl/internal/repository"
	ws "accessctl/internal/websocket"
	"accessctl/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sentinel errors the handler maps to HTTP statuses
var (
	ErrAccessControlNotFound = errors.New("access control not found")
	ErrAccessControlExists   = errors.New("Ya existe un control de acceso para este recurso")

	// ErrInternal marks store/transaction failures the handler should log
	// and surface as a generic 500, never echoing the raw error.
	ErrInternal = errors.New("internal error")
)

func internalErr(msg string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, msg, err)
}

// --- DTOs ---

type ConditionPayload struct {
	FieldPath string      `json:"field_path" binding:"required"`
	Operator  string      `json:"operator"`
	Value     interface{} `json:"value"`
	IsNegated bool        `json:"is_negated"`
	Priority  int         `json:"priority"`
}

type RulePayload struct {
	Name                 string             `json:"name" binding:"required"`
	Description          string             `json:"description"`
	LogicOperator        string             `json:"logic_operator"`
	AccessLevel          string             `json:"access_level"`
	Priority             int                `json:"priority"`
	IsEnabled            *bool              `json:"is_enabled"`
	IndividualStartDate  *time.Time         `json:"individual_start_date"`
	IndividualEndDate    *time.Time         `json:"individual_end_date"`
	IndividualStartTime  string             `json:"individual_start_time"`
	IndividualEndTime    string             `json:"individual_end_time"`
	IndividualDaysOfWeek []string           `json:"individual_days_of_week"`
	Conditions           []ConditionPayload `json:"conditions"`
}

type RuleGroupPayload struct {
	Name          string        `json:"name" binding:"required"`
	Description   string        `json:"description"`
	LogicOperator string        `json:"logic_operator"`
	Priority      int           `json:"priority"`
	IsEnabled     *bool         `json:"is_enabled"`
	Rules         []RulePayload `json:"rules"`
}

type CreateAccessControlRequest struct {
	ResourceType        string             `json:"resource_type" binding:"required"`
	ResourceID          string             `json:"resource_id" binding:"required"`
	IsEnabled           *bool              `json:"is_enabled"`
	MainLogicOperator   string             `json:"main_logic_operator"`
	MaxConcurrentUsers  *int               `json:"max_concurrent_users"`
	MaxAccessCount      *int               `json:"max_access_count"`
	StartDate           *time.Time         `json:"start_date"`
	EndDate             *time.Time         `json:"end_date"`
	StartTime           string             `json:"start_time"`
	EndTime             string             `json:"end_time"`
	DaysOfWeek          []string           `json:"days_of_week"`
	RequiredAuthMethods []string           `json:"required_auth_methods"`
	RuleGroups          []RuleGroupPayload `json:"rule_groups"`
}

// UpdateAccessControlRequest carries the target id plus a partial payload.
// RuleGroups is a pointer so nil = key absent (subtree untouched) while an
// empty non-nil slice clears the subtree.
type UpdateAccessControlRequest struct {
	ID                  string              `json:"id"`
	ResourceType        *string             `json:"resource_type"`
	ResourceID          *string             `json:"resource_id"`
	IsEnabled           *bool               `json:"is_enabled"`
	MainLogicOperator   *string             `json:"main_logic_operator"`
	MaxConcurrentUsers  *int                `json:"max_concurrent_users"`
	MaxAccessCount      *int                `json:"max_access_count"`
	StartDate           *time.Time          `json:"start_date"`
	EndDate             *time.Time          `json:"end_date"`
	StartTime           *string             `json:"start_time"`
	EndTime             *string             `json:"end_time"`
	DaysOfWeek          *[]string           `json:"days_of_week"`
	RequiredAuthMethods *[]string           `json:"required_auth_methods"`
	RuleGroups          *[]RuleGroupPayload `json:"rule_groups"`
}

type ListAccessControlsQuery struct {
	Page         int
	Limit        int
	ResourceType string
	Search       string
}

type ConditionResponse struct {
	ID        string      `json:"id"`
	FieldPath string      `json:"field_path"`
	Operator  string      `json:"operator"`
	Value     interface{} `json:"value"`
	IsNegated bool        `json:"is_negated"`
	Priority  int         `json:"priority"`
}

type RuleResponse struct {
	ID                   string              `json:"id"`
	Name                 string              `json:"name"`
	Description          string              `json:"description"`
	LogicOperator        string              `json:"logic_operator"`
	AccessLevel          string              `json:"access_level"`
	Priority             int                 `json:"priority"`
	IsEnabled            bool                `json:"is_enabled"`
	IndividualStartDate  *time.Time          `json:"individual_start_date"`
	IndividualEndDate    *time.Time          `json:"individual_end_date"`
	IndividualStartTime  string              `json:"individual_start_time"`
	IndividualEndTime    string              `json:"individual_end_time"`
	IndividualDaysOfWeek []string            `json:"individual_days_of_week"`
	Conditions           []ConditionResponse `json:"conditions"`
}

type RuleGroupResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	LogicOperator string         `json:"logic_operator"`
	Priority      int            `json:"priority"`
	IsEnabled     bool           `json:"is_enabled"`
	Rules         []RuleResponse `json:"rules"`
}

type AccessControlResponse struct {
	ID                  string              `json:"id"`
	ResourceType        string              `json:"resource_type"`
	ResourceID          string              `json:"resource_id"`
	IsEnabled           bool                `json:"is_enabled"`
	EvaluationStrategy  string              `json:"evaluation_strategy"`
	MainLogicOperator   string              `json:"main_logic_operator"`
	MaxConcurrentUsers  *int                `json:"max_concurrent_users"`
	MaxAccessCount      *int                `json:"max_access_count"`
	StartDate           *time.Time          `json:"start_date"`
	EndDate             *time.Time          `json:"end_date"`
	StartTime           string              `json:"start_time"`
	EndTime             string              `json:"end_time"`
	DaysOfWeek          []string            `json:"days_of_week"`
	RequiredAuthMethods []string            `json:"required_auth_methods"`
	RuleGroups          []RuleGroupResponse `json:"rule_groups"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// --- Interface ---

type AccessControlService interface {
	List(ctx context.Context, query ListAccessControlsQuery) ([]AccessControlResponse, pagination.Meta, error)
	Create(ctx context.Context, userID string, req CreateAccessControlRequest) (*AccessControlResponse, error)
	Update(ctx context.Context, userID string, req UpdateAccessControlRequest) (*AccessControlResponse, error)
	Delete(ctx context.Context, userID string, ids []string) (int64, error)
}

type accessControlService struct {
	repo      repository.AccessControlRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	hub       *ws.Hub
}

func NewAccessControlService(
	repo repository.AccessControlRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) AccessControlService {
	return &accessControlService{
		repo:      repo,
		auditRepo: auditRepo,
		txManager: txManager,
		hub:       hub,
	}
}

// --- Validation helpers ---

var validLogicOperators = map[string]bool{
	model.LogicOperatorAnd: true,
	model.LogicOperatorOr:  true,
}

var validAccessLevels = map[string]bool{
	model.AccessLevelRead:  true,
	model.AccessLevelWrite: true,
	model.AccessLevelAdmin: true,
}

var validConditionOperators = map[string]bool{
	model.OperatorEquals:      true,
	model.OperatorNotEquals:   true,
	model.OperatorContains:    true,
	model.OperatorNotContains: true,
	model.OperatorStartsWith:  true,
	model.OperatorEndsWith:    true,
	model.OperatorGT:          true,
	model.OperatorGTE:         true,
	model.OperatorLT:          true,
	model.OperatorLTE:         true,
	model.OperatorIn:          true,
	model.OperatorNotIn:       true,
	model.OperatorExists:      true,
	model.OperatorNotExists:   true,
}

var validDays = map[string]bool{
	model.DayMonday:    true,
	model.DayTuesday:   true,
	model.DayWednesday: true,
	model.DayThursday:  true,
	model.DayFriday:    true,
	model.DaySaturday:  true,
	model.DaySunday:    true,
}

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func validateTimeWindow(field, start, end string) error {
	if start != "" && !timeOfDayRe.MatchString(start) {
		return fmt.Errorf("%s: start time must be HH:MM", field)
	}
	if end != "" && !timeOfDayRe.MatchString(end) {
		return fmt.Errorf("%s: end time must be HH:MM", field)
	}
	// String comparison works because both sides are zero-padded HH:MM.
	// Overnight windows are rejected rather than wrapped.
	if start != "" && end != "" && start >= end {
		return fmt.Errorf("%s: start time must be before end time", field)
	}
	return nil
}

func validateDateWindow(field string, start, end *time.Time) error {
	if start != nil && end != nil && !start.Before(*end) {
		return fmt.Errorf("%s: start date must be before end date", field)
	}
	return nil
}

func validateDaysOfWeek(field string, days []string) error {
	for _, d := range days {
		if !validDays[d] {
			return fmt.Errorf("%s: invalid day of week '%s'", field, d)
		}
	}
	return nil
}

// numericConditionValue reports whether v can be compared by an ordered
// operator. Numbers arrive from JSON as float64; numeric strings are also
// accepted and parsed exactly via decimal to avoid float rounding surprises.
func numericConditionValue(v interface{}) bool {
	switch n := v.(type) {
	case float64:
		return true
	case json.Number:
		_, err := decimal.NewFromString(n.String())
		return err == nil
	case string:
		_, err := decimal.NewFromString(n)
		return err == nil
	default:
		return false
	}
}

// validateConditionValue cross-checks the polymorphic value against the
// operator it is paired with.
func validateConditionValue(field, operator string, value interface{}) error {
	switch operator {
	case model.OperatorExists, model.OperatorNotExists:
		if value != nil {
			return fmt.Errorf("%s: operator %s takes no value", field, operator)
		}
	case model.OperatorIn, model.OperatorNotIn:
		list, ok := value.([]interface{})
		if !ok || len(list) == 0 {
			return fmt.Errorf("%s: operator %s requires a non-empty array value", field, operator)
		}
	case model.OperatorGT, model.OperatorGTE, model.OperatorLT, model.OperatorLTE:
		if !numericConditionValue(value) {
			return fmt.Errorf("%s: operator %s requires a numeric value", field, operator)
		}
	case model.OperatorContains, model.OperatorNotContains, model.OperatorStartsWith, model.OperatorEndsWith:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s: operator %s requires a string value", field, operator)
		}
	default: // EQUALS / NOT_EQUALS
		switch value.(type) {
		case nil, string, float64, bool, json.Number: // null compares against absent/null fields
		default:
			return fmt.Errorf("%s: operator %s requires a scalar value", field, operator)
		}
	}
	return nil
}

// validateRuleGroups checks the whole subtree payload and fills enum
// defaults in place, so the same pass serves create and update.
func validateRuleGroups(groups []RuleGroupPayload) error {
	for gi := range groups {
		g := &groups[gi]
		gf := fmt.Sprintf("rule_groups[%d]", gi)
		if g.Name == "" {
			return fmt.Errorf("%s: name is required", gf)
		}
		if g.LogicOperator == "" {
			g.LogicOperator = model.LogicOperatorAnd
		}
		if !validLogicOperators[g.LogicOperator] {
			return fmt.Errorf("%s: logic_operator must be AND or OR", gf)
		}
		if g.Priority < 0 {
			return fmt.Errorf("%s: priority must not be negative", gf)
		}

		for ri := range g.Rules {
			r := &g.Rules[ri]
			rf := fmt.Sprintf("%s.rules[%d]", gf, ri)
			if r.Name == "" {
				return fmt.Errorf("%s: name is required", rf)
			}
			if r.LogicOperator == "" {
				r.LogicOperator = model.LogicOperatorAnd
			}
			if !validLogicOperators[r.LogicOperator] {
				return fmt.Errorf("%s: logic_operator must be AND or OR", rf)
			}
			if r.AccessLevel == "" {
				r.AccessLevel = model.AccessLevelRead
			}
			if !validAccessLevels[r.AccessLevel] {
				return fmt.Errorf("%s: access_level must be READ, WRITE or ADMIN", rf)
			}
			if r.Priority < 0 {
				return fmt.Errorf("%s: priority must not be negative", rf)
			}
			if err := validateTimeWindow(rf, r.IndividualStartTime, r.IndividualEndTime); err != nil {
				return err
			}
			if err := validateDateWindow(rf, r.IndividualStartDate, r.IndividualEndDate); err != nil {
				return err
			}
			if err := validateDaysOfWeek(rf, r.IndividualDaysOfWeek); err != nil {
				return err
			}

			for ci := range r.Conditions {
				c := &r.Conditions[ci]
				cf := fmt.Sprintf("%s.conditions[%d]", rf, ci)
				if c.FieldPath == "" {
					return fmt.Errorf("%s: field_path is required", cf)
				}
				if c.Operator == "" {
					c.Operator = model.OperatorEquals
				}
				if !validConditionOperators[c.Operator] {
					return fmt.Errorf("%s: unknown operator '%s'", cf, c.Operator)
				}
				if c.Priority < 0 {
					return fmt.Errorf("%s: priority must not be negative", cf)
				}
				if err := validateConditionValue(cf, c.Operator, c.Value); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateLimits(maxConcurrentUsers, maxAccessCount *int) error {
	if maxConcurrentUsers != nil && *maxConcurrentUsers < 0 {
		return errors.New("max_concurrent_users must not be negative")
	}
	if maxAccessCount != nil && *maxAccessCount < 0 {
		return errors.New("max_access_count must not be negative")
	}
	return nil
}

// --- Payload to model mapping ---

func toConditionModels(ruleID uuid.UUID, payloads []ConditionPayload) []model.RuleCondition {
	conditions := make([]model.RuleCondition, 0, len(payloads))
	for _, p := range payloads {
		conditions = append(conditions, model.RuleCondition{
			ComplexRuleID: ruleID,
			FieldPath:     p.FieldPath,
			Operator:      p.Operator,
			Value:         p.Value,
			IsNegated:     p.IsNegated,
			Priority:      p.Priority,
		})
	}
	return conditions
}

func toRuleModels(groupID uuid.UUID, payloads []RulePayload) []model.ComplexRule {
	rules := make([]model.ComplexRule, 0, len(payloads))
	for _, p := range payloads {
		enabled := true
		if p.IsEnabled != nil {
			enabled = *p.IsEnabled
		}
		rules = append(rules, model.ComplexRule{
			RuleGroupID:          groupID,
			Name:                 p.Name,
			Description:          p.Description,
			LogicOperator:        p.LogicOperator,
			AccessLevel:          p.AccessLevel,
			Priority:             p.Priority,
			IsEnabled:            enabled,
			IndividualStartDate:  p.IndividualStartDate,
			IndividualEndDate:    p.IndividualEndDate,
			IndividualStartTime:  p.IndividualStartTime,
			IndividualEndTime:    p.IndividualEndTime,
			IndividualDaysOfWeek: p.IndividualDaysOfWeek,
			Conditions:           toConditionModels(uuid.Nil, p.Conditions), // GORM fills ComplexRuleID on cascade create
		})
	}
	return rules
}

func toGroupModels(controlID uuid.UUID, payloads []RuleGroupPayload) []model.RuleGroup {
	groups := make([]model.RuleGroup, 0, len(payloads))
	for _, p := range payloads {
		enabled := true
		if p.IsEnabled != nil {
			enabled = *p.IsEnabled
		}
		groups = append(groups, model.RuleGroup{
			AccessControlID: controlID,
			Name:            p.Name,
			Description:     p.Description,
			LogicOperator:   p.LogicOperator,
			Priority:        p.Priority,
			IsEnabled:       enabled,
			Rules:           toRuleModels(uuid.Nil, p.Rules),
		})
	}
	return groups
}

// --- CRUD ---

func (s *accessControlService) List(ctx context.Context, query ListAccessControlsQuery) ([]AccessControlResponse, pagination.Meta, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = pagination.DefaultLimit
	}

	controls, total, err := s.repo.List(ctx, query.ResourceType, query.Search, query.Page, query.Limit)
	if err != nil {
		return nil, pagination.Meta{}, internalErr("failed to fetch access controls", err)
	}

	res := make([]AccessControlResponse, 0, len(controls))
	for _, ac := range controls {
		res = append(res, toAccessControlResponse(ac))
	}

	return res, pagination.NewMeta(query.Page, query.Limit, total), nil
}

func (s *accessControlService) Create(ctx context.Context, userID string, req CreateAccessControlRequest) (*AccessControlResponse, error) {
	if req.MainLogicOperator == "" {
		req.MainLogicOperator = model.LogicOperatorAnd
	}
	if !validLogicOperators[req.MainLogicOperator] {
		return nil, errors.New("main_logic_operator must be AND or OR")
	}
	if err := validateLimits(req.MaxConcurrentUsers, req.MaxAccessCount); err != nil {
		return nil, err
	}
	if err := validateTimeWindow("access_control", req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if err := validateDateWindow("access_control", req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if err := validateDaysOfWeek("access_control", req.DaysOfWeek); err != nil {
		return nil, err
	}
	if err := validateRuleGroups(req.RuleGroups); err != nil {
		return nil, err
	}

	// Friendly fast path; the unique index on (resource_type, resource_id)
	// is what actually closes the race.
	if _, err := s.repo.FindByResource(ctx, req.ResourceType, req.ResourceID); err == nil {
		return nil, ErrAccessControlExists
	}

	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}

	control := &model.AccessControl{
		ResourceType:        req.ResourceType,
		ResourceID:          req.ResourceID,
		IsEnabled:           enabled,
		EvaluationStrategy:  model.EvaluationStrategyComplex,
		MainLogicOperator:   req.MainLogicOperator,
		MaxConcurrentUsers:  req.MaxConcurrentUsers,
		MaxAccessCount:      req.MaxAccessCount,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		DaysOfWeek:          req.DaysOfWeek,
		RequiredAuthMethods: req.RequiredAuthMethods,
		RuleGroups:          toGroupModels(uuid.Nil, req.RuleGroups), // GORM fills AccessControlID on cascade create
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, control); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAccessControlExists
			}
			return internalErr("failed to create access control", err)
		}
		return s.writeAudit(txCtx, userID, model.ActionCreateAccessControl, control, req)
	})
	if err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, control.ID)
	if err != nil {
		return nil, internalErr("failed to reload access control", err)
	}

	s.broadcast("access_control.created", created)

	resp := toAccessControlResponse(*created)
	return &resp, nil
}

func (s *accessControlService) Update(ctx context.Context, userID string, req UpdateAccessControlRequest) (*AccessControlResponse, error) {
	controlID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid access control id: %w", err)
	}

	control, err := s.repo.FindByID(ctx, controlID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessControlNotFound
		}
		return nil, internalErr("database error", err)
	}

	// Apply field updates
	if req.ResourceType != nil {
		if *req.ResourceType == "" {
			return nil, errors.New("resource_type cannot be empty")
		}
		control.ResourceType = *req.ResourceType
	}
	if req.ResourceID != nil {
		if *req.ResourceID == "" {
			return nil, errors.New("resource_id cannot be empty")
		}
		control.ResourceID = *req.ResourceID
	}
	if req.IsEnabled != nil {
		control.IsEnabled = *req.IsEnabled
	}
	if req.MainLogicOperator != nil {
		if !validLogicOperators[*req.MainLogicOperator] {
			return nil, errors.New("main_logic_operator must be AND or OR")
		}
		control.MainLogicOperator = *req.MainLogicOperator
	}
	if req.MaxConcurrentUsers != nil {
		control.MaxConcurrentUsers = req.MaxConcurrentUsers
	}
	if req.MaxAccessCount != nil {
		control.MaxAccessCount = req.MaxAccessCount
	}
	if req.StartDate != nil {
		control.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		control.EndDate = req.EndDate
	}
	if req.StartTime != nil {
		control.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		control.EndTime = *req.EndTime
	}
	if req.DaysOfWeek != nil {
		control.DaysOfWeek = *req.DaysOfWeek
	}
	if req.RequiredAuthMethods != nil {
		control.RequiredAuthMethods = *req.RequiredAuthMethods
	}

	if err := validateLimits(control.MaxConcurrentUsers, control.MaxAccessCount); err != nil {
		return nil, err
	}
	if err := validateTimeWindow("access_control", control.StartTime, control.EndTime); err != nil {
		return nil, err
	}
	if err := validateDateWindow("access_control", control.StartDate, control.EndDate); err != nil {
		return nil, err
	}
	if err := validateDaysOfWeek("access_control", control.DaysOfWeek); err != nil {
		return nil, err
	}
	if req.RuleGroups != nil {
		if err := validateRuleGroups(*req.RuleGroups); err != nil {
			return nil, err
		}
	}

	// Scalar update plus subtree replacement in one transaction. The subtree
	// is only touched when the payload carried a rule_groups key.
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, control); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAccessControlExists
			}
			return internalErr("failed to update access control", err)
		}

		if req.RuleGroups != nil {
			if err := s.repo.DeleteRuleGroupsByControlID(txCtx, controlID); err != nil {
				return internalErr("failed to delete old rule groups", err)
			}
			if err := s.repo.CreateRuleGroups(txCtx, toGroupModels(controlID, *req.RuleGroups)); err != nil {
				return internalErr("failed to create rule groups", err)
			}
		}

		return s.writeAudit(txCtx, userID, model.ActionUpdateAccessControl, control, req)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, controlID)
	if err != nil {
		return nil, internalErr("failed to reload access control", err)
	}

	s.broadcast("access_control.updated", updated)

	resp := toAccessControlResponse(*updated)
	return &resp, nil
}

func (s *accessControlService) Delete(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, errors.New("ids must be a non-empty array")
	}

	controlIDs := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return 0, fmt.Errorf("invalid access control id '%s': %w", id, err)
		}
		controlIDs = append(controlIDs, parsed)
	}

	var deleted int64
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		deleted, err = s.repo.DeleteComplexByIDs(txCtx, controlIDs)
		if err != nil {
			return internalErr("failed to delete access controls", err)
		}

		var uid *uuid.UUID
		if parsed, err := uuid.Parse(userID); err == nil {
			uid = &parsed
		}
		details, _ := json.Marshal(map[string]interface{}{
			"requested_ids": ids,
			"deleted_count": deleted,
		})
		audit := &model.AuditLog{
			UserID:  uid,
			Action:  model.ActionDeleteAccessControl,
			Details: string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return internalErr("failed to write audit log", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if deleted > 0 && s.hub != nil {
		msg, _ := json.Marshal(map[string]interface{}{
			"event": "access_control.deleted",
			"ids":   ids,
		})
		s.hub.Broadcast <- msg
	}

	return deleted, nil
}

// --- Side-effect helpers ---

func (s *accessControlService) writeAudit(ctx context.Context, userID, action string, control *model.AccessControl, payload interface{}) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	details, _ := json.Marshal(payload)
	audit := &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   control.ID.String(),
		EntityName: control.ResourceType + ":" + control.ResourceID,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		return internalErr("failed to write audit log", err)
	}
	return nil
}

func (s *accessControlService) broadcast(event string, control *model.AccessControl) {
	if s.hub == nil {
		return
	}
	msg, _ := json.Marshal(map[string]interface{}{
		"event":         event,
		"id":            control.ID.String(),
		"resource_type": control.ResourceType,
		"resource_id":   control.ResourceID,
	})
	s.hub.Broadcast <- msg
}

// --- Response mappers ---

func toConditionResponse(c model.RuleCondition) ConditionResponse {
	return ConditionResponse{
		ID:        c.ID.String(),
		FieldPath: c.FieldPath,
		Operator:  c.Operator,
		Value:     c.Value,
		IsNegated: c.IsNegated,
		Priority:  c.Priority,
	}
}

func toRuleResponse(r model.ComplexRule) RuleResponse {
	conditions := make([]ConditionResponse, 0, len(r.Conditions))
	for _, c := range r.Conditions {
		conditions = append(conditions, toConditionResponse(c))
	}

	return RuleResponse{
		ID:                   r.ID.String(),
		Name:                 r.Name,
		Description:          r.Description,
		LogicOperator:        r.LogicOperator,
		AccessLevel:          r.AccessLevel,
		Priority:             r.Priority,
		IsEnabled:            r.IsEnabled,
		IndividualStartDate:  r.IndividualStartDate,
		IndividualEndDate:    r.IndividualEndDate,
		IndividualStartTime:  r.IndividualStartTime,
		IndividualEndTime:    r.IndividualEndTime,
		IndividualDaysOfWeek: r.IndividualDaysOfWeek,
		Conditions:           conditions,
	}
}

func toRuleGroupResponse(g model.RuleGroup) RuleGroupResponse {
	rules := make([]RuleResponse, 0, len(g.Rules))
	for _, r := range g.Rules {
		rules = append(rules, toRuleResponse(r))
	}

	return RuleGroupResponse{
		ID:            g.ID.String(),
		Name:          g.Name,
		Description:   g.Description,
		LogicOperator: g.LogicOperator,
		Priority:      g.Priority,
		IsEnabled:     g.IsEnabled,
		Rules:         rules,
	}
}

func toAccessControlResponse(ac model.AccessControl) AccessControlResponse {
	groups := make([]RuleGroupResponse, 0, len(ac.RuleGroups))
	for _, g := range ac.RuleGroups {
		groups = append(groups, toRuleGroupResponse(g))
	}

	return AccessControlResponse{
		ID:                  ac.ID.String(),
		ResourceType:        ac.ResourceType,
		ResourceID:          ac.ResourceID,
		IsEnabled:           ac.IsEnabled,
		EvaluationStrategy:  ac.EvaluationStrategy,
		MainLogicOperator:   ac.MainLogicOperator,
		MaxConcurrentUsers:  ac.MaxConcurrentUsers,
		MaxAccessCount:      ac.MaxAccessCount,
		StartDate:           ac.StartDate,
		EndDate:             ac.EndDate,
		StartTime:           ac.StartTime,
		EndTime:             ac.EndTime,
		DaysOfWeek:          ac.DaysOfWeek,
		RequiredAuthMethods: ac.RequiredAuthMethods,
		RuleGroups:          groups,
		CreatedAt:           ac.CreatedAt,
		UpdatedAt:           ac.UpdatedAt,
	}
}
