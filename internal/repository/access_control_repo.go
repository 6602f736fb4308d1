package repository

import (
	"context"

	"accessctl/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccessControlRepository interface {
	Create(ctx context.Context, ac *model.AccessControl) error
	Update(ctx context.Context, ac *model.AccessControl) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.AccessControl, error)
	FindByResource(ctx context.Context, resourceType, resourceID string) (*model.AccessControl, error)
	List(ctx context.Context, resourceType, search string, page, limit int) ([]model.AccessControl, int64, error)
	DeleteRuleGroupsByControlID(ctx context.Context, controlID uuid.UUID) error
	CreateRuleGroups(ctx context.Context, groups []model.RuleGroup) error
	DeleteComplexByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type accessControlRepository struct {
	db *gorm.DB
}

func NewAccessControlRepository(db *gorm.DB) AccessControlRepository {
	return &accessControlRepository{db: db}
}

// byPriority orders sibling rows for evaluation. Equal priorities keep the
// database's incidental order.
func byPriority(db *gorm.DB) *gorm.DB {
	return db.Order("priority ASC")
}

// withRuleTree hydrates the full aggregate, every level sorted ascending.
func withRuleTree(db *gorm.DB) *gorm.DB {
	return db.
		Preload("RuleGroups", byPriority).
		Preload("RuleGroups.Rules", byPriority).
		Preload("RuleGroups.Rules.Conditions", byPriority)
}

func (r *accessControlRepository) Create(ctx context.Context, ac *model.AccessControl) error {
	// Single Create cascades to groups, rules and conditions via the
	// has-many associations.
	return GetDB(ctx, r.db).Create(ac).Error
}

func (r *accessControlRepository) Update(ctx context.Context, ac *model.AccessControl) error {
	// Scalar fields only; the rule tree is replaced explicitly by the service.
	return GetDB(ctx, r.db).Omit("RuleGroups").Save(ac).Error
}

func (r *accessControlRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.AccessControl, error) {
	var ac model.AccessControl
	if err := withRuleTree(GetDB(ctx, r.db)).First(&ac, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ac, nil
}

func (r *accessControlRepository) FindByResource(ctx context.Context, resourceType, resourceID string) (*model.AccessControl, error) {
	var ac model.AccessControl
	err := GetDB(ctx, r.db).
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		First(&ac).Error
	if err != nil {
		return nil, err
	}
	return &ac, nil
}

// withListFilters scopes the query to complex controls and applies the
// optional resource-type filter and free-text search. Search matches the
// resource id or any rule group name, case-insensitively.
func withListFilters(db *gorm.DB, resourceType, search string) *gorm.DB {
	query := db.Where("evaluation_strategy = ?", model.EvaluationStrategyComplex)

	if resourceType != "" {
		query = query.Where("resource_type = ?", resourceType)
	}
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"resource_id ILIKE ? OR EXISTS (SELECT 1 FROM rule_groups WHERE rule_groups.access_control_id = access_controls.id AND rule_groups.name ILIKE ?)",
			pattern, pattern)
	}

	return query
}

func (r *accessControlRepository) List(ctx context.Context, resourceType, search string, page, limit int) ([]model.AccessControl, int64, error) {
	var controls []model.AccessControl
	var total int64

	db := GetDB(ctx, r.db)

	if err := withListFilters(db.Model(&model.AccessControl{}), resourceType, search).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := withRuleTree(withListFilters(db.Model(&model.AccessControl{}), resourceType, search))
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&controls).Error; err != nil {
		return nil, 0, err
	}

	return controls, total, nil
}

func (r *accessControlRepository) DeleteRuleGroupsByControlID(ctx context.Context, controlID uuid.UUID) error {
	// Cascades to complex_rules and rule_conditions through the FKs.
	return GetDB(ctx, r.db).Where("access_control_id = ?", controlID).Delete(&model.RuleGroup{}).Error
}

func (r *accessControlRepository) CreateRuleGroups(ctx context.Context, groups []model.RuleGroup) error {
	if len(groups) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&groups).Error
}

// DeleteComplexByIDs removes only controls whose strategy is COMPLEX; ids
// pointing at other strategies (or at nothing) are skipped, not errors.
func (r *accessControlRepository) DeleteComplexByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).
		Where("id IN ? AND evaluation_strategy = ?", ids, model.EvaluationStrategyComplex).
		Delete(&model.AccessControl{})
	return res.RowsAffected, res.Error
}
