// db/repo_inventory.go
package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"Gin_postgres_redis_lending/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedCategories makes sure the fixed categories exist; returns how many were created.
func (r *Repo) SeedCategories(ctx context.Context) (int, error) {
	created := 0
	for _, c := range models.DefaultCategories {
		cat := c
		res := r.DB.WithContext(ctx).
			Where(models.Category{Name: cat.Name}).
			Attrs(models.Category{Description: cat.Description}).
			FirstOrCreate(&cat)
		if res.Error != nil {
			return created, res.Error
		}
		if res.RowsAffected > 0 {
			created++
		}
	}
	return created, nil
}

type CategorySummary struct {
	ID                 uint                `json:"id"`
	Name               models.CategoryType `json:"name"`
	DisplayName        string              `json:"display_name" gorm:"-"`
	Description        string              `json:"description"`
	ItemCount          int64               `json:"item_count"`
	TotalInstances     int64               `json:"total_instances"`
	AvailableInstances int64               `json:"available_instances"`
}

func (r *Repo) ListCategorySummaries(ctx context.Context) ([]CategorySummary, error) {
	var rows []CategorySummary
	err := r.DB.WithContext(ctx).
		Table(models.CategoryTable+" c").
		Select(`
			c.id, c.name, c.description,
			COUNT(DISTINCT i.id) AS item_count,
			COUNT(ii.id) AS total_instances,
			COUNT(ii.id) FILTER (WHERE ii.status = ?) AS available_instances
		`, models.InstanceAvailable).
		Joins("LEFT JOIN "+models.ItemTable+" i ON i.category_id = c.id").
		Joins("LEFT JOIN "+models.InstanceTable+" ii ON ii.item_id = i.id").
		Group("c.id").
		Order("c.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].DisplayName = rows[i].Name.DisplayName()
	}
	return rows, nil
}

func (r *Repo) FindCategory(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := r.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err, "Category not found.")
	}
	return &c, nil
}

type InstanceView struct {
	ID            string                `json:"id"`
	ReferenceID   string                `json:"reference_id"`
	Status        models.InstanceStatus `json:"status"`
	StatusDisplay string                `json:"status_display"`
	Notes         string                `json:"notes"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type ItemStock struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	TotalQuantity   int            `json:"total_quantity"`
	AvailableCount  int            `json:"available_count"`
	InUseCount      int            `json:"in_use_count"`
	FaultyCount     int            `json:"faulty_count"`
	InRepairCount   int            `json:"in_repair_count"`
	OutOfStockCount int            `json:"out_of_stock_count"`
	Instances       []InstanceView `json:"instances,omitempty"`
}

// ListCategoryItems returns the items of a category with per-status instance counts.
func (r *Repo) ListCategoryItems(ctx context.Context, categoryID uint, withInstances bool) (*models.Category, []ItemStock, error) {
	cat, err := r.FindCategory(ctx, categoryID)
	if err != nil {
		return nil, nil, err
	}

	var items []models.Item
	if err := r.DB.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("name").
		Find(&items).Error; err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return cat, []ItemStock{}, nil
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	var insts []models.ItemInstance
	if err := r.DB.WithContext(ctx).
		Where("item_id IN ?", ids).
		Order("reference_id").
		Find(&insts).Error; err != nil {
		return nil, nil, err
	}

	byItem := make(map[string]*ItemStock, len(items))
	out := make([]ItemStock, len(items))
	for i, it := range items {
		out[i] = ItemStock{ID: it.ID, Name: it.Name, Description: it.Description}
		byItem[it.ID] = &out[i]
	}
	for _, in := range insts {
		s := byItem[in.ItemID]
		s.TotalQuantity++
		switch in.Status {
		case models.InstanceAvailable:
			s.AvailableCount++
		case models.InstanceInUse:
			s.InUseCount++
		case models.InstanceFaulty:
			s.FaultyCount++
		case models.InstanceInRepair:
			s.InRepairCount++
		case models.InstanceOutOfStock:
			s.OutOfStockCount++
		}
		if withInstances {
			s.Instances = append(s.Instances, toInstanceView(in))
		}
	}
	return cat, out, nil
}

func toInstanceView(in models.ItemInstance) InstanceView {
	return InstanceView{
		ID:            in.ID,
		ReferenceID:   in.ReferenceID,
		Status:        in.Status,
		StatusDisplay: in.Status.DisplayName(),
		Notes:         in.Notes,
		CreatedAt:     in.CreatedAt,
		UpdatedAt:     in.UpdatedAt,
	}
}

// Items

func (r *Repo) FindItemByID(ctx context.Context, id string) (*models.Item, error) {
	var it models.Item
	if err := r.DB.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "Item not found.")
	}
	return &it, nil
}

func (r *Repo) CreateItem(ctx context.Context, categoryID uint, name, description string) (*models.Item, *models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, NewInvalidArgumentError("Item name is required.")
	}
	cat, err := r.FindCategory(ctx, categoryID)
	if err != nil {
		return nil, nil, err
	}
	it := &models.Item{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CategoryID:  &cat.ID,
	}
	if err := r.DB.WithContext(ctx).Create(it).Error; err != nil {
		return nil, nil, err
	}
	return it, cat, nil
}

// Instances

func (r *Repo) AddInstance(ctx context.Context, itemID, referenceID, notes string) (*models.ItemInstance, error) {
	referenceID = strings.TrimSpace(referenceID)
	if referenceID == "" {
		return nil, NewInvalidArgumentError("Reference ID is required.")
	}
	var inst *models.ItemInstance
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it models.Item
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&it, "id = ?", itemID).Error; err != nil {
			return notFound(err, "Item not found.")
		}
		var n int64
		if err := tx.Model(&models.ItemInstance{}).
			Where("reference_id = ?", referenceID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return NewInvalidArgumentError("Reference ID already exists.")
		}
		in := &models.ItemInstance{
			ID:          uuid.NewString(),
			ItemID:      it.ID,
			ReferenceID: referenceID,
			Status:      models.InstanceAvailable,
			Notes:       notes,
		}
		if err := tx.Create(in).Error; err != nil {
			if IsUniqueViolation(err) {
				return NewInvalidArgumentError("Reference ID already exists.")
			}
			return err
		}
		inst = in
		return r.recountItem(tx, it.ID)
	})
	return inst, err
}

type UpdateInstanceInput struct {
	Status *models.InstanceStatus
	Notes  *string
}

// UpdateInstance changes status and/or notes. Unknown statuses are ignored; a unit
// held by an open borrow keeps its status.
func (r *Repo) UpdateInstance(ctx context.Context, instanceID string, in UpdateInstanceInput) (*models.ItemInstance, error) {
	var inst models.ItemInstance
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&inst, "id = ?", instanceID).Error; err != nil {
			return notFound(err, "Item instance not found.")
		}
		if in.Status != nil && in.Status.Valid() && *in.Status != inst.Status {
			open, err := countOpenBorrows(tx, inst.ID, models.OpenBorrowStatuses)
			if err != nil {
				return err
			}
			if open > 0 {
				return NewConflictError("Item instance has an open borrow; close the borrow first.")
			}
			inst.Status = *in.Status
		}
		if in.Notes != nil {
			inst.Notes = *in.Notes
		}
		if err := tx.Save(&inst).Error; err != nil {
			return err
		}
		return r.recountItem(tx, inst.ItemID)
	})
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *Repo) DeleteInstance(ctx context.Context, instanceID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inst models.ItemInstance
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&inst, "id = ?", instanceID).Error; err != nil {
			return notFound(err, "Item instance not found.")
		}
		out, err := countOpenBorrows(tx, inst.ID, []models.BorrowStatus{models.BorrowActive, models.BorrowLate})
		if err != nil {
			return err
		}
		if out > 0 {
			return NewInvalidArgumentError("Cannot delete item instance that is currently borrowed.")
		}
		pending, err := countOpenBorrows(tx, inst.ID, []models.BorrowStatus{models.BorrowPending})
		if err != nil {
			return err
		}
		if pending > 0 {
			return NewInvalidArgumentError("Cannot delete item instance with a pending borrow request.")
		}
		if err := tx.Delete(&inst).Error; err != nil {
			return err
		}
		return r.recountItem(tx, inst.ItemID)
	})
}

type ScannedInstance struct {
	ID          string                `json:"id"`
	ReferenceID string                `json:"reference_id"`
	ItemName    string                `json:"item_name"`
	ItemID      string                `json:"item_id"`
	Category    string                `json:"category"`
	Status      models.InstanceStatus `json:"status"`
	Notes       string                `json:"notes"`
}

func (r *Repo) ScanInstance(ctx context.Context, referenceID string) (*ScannedInstance, error) {
	var inst models.ItemInstance
	err := r.DB.WithContext(ctx).
		Preload("Item.Category").
		Where("reference_id = ?", referenceID).
		First(&inst).Error
	if err != nil {
		return nil, notFound(err, "Item not found with this barcode.")
	}
	out := &ScannedInstance{
		ID:          inst.ID,
		ReferenceID: inst.ReferenceID,
		ItemID:      inst.ItemID,
		Category:    "N/A",
		Status:      inst.Status,
		Notes:       inst.Notes,
	}
	if inst.Item != nil {
		out.ItemName = inst.Item.Name
		if inst.Item.Category != nil {
			out.Category = inst.Item.Category.Name.DisplayName()
		}
	}
	return out, nil
}

// helpers shared with the borrow transitions

func countOpenBorrows(tx *gorm.DB, instanceID string, statuses []models.BorrowStatus) (int64, error) {
	var n int64
	err := tx.Model(&models.Borrow{}).
		Where("item_instance_id = ? AND status IN ?", instanceID, statuses).
		Count(&n).Error
	return n, err
}

// recountItem recomputes the denormalized counters from the instances.
func (r *Repo) recountItem(tx *gorm.DB, itemID string) error {
	return tx.Model(&models.Item{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"quantity": gorm.Expr("(SELECT COUNT(*) FROM "+models.InstanceTable+" WHERE item_id = ?)", itemID),
			"available": gorm.Expr("(SELECT COUNT(*) FROM "+models.InstanceTable+" WHERE item_id = ? AND status = ?)",
				itemID, models.InstanceAvailable),
			"updated_at": r.Clock.Now(),
		}).Error
}

func (r *Repo) setInstanceStatus(tx *gorm.DB, inst *models.ItemInstance, status models.InstanceStatus) error {
	if inst.Status == status {
		return nil
	}
	inst.Status = status
	if err := tx.Model(inst).Update("status", status).Error; err != nil {
		return err
	}
	return r.recountItem(tx, inst.ItemID)
}

func lockInstance(tx *gorm.DB, instanceID string) (*models.ItemInstance, error) {
	var inst models.ItemInstance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inst, "id = ?", instanceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("Item instance not found.")
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}
