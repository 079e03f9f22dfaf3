package controllers

import (
	"fencing-backend/middlewares"
	"fencing-backend/models"
	"fencing-backend/services"
	"fencing-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type catalogItemInput struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Price         decimal.Decimal `json:"price"`
	Unit          string          `json:"unit" validate:"max=32"`
	Category      string          `json:"category" validate:"max=64"`
	StockQuantity int             `json:"stockQuantity" validate:"min=0"`
}

type catalogItemPatch struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Price         *decimal.Decimal `json:"price"`
	Unit          *string          `json:"unit" validate:"omitempty,max=32"`
	Category      *string          `json:"category" validate:"omitempty,max=64"`
	StockQuantity *int             `json:"stockQuantity" validate:"omitempty,min=0"`
}

func nonNegative(field string, d *decimal.Decimal) error {
	if d != nil && d.IsNegative() {
		return &services.ValidationError{Field: field, Message: "must not be negative"}
	}
	return nil
}

func (h *Handler) GetCatalogItems(c *fiber.Ctx) error {
	q := h.DB.WithContext(c.UserContext())
	if cat := c.Query("category"); cat != "" {
		q = q.Where("category = ?", cat)
	}
	var items []models.CatalogItem
	if err := q.Order("category").Order("name").Find(&items).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

func (h *Handler) GetCatalogItem(c *fiber.Ctx) error {
	var item models.CatalogItem
	if err := h.findByID(c, &item, "catalog item"); err != nil {
		return err
	}
	return c.JSON(item)
}

func (h *Handler) CreateCatalogItem(c *fiber.Ctx) error {
	var in catalogItemInput
	if err := middlewares.BindInput(c, &in); err != nil {
		return err
	}
	if err := nonNegative("price", &in.Price); err != nil {
		return err
	}

	item := models.CatalogItem{
		Name:          in.Name,
		Price:         in.Price,
		Unit:          in.Unit,
		Category:      in.Category,
		StockQuantity: in.StockQuantity,
	}
	if err := h.DB.WithContext(c.UserContext()).Create(&item).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *Handler) UpdateCatalogItem(c *fiber.Ctx) error {
	var item models.CatalogItem
	if err := h.findByID(c, &item, "catalog item"); err != nil {
		return err
	}
	var in catalogItemPatch
	if err := middlewares.BindPatch(c, &in); err != nil {
		return err
	}
	if err := nonNegative("price", in.Price); err != nil {
		return err
	}

	if updates := utils.UpdatesFromPtrDTO(&in); len(updates) > 0 {
		if err := h.DB.WithContext(c.UserContext()).Model(&item).Updates(updates).Error; err != nil {
			return err
		}
	}
	return c.JSON(item)
}

func (h *Handler) DeleteCatalogItem(c *fiber.Ctx) error {
	var item models.CatalogItem
	if err := h.findByID(c, &item, "catalog item"); err != nil {
		return err
	}
	db := h.DB.WithContext(c.UserContext())
	var uses int64
	if err := db.Model(&models.ServiceMaterial{}).Where("catalog_item_id = ?", item.ID).Count(&uses).Error; err != nil {
		return err
	}
	if uses > 0 {
		return services.NewDomainError("catalog item is used by a fencing service")
	}
	if err := db.Delete(&item).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- Fencing services

type materialInput struct {
	CatalogItemID    string          `json:"catalogItemId" validate:"required,uuid"`
	QuantityPerMeter decimal.Decimal `json:"quantityPerMeter"`
}

type fencingServiceInput struct {
	Name           string           `json:"name" validate:"required,max=200"`
	Description    string           `json:"description" validate:"max=2000"`
	PricePerMeter  decimal.Decimal  `json:"pricePerMeter"`
	StandardHeight decimal.Decimal  `json:"standardHeight"`
	Active         *bool            `json:"active"`
	Materials      *[]materialInput `json:"materials" validate:"omitempty,dive"`
}

func (in *fencingServiceInput) check() error {
	if in.PricePerMeter.IsNegative() {
		return &services.ValidationError{Field: "pricePerMeter", Message: "must not be negative"}
	}
	if !in.StandardHeight.IsPositive() {
		return &services.ValidationError{Field: "standardHeight", Message: "must be greater than zero"}
	}
	if in.Materials != nil {
		for _, m := range *in.Materials {
			if !m.QuantityPerMeter.IsPositive() {
				return &services.ValidationError{Field: "materials", Message: "quantityPerMeter must be greater than zero"}
			}
		}
	}
	return nil
}

func (in *fencingServiceInput) materials(tx *gorm.DB) ([]models.ServiceMaterial, error) {
	if in.Materials == nil {
		return nil, nil
	}
	out := make([]models.ServiceMaterial, 0, len(*in.Materials))
	ids := make([]string, 0, len(*in.Materials))
	for _, m := range *in.Materials {
		ids = append(ids, m.CatalogItemID)
		out = append(out, models.ServiceMaterial{CatalogItemID: m.CatalogItemID, QuantityPerMeter: m.QuantityPerMeter})
	}
	var found int64
	if err := tx.Model(&models.CatalogItem{}).Where("id IN ?", ids).Distinct("id").Count(&found).Error; err != nil {
		return nil, err
	}
	unique := map[string]struct{}{}
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	if int(found) != len(unique) {
		return nil, &services.ValidationError{Field: "materials", Message: "references an unknown catalog item"}
	}
	return out, nil
}

func (h *Handler) GetFencingServices(c *fiber.Ctx) error {
	q := h.DB.WithContext(c.UserContext()).Preload("Materials.CatalogItem")
	if c.Query("active") == "true" {
		q = q.Where("active = ?", true)
	}
	var list []models.FencingService
	if err := q.Order("name").Find(&list).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"services": list})
}

func (h *Handler) GetFencingService(c *fiber.Ctx) error {
	var svc models.FencingService
	err := h.DB.WithContext(c.UserContext()).Preload("Materials.CatalogItem").First(&svc, "id = ?", c.Params("id")).Error
	if err != nil {
		return notFound("fencing service", err)
	}
	return c.JSON(svc)
}

func (h *Handler) CreateFencingService(c *fiber.Ctx) error {
	var in fencingServiceInput
	if err := middlewares.BindInput(c, &in); err != nil {
		return err
	}
	if err := in.check(); err != nil {
		return err
	}

	svc := models.FencingService{
		Name:           in.Name,
		Description:    in.Description,
		PricePerMeter:  in.PricePerMeter,
		StandardHeight: in.StandardHeight,
		Active:         in.Active == nil || *in.Active,
	}
	err := h.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		mats, err := in.materials(tx)
		if err != nil {
			return err
		}
		svc.Materials = mats
		return tx.Omit("Materials.CatalogItem").Create(&svc).Error
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(svc)
}

// UpdateFencingService replaces the service fields; a materials array, when
// present, replaces the whole bill of materials.
func (h *Handler) UpdateFencingService(c *fiber.Ctx) error {
	var svc models.FencingService
	if err := h.findByID(c, &svc, "fencing service"); err != nil {
		return err
	}
	var in fencingServiceInput
	if err := middlewares.BindInput(c, &in); err != nil {
		return err
	}
	if err := in.check(); err != nil {
		return err
	}

	err := h.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"name":            in.Name,
			"description":     in.Description,
			"price_per_meter": in.PricePerMeter,
			"standard_height": in.StandardHeight,
		}
		if in.Active != nil {
			updates["active"] = *in.Active
		}
		if err := tx.Model(&models.FencingService{}).Where("id = ?", svc.ID).Updates(updates).Error; err != nil {
			return err
		}
		if in.Materials == nil {
			return nil
		}
		mats, err := in.materials(tx)
		if err != nil {
			return err
		}
		if err := tx.Where("service_id = ?", svc.ID).Delete(&models.ServiceMaterial{}).Error; err != nil {
			return err
		}
		for i := range mats {
			mats[i].ServiceID = svc.ID
		}
		if len(mats) == 0 {
			return nil
		}
		return tx.Omit("CatalogItem").Create(&mats).Error
	})
	if err != nil {
		return err
	}

	if err := h.DB.WithContext(c.UserContext()).Preload("Materials.CatalogItem").First(&svc, "id = ?", svc.ID).Error; err != nil {
		return err
	}
	return c.JSON(svc)
}

func (h *Handler) DeleteFencingService(c *fiber.Ctx) error {
	var svc models.FencingService
	if err := h.findByID(c, &svc, "fencing service"); err != nil {
		return err
	}
	db := h.DB.WithContext(c.UserContext())
	var quotes int64
	if err := db.Model(&models.FenceQuote{}).Where("fencing_service_id = ?", svc.ID).Count(&quotes).Error; err != nil {
		return err
	}
	if quotes > 0 {
		return services.NewDomainError("fencing service is quoted and cannot be deleted, deactivate it instead")
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("service_id = ?", svc.ID).Delete(&models.ServiceMaterial{}).Error; err != nil {
			return err
		}
		return tx.Delete(&svc).Error
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- Add-ons

type addonInput struct {
	Name   string          `json:"name" validate:"required,max=200"`
	Price  decimal.Decimal `json:"price"`
	Active *bool           `json:"active"`
}

type addonPatch struct {
	Name   *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Price  *decimal.Decimal `json:"price"`
	Active *bool            `json:"active"`
}

func (h *Handler) GetFencingAddons(c *fiber.Ctx) error {
	q := h.DB.WithContext(c.UserContext())
	if c.Query("active") == "true" {
		q = q.Where("active = ?", true)
	}
	var addons []models.FencingAddon
	if err := q.Order("name").Find(&addons).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"addons": addons})
}

func (h *Handler) CreateFencingAddon(c *fiber.Ctx) error {
	var in addonInput
	if err := middlewares.BindInput(c, &in); err != nil {
		return err
	}
	if err := nonNegative("price", &in.Price); err != nil {
		return err
	}
	addon := models.FencingAddon{Name: in.Name, Price: in.Price, Active: in.Active == nil || *in.Active}
	if err := h.DB.WithContext(c.UserContext()).Create(&addon).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(addon)
}

func (h *Handler) UpdateFencingAddon(c *fiber.Ctx) error {
	var addon models.FencingAddon
	if err := h.findByID(c, &addon, "add-on"); err != nil {
		return err
	}
	var in addonPatch
	if err := middlewares.BindPatch(c, &in); err != nil {
		return err
	}
	if err := nonNegative("price", in.Price); err != nil {
		return err
	}
	if updates := utils.UpdatesFromPtrDTO(&in); len(updates) > 0 {
		if err := h.DB.WithContext(c.UserContext()).Model(&addon).Updates(updates).Error; err != nil {
			return err
		}
	}
	return c.JSON(addon)
}

func (h *Handler) DeleteFencingAddon(c *fiber.Ctx) error {
	var addon models.FencingAddon
	if err := h.findByID(c, &addon, "add-on"); err != nil {
		return err
	}
	db := h.DB.WithContext(c.UserContext())
	var uses int64
	if err := db.Table("quote_addons").Where("fencing_addon_id = ?", addon.ID).Count(&uses).Error; err != nil {
		return err
	}
	if uses > 0 {
		return services.NewDomainError("add-on is quoted and cannot be deleted, deactivate it instead")
	}
	if err := db.Delete(&addon).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
