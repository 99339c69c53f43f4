// Package handlers exposes the board over HTTP for the game-server client:
// order lifecycle, operator orders, categories and player statistics.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/thornegames/orderboard/internal/category"
	"github.com/thornegames/orderboard/internal/config"
	"github.com/thornegames/orderboard/internal/engine"
	"github.com/thornegames/orderboard/internal/idempotency"
	"github.com/thornegames/orderboard/internal/market"
	"github.com/thornegames/orderboard/internal/stats"
	"github.com/thornegames/orderboard/internal/validation"
)

// HandlerConfig groups dependencies for the board API.
type HandlerConfig struct {
	Engine     *engine.Engine
	Stats      *stats.Manager
	Categories *category.Index
	CreateKeys *idempotency.Store
	Settings   *config.Holder
	Log        *logrus.Logger
}

type api struct {
	cfg HandlerConfig
	v   *validatorv10.Validate
	log *logrus.Logger
}

// RegisterRoutes registers the board API on the given router.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	log := cfg.Log
	if log == nil {
		log = logrus.New()
	}
	a := &api{cfg: cfg, v: validation.New(), log: log}

	r.POST("/orders", a.createOrder)
	r.GET("/orders", a.listOrders)
	r.GET("/orders/:id", a.getOrder)
	r.POST("/orders/:id/deliver", a.deliver)
	r.POST("/orders/:id/collect", a.collect)
	r.POST("/orders/:id/cancel", a.cancel)

	r.POST("/admin/orders", a.createAdminOrder)
	r.GET("/admin/orders", a.listAdminOrders)
	r.DELETE("/admin/orders/:id", a.removeAdminOrder)

	r.GET("/categories", a.listCategories)
	r.POST("/categories", a.createCategory)
	r.PUT("/categories/:id", a.renameCategory)
	r.DELETE("/categories/:id", a.deleteCategory)
	r.GET("/categories/:id/orders", a.categoryOrders)

	r.GET("/players/:id/stats", a.playerStats)
}

// createOrder reserves funds and inserts a new player order. The
// Idempotency-Key header is mandatory: creation withdraws money, and a
// client retry after a dropped response must replay the first outcome
// instead of charging again.
func (a *api) createOrder(c *gin.Context) {
	ctx := c.Request.Context()

	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}

	idempKey := c.GetHeader("Idempotency-Key")
	if idempKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_idempotency_key"})
		return
	}

	created, err := a.cfg.CreateKeys.CreateIfNotExists(ctx, idempKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": err.Error()})
		return
	}
	if !created {
		a.replayCreateKey(c, idempKey)
		return
	}

	order, err := a.cfg.Engine.CreateOrder(ctx, engine.CreateRequest{
		Owner:          engine.Identity{ID: req.Actor.PlayerID, Name: req.Actor.PlayerName},
		Item:           itemFromSpec(req.Item),
		Amount:         req.Amount,
		UnitPrice:      req.UnitPrice,
		Highlight:      req.Highlight,
		ExpirationDays: req.ExpirationDays,
	})
	if err != nil {
		_ = a.cfg.CreateKeys.MarkFailed(ctx, idempKey, err.Error())
		a.writeEngineError(c, err)
		return
	}

	view := viewOrder(order)
	body, _ := json.Marshal(view)
	if err := a.cfg.CreateKeys.MarkDone(ctx, idempKey, order.ID, string(body), http.StatusCreated); err != nil {
		a.log.WithError(err).WithField("key", idempKey).Warn("mark create key done failed")
	}

	c.Header("Location", fmt.Sprintf("/orders/%s", order.ID))
	c.JSON(http.StatusCreated, view)
}

// replayCreateKey handles a duplicate Idempotency-Key per the stored state
// of the first attempt.
func (a *api) replayCreateKey(c *gin.Context, key string) {
	rec, err := a.cfg.CreateKeys.Get(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_key_missing"})
		return
	}
	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" {
			c.Data(rec.ResponseStatus, "application/json", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"order_id": rec.OrderID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress"})
	case idempotency.StatusFailed:
		c.JSON(http.StatusConflict, gin.H{"error": "previous_attempt_failed", "detail": rec.Note})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_create_key_status"})
	}
}

// listOrders returns active orders highlighted-first, the board's default
// view. Filters: owner (id), owner_name, item (substring), all=true to
// include tombstones awaiting collection.
func (a *api) listOrders(c *gin.Context) {
	store := a.cfg.Engine.Store()

	var orders []*market.Order
	switch {
	case c.Query("owner") != "":
		orders = store.ListByOwner(c.Query("owner"))
	case c.Query("owner_name") != "":
		orders = store.ListByOwnerName(c.Query("owner_name"))
	case c.Query("item") != "":
		orders = store.ListActiveByItem(c.Query("item"))
	case c.Query("all") == "true":
		orders = store.ListAll()
	default:
		orders = store.HighlightedFirst()
	}

	c.JSON(http.StatusOK, gin.H{"orders": viewOrders(orders)})
}

func (a *api) getOrder(c *gin.Context) {
	id := c.Param("id")
	if o, ok := a.cfg.Engine.Store().Get(id); ok {
		c.JSON(http.StatusOK, viewOrder(o))
		return
	}
	if o, ok := a.cfg.Engine.AdminStore().Get(id); ok {
		c.JSON(http.StatusOK, viewAdminOrder(o, a.cfg.Engine.Now()))
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
}

func (a *api) deliver(c *gin.Context) {
	var req validation.DeliverRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}

	res, err := a.cfg.Engine.Deliver(c.Request.Context(), c.Param("id"),
		engine.Identity{ID: req.Actor.PlayerID, Name: req.Actor.PlayerName},
		engine.DeliveryBatch{Item: itemFromSpec(req.Item), Units: req.Units})
	if err != nil {
		// returned units ride along so the client can hand items back
		a.writeEngineErrorWith(c, err, gin.H{"returned": res.Returned})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accepted":  res.Accepted,
		"returned":  res.Returned,
		"earnings":  res.Earnings,
		"completed": res.Completed,
	})
}

func (a *api) collect(c *gin.Context) {
	var req validation.CollectRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}

	res, err := a.cfg.Engine.Collect(c.Request.Context(), c.Param("id"),
		engine.Identity{ID: req.Actor.PlayerID, Name: req.Actor.PlayerName},
		req.Capacity, req.Operator)
	if err != nil {
		a.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"collected": res.Collected,
		"archived":  res.Archived,
	})
}

func (a *api) cancel(c *gin.Context) {
	var req validation.CancelRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}

	err := a.cfg.Engine.Cancel(c.Request.Context(), c.Param("id"),
		engine.Identity{ID: req.Actor.PlayerID, Name: req.Actor.PlayerName}, req.Operator)
	if err != nil {
		a.writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (a *api) createAdminOrder(c *gin.Context) {
	var req validation.CreateAdminOrderRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}

	if req.CategoryID != "" {
		if _, err := a.cfg.Categories.Get(req.CategoryID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_category"})
			return
		}
	}

	order, err := a.cfg.Engine.CreateAdminOrder(c.Request.Context(), engine.CreateAdminRequest{
		Item:           itemFromSpec(req.Item),
		Amount:         req.Amount,
		UnitPrice:      req.UnitPrice,
		Highlight:      req.Highlight,
		ExpirationDays: req.ExpirationDays,
		CategoryID:     req.CategoryID,
		CustomName:     req.CustomName,
		Cooldown:       secondsToDuration(req.CooldownSeconds),
		Repeatable:     req.Repeatable,
	})
	if err != nil {
		a.writeEngineError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/orders/%s", order.ID))
	c.JSON(http.StatusCreated, viewAdminOrder(order, a.cfg.Engine.Now()))
}

// listAdminOrders filters: category, state=active|cooldown, default all.
func (a *api) listAdminOrders(c *gin.Context) {
	store := a.cfg.Engine.AdminStore()
	now := a.cfg.Engine.Now()

	var orders []*market.AdminOrder
	switch {
	case c.Query("category") != "":
		orders = store.ListByCategory(c.Query("category"))
	case c.Query("state") == "active":
		orders = store.ListActive(now)
	case c.Query("state") == "cooldown":
		orders = store.ListInCooldown(now)
	default:
		orders = store.ListAll()
	}

	c.JSON(http.StatusOK, gin.H{"orders": viewAdminOrders(orders, now)})
}

func (a *api) removeAdminOrder(c *gin.Context) {
	if err := a.cfg.Engine.RemoveAdminOrder(c.Request.Context(), c.Param("id")); err != nil {
		a.writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

func (a *api) listCategories(c *gin.Context) {
	cats := a.cfg.Categories.List()
	out := make([]categoryView, 0, len(cats))
	for _, cat := range cats {
		out = append(out, viewCategory(cat))
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

func (a *api) createCategory(c *gin.Context) {
	var req validation.CreateCategoryRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}

	cat, err := a.cfg.Categories.Create(c.Request.Context(), req.Name, req.DisplayItem)
	if err != nil {
		if errors.Is(err, category.ErrCategoryExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "category_exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_category_failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, viewCategory(cat))
}

func (a *api) renameCategory(c *gin.Context) {
	var req validation.RenameCategoryRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}

	cat, err := a.cfg.Categories.Rename(c.Request.Context(), c.Param("id"), req.Name)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, viewCategory(cat))
	case errors.Is(err, category.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "category_not_found"})
	case errors.Is(err, category.ErrCategoryExists):
		c.JSON(http.StatusConflict, gin.H{"error": "category_exists"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "rename_category_failed", "detail": err.Error()})
	}
}

func (a *api) deleteCategory(c *gin.Context) {
	err := a.cfg.Categories.Delete(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	case errors.Is(err, category.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "category_not_found"})
	case errors.Is(err, category.ErrCategoryInUse):
		c.JSON(http.StatusConflict, gin.H{"error": "category_in_use"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_category_failed", "detail": err.Error()})
	}
}

func (a *api) categoryOrders(c *gin.Context) {
	orders, err := a.cfg.Categories.Orders(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "category_not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": viewAdminOrders(orders, a.cfg.Engine.Now())})
}

func (a *api) playerStats(c *gin.Context) {
	id := c.Param("id")
	s := a.cfg.Stats.Get(engine.Identity{ID: id, Name: c.Query("name")})
	c.JSON(http.StatusOK, viewStats(s))
}

func (a *api) writeEngineError(c *gin.Context, err error) {
	a.writeEngineErrorWith(c, err, nil)
}

// writeEngineErrorWith maps engine sentinels to HTTP statuses. extra fields
// are merged into the error body.
func (a *api) writeEngineErrorWith(c *gin.Context, err error, extra gin.H) {
	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, engine.ErrOrderNotFound):
		status, code = http.StatusNotFound, "order_not_found"
	case errors.Is(err, engine.ErrNotOwner):
		status, code = http.StatusForbidden, "not_owner"
	case errors.Is(err, engine.ErrOrderNotActive):
		status, code = http.StatusConflict, "order_not_active"
	case errors.Is(err, engine.ErrWrongItem):
		status, code = http.StatusConflict, "wrong_item"
	case errors.Is(err, engine.ErrInventoryFull):
		status, code = http.StatusConflict, "inventory_full"
	case errors.Is(err, engine.ErrOrderLimitReached):
		status, code = http.StatusConflict, "order_limit_reached"
	case errors.Is(err, engine.ErrInsufficientFunds):
		status, code = http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, engine.ErrInvalidItem):
		status, code = http.StatusBadRequest, "invalid_item"
	case errors.Is(err, engine.ErrInvalidQuantity):
		status, code = http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, engine.ErrPriceTooLow):
		status, code = http.StatusBadRequest, "price_too_low"
	case errors.Is(err, engine.ErrPriceTooHigh):
		status, code = http.StatusBadRequest, "price_too_high"
	case errors.Is(err, engine.ErrLedger):
		status, code = http.StatusBadGateway, "ledger_unavailable"
	}

	body := gin.H{"error": code, "detail": err.Error()}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

func itemFromSpec(spec validation.ItemSpec) market.Item {
	return market.Item{
		Kind:         spec.Kind,
		Enchantments: spec.Enchantments,
		CustomItemID: spec.CustomItemID,
	}
}

func secondsToDuration(secs int64) time.Duration {
	return time.Duration(secs) * time.Second
}
