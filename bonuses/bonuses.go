package bonuses

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"betcompare/analytics"
	"betcompare/auth"
	"betcompare/cache"
	"betcompare/common"
	"betcompare/models"
	"betcompare/validation"
)

type BonusesModule struct {
	db      *gorm.DB
	tracker *analytics.Tracker
}

func NewBonusesModule(db *gorm.DB, tracker *analytics.Tracker) *BonusesModule {
	return &BonusesModule{db: db, tracker: tracker}
}

func (m *BonusesModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/bonuses")
	{
		group.GET("", m.list)
		group.GET("/expiring", m.expiring)
		group.GET("/:id", m.getByID)
		group.POST("/:id/track-impression", m.trackImpression)
		group.POST("/:id/track-click", m.trackClick)
		group.POST("", auth.RequireAuth(), m.create)
		group.PUT("/:id", auth.RequireAuth(), m.update)
		group.DELETE("/:id", auth.RequireAuth(), m.delete)
	}
}

type bonusItem struct {
	models.Bonus
	Bookmaker models.BookmakerSummary `json:"bookmaker"`
}

// activeScope limits a query to bonuses that can currently be shown:
// flagged active and inside their validity window.
func activeScope(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Model(&models.Bonus{}).
		Where("active = ? AND valid_from <= ? AND valid_until >= ?", true, now, now)
}

func (m *BonusesModule) list(c *gin.Context) {
	page, limit := common.PageParams(c)

	query := activeScope(m.db, time.Now())
	if bonusType := c.Query("type"); bonusType != "" {
		query = query.Where("type = ?", bonusType)
	}
	if bookmakerID := c.Query("bookmaker"); bookmakerID != "" {
		query = query.Where("bookmaker_id = ?", bookmakerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	var bonuses []models.Bonus
	if err := query.Order("exclusive DESC, amount DESC").
		Offset(common.Offset(page, limit)).
		Limit(limit).
		Find(&bonuses).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	items, err := m.denormalize(bonuses)
	if err != nil {
		common.ServerError(c, err)
		return
	}

	common.OKList(c, items, common.Paginate(page, limit, total))
}

// expiring lists active bonuses whose window closes within ?days
// (default 7), soonest first.
func (m *BonusesModule) expiring(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	if days < 1 {
		days = 1
	}

	now := time.Now()
	cutoff := now.AddDate(0, 0, days)

	var bonuses []models.Bonus
	if err := activeScope(m.db, now).
		Where("valid_until <= ?", cutoff).
		Order("valid_until ASC").
		Find(&bonuses).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	items, err := m.denormalize(bonuses)
	if err != nil {
		common.ServerError(c, err)
		return
	}
	common.OK(c, items)
}

func (m *BonusesModule) denormalize(bonuses []models.Bonus) ([]bonusItem, error) {
	items := make([]bonusItem, 0, len(bonuses))
	for _, bonus := range bonuses {
		var bookmaker models.Bookmaker
		if err := m.db.First(&bookmaker, bonus.BookmakerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				items = append(items, bonusItem{Bonus: bonus})
				continue
			}
			return nil, err
		}
		items = append(items, bonusItem{Bonus: bonus, Bookmaker: bookmaker.Summary()})
	}
	return items, nil
}

func (m *BonusesModule) getByID(c *gin.Context) {
	var bonus models.Bonus
	if err := m.db.First(&bonus, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.NotFound(c, "bonus not found")
			return
		}
		common.ServerError(c, err)
		return
	}

	items, err := m.denormalize([]models.Bonus{bonus})
	if err != nil {
		common.ServerError(c, err)
		return
	}
	common.OK(c, items[0])
}

// trackImpression bumps the impression counter and recomputes the
// derived rates through the model hook.
func (m *BonusesModule) trackImpression(c *gin.Context) {
	m.trackCounter(c, "impressions", analytics.Event{Kind: analytics.KindPageView})
}

func (m *BonusesModule) trackClick(c *gin.Context) {
	m.trackCounter(c, "clicks", analytics.Event{
		Kind: analytics.KindFunnelStep,
		Step: analytics.StepViewBonus,
	})
}

func (m *BonusesModule) trackCounter(c *gin.Context, column string, ev analytics.Event) {
	var bonus models.Bonus
	if err := m.db.First(&bonus, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.NotFound(c, "bonus not found")
			return
		}
		common.ServerError(c, err)
		return
	}

	if err := m.db.Model(&bonus).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	// Reload and save so CTR/conversion rate stay in step with the
	// counters.
	if err := m.db.First(&bonus, bonus.ID).Error; err != nil {
		common.ServerError(c, err)
		return
	}
	if err := m.db.Save(&bonus).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	if m.tracker != nil {
		ev.SessionID = analytics.SessionID(c)
		ev.BonusID = &bonus.ID
		ev.BookmakerID = &bonus.BookmakerID
		ev.Page = c.Request.Referer()
		m.tracker.Track(ev)
	}

	common.OK(c, gin.H{
		"impressions":     bonus.Impressions,
		"clicks":          bonus.Clicks,
		"ctr":             bonus.CTR,
		"conversion_rate": bonus.ConversionRate,
	})
}

func (m *BonusesModule) create(c *gin.Context) {
	var input validation.BonusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		common.BadRequest(c, "invalid JSON payload")
		return
	}
	if errs := validation.Validate(&input); errs != nil {
		c.JSON(400, gin.H{"success": false, "message": "validation failed", "errors": errs})
		return
	}

	var bookmaker models.Bookmaker
	if err := m.db.First(&bookmaker, input.BookmakerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.BadRequest(c, "referenced bookmaker does not exist")
			return
		}
		common.ServerError(c, err)
		return
	}

	bonus := &models.Bonus{}
	apply(bonus, &input)

	if err := m.db.Create(bonus).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	cache.ClearPrefix("api")
	common.Created(c, bonus)
}

func (m *BonusesModule) update(c *gin.Context) {
	var bonus models.Bonus
	if err := m.db.First(&bonus, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.NotFound(c, "bonus not found")
			return
		}
		common.ServerError(c, err)
		return
	}

	var input validation.BonusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		common.BadRequest(c, "invalid JSON payload")
		return
	}
	if errs := validation.Validate(&input); errs != nil {
		c.JSON(400, gin.H{"success": false, "message": "validation failed", "errors": errs})
		return
	}

	apply(&bonus, &input)
	if err := m.db.Save(&bonus).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	cache.ClearPrefix("api")
	common.OK(c, bonus)
}

func (m *BonusesModule) delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		common.BadRequest(c, "invalid id")
		return
	}

	result := m.db.Delete(&models.Bonus{}, id)
	if result.Error != nil {
		common.ServerError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		common.NotFound(c, "bonus not found")
		return
	}

	cache.ClearPrefix("api")
	common.OK(c, gin.H{"deleted": true})
}

func apply(b *models.Bonus, input *validation.BonusInput) {
	b.BookmakerID = input.BookmakerID
	b.Title = input.Title
	b.Type = input.Type
	b.Amount = input.Amount
	b.IsPercentage = input.IsPercentage
	b.MaxCap = input.MaxCap
	b.WageringRequirement = input.WageringRequirement
	b.MinDeposit = input.MinDeposit
	b.PromoCode = input.PromoCode
	b.Terms = input.Terms
	b.ValidFrom = input.ValidFrom
	b.ValidUntil = input.ValidUntil
	b.Active = input.Active
	b.Exclusive = input.Exclusive
}
