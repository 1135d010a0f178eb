package bookmakers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"betcompare/auth"
	"betcompare/cache"
	"betcompare/common"
	"betcompare/models"
	"betcompare/validation"
)

type BookmakersModule struct {
	db *gorm.DB
}

func NewBookmakersModule(db *gorm.DB) *BookmakersModule {
	return &BookmakersModule{db: db}
}

func (m *BookmakersModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/bookmakers")
	{
		group.GET("", m.list)
		group.GET("/featured", m.featured)
		group.GET("/:id", m.getByID)
		group.GET("/slug/:slug", m.getBySlug)
		group.POST("", auth.RequireAuth(), m.create)
		group.PUT("/:id", auth.RequireAuth(), m.update)
		group.DELETE("/:id", auth.RequireAuth(), m.delete)
	}
}

var sortColumns = map[string]string{
	"priority": "priority",
	"rating":   "rating_overall",
	"name":     "name",
	"created":  "created_at",
}

func (m *BookmakersModule) list(c *gin.Context) {
	page, limit := common.PageParams(c)

	query := m.db.Model(&models.Bookmaker{}).Where("status = ?", models.StatusActive)

	if c.Query("featured") == "true" {
		query = query.Where("featured = ?", true)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if features := c.Query("features"); features != "" {
		for _, f := range strings.Split(features, ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			// features column holds a JSON array; match the quoted element
			query = query.Where(`features LIKE ?`, `%"`+f+`"%`)
		}
	}
	if minRating := c.Query("minRating"); minRating != "" {
		if v, err := strconv.ParseFloat(minRating, 64); err == nil {
			query = query.Where("rating_overall >= ?", v)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	order := "priority DESC, rating_overall DESC"
	if col, ok := sortColumns[c.Query("sortBy")]; ok {
		dir := "DESC"
		if c.Query("sortOrder") == "asc" {
			dir = "ASC"
		}
		order = col + " " + dir
	}

	var bookmakers []models.Bookmaker
	if err := query.Order(order).
		Offset(common.Offset(page, limit)).
		Limit(limit).
		Find(&bookmakers).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	common.OKList(c, bookmakers, common.Paginate(page, limit, total))
}

func (m *BookmakersModule) featured(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "6"))
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	var bookmakers []models.Bookmaker
	if err := m.db.Where("status = ? AND featured = ?", models.StatusActive, true).
		Order("priority DESC, rating_overall DESC").
		Limit(limit).
		Find(&bookmakers).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	common.OK(c, bookmakers)
}

func (m *BookmakersModule) getByID(c *gin.Context) {
	var bookmaker models.Bookmaker
	if err := m.db.First(&bookmaker, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.NotFound(c, "bookmaker not found")
			return
		}
		common.ServerError(c, err)
		return
	}
	common.OK(c, bookmaker)
}

func (m *BookmakersModule) getBySlug(c *gin.Context) {
	var bookmaker models.Bookmaker
	if err := m.db.Where("slug = ?", c.Param("slug")).First(&bookmaker).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.NotFound(c, "bookmaker not found")
			return
		}
		common.ServerError(c, err)
		return
	}
	common.OK(c, bookmaker)
}

func (m *BookmakersModule) create(c *gin.Context) {
	var input validation.BookmakerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		common.BadRequest(c, "invalid JSON payload")
		return
	}
	if errs := validation.Validate(&input); errs != nil {
		c.JSON(400, gin.H{"success": false, "message": "validation failed", "errors": errs})
		return
	}

	bookmaker := fromInput(&input)
	if m.slugTaken(bookmaker.Name, 0) {
		common.BadRequest(c, "a bookmaker with this name already exists")
		return
	}

	if err := m.db.Create(bookmaker).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	cache.ClearPrefix("api")
	common.Created(c, bookmaker)
}

func (m *BookmakersModule) update(c *gin.Context) {
	var bookmaker models.Bookmaker
	if err := m.db.First(&bookmaker, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.NotFound(c, "bookmaker not found")
			return
		}
		common.ServerError(c, err)
		return
	}

	var input validation.BookmakerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		common.BadRequest(c, "invalid JSON payload")
		return
	}
	if errs := validation.Validate(&input); errs != nil {
		c.JSON(400, gin.H{"success": false, "message": "validation failed", "errors": errs})
		return
	}
	if m.slugTaken(input.Name, bookmaker.ID) {
		common.BadRequest(c, "a bookmaker with this name already exists")
		return
	}

	apply(&bookmaker, &input)
	if err := m.db.Save(&bookmaker).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	cache.ClearPrefix("api")
	common.OK(c, bookmaker)
}

func (m *BookmakersModule) delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		common.BadRequest(c, "invalid id")
		return
	}

	result := m.db.Delete(&models.Bookmaker{}, id)
	if result.Error != nil {
		common.ServerError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		common.NotFound(c, "bookmaker not found")
		return
	}

	cache.ClearPrefix("api")
	common.OK(c, gin.H{"deleted": true})
}

// slugTaken reports whether another bookmaker already owns the slug
// the given name would derive to.
func (m *BookmakersModule) slugTaken(name string, excludeID uint) bool {
	var count int64
	m.db.Model(&models.Bookmaker{}).
		Where("slug = ? AND id != ?", models.Slugify(name), excludeID).
		Count(&count)
	return count > 0
}

func fromInput(input *validation.BookmakerInput) *models.Bookmaker {
	bookmaker := &models.Bookmaker{}
	apply(bookmaker, input)
	return bookmaker
}

func apply(b *models.Bookmaker, input *validation.BookmakerInput) {
	b.Name = input.Name
	b.LogoURL = input.LogoURL
	b.WebsiteURL = input.WebsiteURL
	b.AffiliateURL = input.AffiliateURL
	b.Description = input.Description
	b.Ratings = models.Ratings{
		Overall: input.Ratings.Overall,
		Odds:    input.Ratings.Odds,
		Bonuses: input.Ratings.Bonuses,
		Mobile:  input.Ratings.Mobile,
		Support: input.Ratings.Support,
		Payout:  input.Ratings.Payout,
	}
	b.Features = datatypes.NewJSONSlice(input.Features)
	b.PaymentMethods = datatypes.NewJSONSlice(input.PaymentMethods)
	b.LicenseInfo = input.LicenseInfo
	if input.Status != "" {
		b.Status = input.Status
	}
	b.Featured = input.Featured
	b.Priority = input.Priority
}
