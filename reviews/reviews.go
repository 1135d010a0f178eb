package reviews

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"betcompare/auth"
	"betcompare/cache"
	"betcompare/common"
	"betcompare/models"
	"betcompare/validation"
)

type ReviewsModule struct {
	db *gorm.DB
}

func NewReviewsModule(db *gorm.DB) *ReviewsModule {
	return &ReviewsModule{db: db}
}

func (m *ReviewsModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/reviews")
	{
		group.GET("", m.list)
		group.GET("/:id", m.getByID)
		group.POST("", auth.RequireAuth(), m.create)
		group.PUT("/:id", auth.RequireAuth(), m.update)
		group.DELETE("/:id", auth.RequireAuth(), m.delete)
	}
}

// reviewItem is the denormalized list shape: the review joined with
// the referenced bookmaker's display fields.
type reviewItem struct {
	models.Review
	Bookmaker models.BookmakerSummary `json:"bookmaker"`
}

func (m *ReviewsModule) list(c *gin.Context) {
	page, limit := common.PageParams(c)

	query := m.db.Model(&models.Review{}).Where("published = ?", true)
	if bookmakerID := c.Query("bookmaker"); bookmakerID != "" {
		query = query.Where("bookmaker_id = ?", bookmakerID)
	}
	if minRating := c.Query("minRating"); minRating != "" {
		if v, err := strconv.ParseFloat(minRating, 64); err == nil {
			query = query.Where("overall >= ?", v)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	var reviews []models.Review
	if err := query.Order("published_at DESC").
		Offset(common.Offset(page, limit)).
		Limit(limit).
		Find(&reviews).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	items, err := m.denormalize(reviews)
	if err != nil {
		common.ServerError(c, err)
		return
	}

	common.OKList(c, items, common.Paginate(page, limit, total))
}

func (m *ReviewsModule) denormalize(reviews []models.Review) ([]reviewItem, error) {
	items := make([]reviewItem, 0, len(reviews))
	for _, review := range reviews {
		var bookmaker models.Bookmaker
		if err := m.db.First(&bookmaker, review.BookmakerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				items = append(items, reviewItem{Review: review})
				continue
			}
			return nil, err
		}
		items = append(items, reviewItem{Review: review, Bookmaker: bookmaker.Summary()})
	}
	return items, nil
}

func (m *ReviewsModule) getByID(c *gin.Context) {
	var review models.Review
	if err := m.db.First(&review, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.NotFound(c, "review not found")
			return
		}
		common.ServerError(c, err)
		return
	}

	items, err := m.denormalize([]models.Review{review})
	if err != nil {
		common.ServerError(c, err)
		return
	}
	common.OK(c, items[0])
}

func (m *ReviewsModule) create(c *gin.Context) {
	var input validation.ReviewInput
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

	review := &models.Review{}
	apply(review, &input)

	if err := m.db.Create(review).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	cache.ClearPrefix("api")
	common.Created(c, review)
}

func (m *ReviewsModule) update(c *gin.Context) {
	var review models.Review
	if err := m.db.First(&review, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.NotFound(c, "review not found")
			return
		}
		common.ServerError(c, err)
		return
	}

	var input validation.ReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		common.BadRequest(c, "invalid JSON payload")
		return
	}
	if errs := validation.Validate(&input); errs != nil {
		c.JSON(400, gin.H{"success": false, "message": "validation failed", "errors": errs})
		return
	}

	apply(&review, &input)
	if err := m.db.Save(&review).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	cache.ClearPrefix("api")
	common.OK(c, review)
}

func (m *ReviewsModule) delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		common.BadRequest(c, "invalid id")
		return
	}

	result := m.db.Delete(&models.Review{}, id)
	if result.Error != nil {
		common.ServerError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		common.NotFound(c, "review not found")
		return
	}

	cache.ClearPrefix("api")
	common.OK(c, gin.H{"deleted": true})
}

func apply(r *models.Review, input *validation.ReviewInput) {
	r.BookmakerID = input.BookmakerID
	r.Title = input.Title
	r.Author = input.Author
	r.SubRatings = models.SubRatings{
		Odds:    input.SubRatings.Odds,
		Bonuses: input.SubRatings.Bonuses,
		Mobile:  input.SubRatings.Mobile,
		Support: input.SubRatings.Support,
		Payout:  input.SubRatings.Payout,
	}
	r.Intro = input.Intro
	r.Pros = input.Pros
	r.Cons = input.Cons
	r.Verdict = input.Verdict
	r.Content = input.Content
	r.Published = input.Published
}
