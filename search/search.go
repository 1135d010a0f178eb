// Package search runs substring search across bookmakers, bonuses and
// blog posts. An empty query is not an error: it returns the active or
// published records unfiltered.
package search

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"betcompare/common"
	"betcompare/models"
)

type SearchModule struct {
	db *gorm.DB
}

func NewSearchModule(db *gorm.DB) *SearchModule {
	return &SearchModule{db: db}
}

func (m *SearchModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/search")
	{
		group.GET("", m.search)
		group.GET("/suggestions", m.suggestions)
	}
}

const (
	TypeAll        = "all"
	TypeBookmakers = "bookmakers"
	TypeBonuses    = "bonuses"
	TypeBlog       = "blog"
)

func (m *SearchModule) search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	searchType := c.DefaultQuery("type", TypeAll)
	page, limit := common.PageParams(c)

	switch searchType {
	case TypeBookmakers:
		m.searchBookmakers(c, q, page, limit)
	case TypeBonuses:
		m.searchBonuses(c, q, page, limit)
	case TypeBlog:
		m.searchBlog(c, q, page, limit)
	case TypeAll:
		m.searchAll(c, q)
	default:
		common.BadRequest(c, "type must be one of: all, bookmakers, bonuses, blog")
	}
}

func (m *SearchModule) bookmakerQuery(q string) *gorm.DB {
	query := m.db.Model(&models.Bookmaker{}).Where("status = ?", models.StatusActive)
	if q != "" {
		like := "%" + q + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	return query
}

func (m *SearchModule) bonusQuery(q string) *gorm.DB {
	query := m.db.Model(&models.Bonus{}).Where("active = ?", true)
	if q != "" {
		like := "%" + q + "%"
		query = query.Where("title LIKE ? OR promo_code LIKE ?", like, like)
	}
	return query
}

func (m *SearchModule) blogQuery(q string) *gorm.DB {
	query := m.db.Model(&models.BlogPost{}).Where("published = ?", true)
	if q != "" {
		like := "%" + q + "%"
		query = query.Where("title LIKE ? OR excerpt LIKE ? OR content LIKE ?", like, like, like)
	}
	return query
}

func (m *SearchModule) searchBookmakers(c *gin.Context, q string, page, limit int) {
	query := m.bookmakerQuery(q)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	var bookmakers []models.Bookmaker
	if err := query.Order("priority DESC, rating_overall DESC").
		Offset(common.Offset(page, limit)).
		Limit(limit).
		Find(&bookmakers).Error; err != nil {
		common.ServerError(c, err)
		return
	}
	common.OKList(c, bookmakers, common.Paginate(page, limit, total))
}

func (m *SearchModule) searchBonuses(c *gin.Context, q string, page, limit int) {
	query := m.bonusQuery(q)

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
	common.OKList(c, bonuses, common.Paginate(page, limit, total))
}

func (m *SearchModule) searchBlog(c *gin.Context, q string, page, limit int) {
	query := m.blogQuery(q)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	var posts []models.BlogPost
	if err := query.Order("published_at DESC").
		Offset(common.Offset(page, limit)).
		Limit(limit).
		Find(&posts).Error; err != nil {
		common.ServerError(c, err)
		return
	}
	common.OKList(c, posts, common.Paginate(page, limit, total))
}

// searchAll returns the top matches per kind without pagination, for
// the combined search page.
func (m *SearchModule) searchAll(c *gin.Context, q string) {
	const perKind = 5

	var bookmakers []models.Bookmaker
	if err := m.bookmakerQuery(q).
		Order("priority DESC, rating_overall DESC").
		Limit(perKind).
		Find(&bookmakers).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	var bonuses []models.Bonus
	if err := m.bonusQuery(q).
		Order("exclusive DESC, amount DESC").
		Limit(perKind).
		Find(&bonuses).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	var posts []models.BlogPost
	if err := m.blogQuery(q).
		Order("published_at DESC").
		Limit(perKind).
		Find(&posts).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	common.OK(c, gin.H{
		"bookmakers": bookmakers,
		"bonuses":    bonuses,
		"blog":       posts,
	})
}

// suggestions returns up to five names or titles per kind for
// typeahead. Requires at least two characters.
func (m *SearchModule) suggestions(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if len(q) < 2 {
		common.OK(c, gin.H{"bookmakers": []string{}, "bonuses": []string{}, "blog": []string{}})
		return
	}

	const maxSuggestions = 5
	like := "%" + q + "%"

	var bookmakerNames []string
	m.db.Model(&models.Bookmaker{}).
		Where("status = ? AND name LIKE ?", models.StatusActive, like).
		Order("priority DESC").
		Limit(maxSuggestions).
		Pluck("name", &bookmakerNames)

	var bonusTitles []string
	m.db.Model(&models.Bonus{}).
		Where("active = ? AND title LIKE ?", true, like).
		Order("amount DESC").
		Limit(maxSuggestions).
		Pluck("title", &bonusTitles)

	var postTitles []string
	m.db.Model(&models.BlogPost{}).
		Where("published = ? AND title LIKE ?", true, like).
		Order("published_at DESC").
		Limit(maxSuggestions).
		Pluck("title", &postTitles)

	common.OK(c, gin.H{
		"bookmakers": bookmakerNames,
		"bonuses":    bonusTitles,
		"blog":       postTitles,
	})
}
