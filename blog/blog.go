package blog

import (
	"errors"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"betcompare/auth"
	"betcompare/cache"
	"betcompare/common"
	"betcompare/models"
	"betcompare/validation"
)

type BlogModule struct {
	db *gorm.DB
}

func NewBlogModule(db *gorm.DB) *BlogModule {
	return &BlogModule{db: db}
}

func (m *BlogModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/blog")
	{
		group.GET("", m.list)
		group.GET("/categories", m.categories)
		group.GET("/:id", m.getByID)
		group.GET("/:id/related", m.related)
		group.GET("/slug/:slug", m.getBySlug)
		group.POST("", auth.RequireAuth(), m.create)
		group.PUT("/:id", auth.RequireAuth(), m.update)
		group.DELETE("/:id", auth.RequireAuth(), m.delete)
	}
}

// TOCEntry is one heading in the derived table of contents.
type TOCEntry struct {
	Level  int    `json:"level"`
	Text   string `json:"text"`
	Anchor string `json:"anchor"`
}

var headingRe = regexp.MustCompile(`(?s)<h([23])[^>]*>(.*?)</h[23]>`)

// tableOfContents parses h2/h3 headings out of rendered HTML.
func tableOfContents(html string) []TOCEntry {
	matches := headingRe.FindAllStringSubmatch(html, -1)

	var toc []TOCEntry
	for _, match := range matches {
		level, _ := strconv.Atoi(match[1])
		text := models.Truncate(models.StripHTML(match[2]), 200)
		if text == "" {
			continue
		}
		toc = append(toc, TOCEntry{
			Level:  level,
			Text:   text,
			Anchor: models.Slugify(text),
		})
	}
	return toc
}

func (m *BlogModule) list(c *gin.Context) {
	page, limit := common.PageParams(c)

	query := m.db.Model(&models.BlogPost{}).Where("published = ?", true)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if tag := c.Query("tag"); tag != "" {
		query = query.Where(`tags LIKE ?`, `%"`+tag+`"%`)
	}

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

func (m *BlogModule) categories(c *gin.Context) {
	type categoryCount struct {
		Category string `json:"category"`
		Count    int64  `json:"count"`
	}

	var counts []categoryCount
	if err := m.db.Model(&models.BlogPost{}).
		Select("category, COUNT(*) as count").
		Where("published = ?", true).
		Group("category").
		Order("count DESC").
		Scan(&counts).Error; err != nil {
		common.ServerError(c, err)
		return
	}
	common.OK(c, counts)
}

// postView is the single-post shape: the record plus rendered HTML
// and the derived table of contents.
type postView struct {
	models.BlogPost
	ContentHTML     string     `json:"content_html"`
	TableOfContents []TOCEntry `json:"table_of_contents"`
}

func (m *BlogModule) render(post models.BlogPost) postView {
	html := models.RenderMarkdown(post.Content)
	return postView{
		BlogPost:        post,
		ContentHTML:     html,
		TableOfContents: tableOfContents(html),
	}
}

func (m *BlogModule) getByID(c *gin.Context) {
	var post models.BlogPost
	if err := m.db.First(&post, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.NotFound(c, "post not found")
			return
		}
		common.ServerError(c, err)
		return
	}

	m.countView(&post)
	common.OK(c, m.render(post))
}

func (m *BlogModule) getBySlug(c *gin.Context) {
	var post models.BlogPost
	if err := m.db.Where("slug = ? AND published = ?", c.Param("slug"), true).
		First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.NotFound(c, "post not found")
			return
		}
		common.ServerError(c, err)
		return
	}

	m.countView(&post)
	common.OK(c, m.render(post))
}

func (m *BlogModule) countView(post *models.BlogPost) {
	if err := m.db.Model(post).
		UpdateColumn("views", gorm.Expr("views + 1")).Error; err == nil {
		post.Views++
	}
}

// related lists published posts in the same category, newest first,
// excluding the post itself.
func (m *BlogModule) related(c *gin.Context) {
	var post models.BlogPost
	if err := m.db.First(&post, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.NotFound(c, "post not found")
			return
		}
		common.ServerError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "3"))
	if limit < 1 {
		limit = 1
	}
	if limit > 20 {
		limit = 20
	}

	var related []models.BlogPost
	if err := m.db.Where("category = ? AND published = ? AND id != ?",
		post.Category, true, post.ID).
		Order("published_at DESC").
		Limit(limit).
		Find(&related).Error; err != nil {
		common.ServerError(c, err)
		return
	}
	common.OK(c, related)
}

func (m *BlogModule) create(c *gin.Context) {
	var input validation.BlogPostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		common.BadRequest(c, "invalid JSON payload")
		return
	}
	if errs := validation.Validate(&input); errs != nil {
		c.JSON(400, gin.H{"success": false, "message": "validation failed", "errors": errs})
		return
	}
	if errMsg := m.checkComparison(input.ComparisonData); errMsg != "" {
		common.BadRequest(c, errMsg)
		return
	}

	if m.slugTaken(input.Title, 0) {
		common.BadRequest(c, "a post with this title already exists")
		return
	}

	post := &models.BlogPost{}
	apply(post, &input)

	if err := m.db.Create(post).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	cache.ClearPrefix("api")
	common.Created(c, post)
}

func (m *BlogModule) update(c *gin.Context) {
	var post models.BlogPost
	if err := m.db.First(&post, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.NotFound(c, "post not found")
			return
		}
		common.ServerError(c, err)
		return
	}

	var input validation.BlogPostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		common.BadRequest(c, "invalid JSON payload")
		return
	}
	if errs := validation.Validate(&input); errs != nil {
		c.JSON(400, gin.H{"success": false, "message": "validation failed", "errors": errs})
		return
	}
	if errMsg := m.checkComparison(input.ComparisonData); errMsg != "" {
		common.BadRequest(c, errMsg)
		return
	}
	if m.slugTaken(input.Title, post.ID) {
		common.BadRequest(c, "a post with this title already exists")
		return
	}

	apply(&post, &input)
	if err := m.db.Save(&post).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	cache.ClearPrefix("api")
	common.OK(c, post)
}

func (m *BlogModule) delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		common.BadRequest(c, "invalid id")
		return
	}

	result := m.db.Delete(&models.BlogPost{}, id)
	if result.Error != nil {
		common.ServerError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		common.NotFound(c, "post not found")
		return
	}

	cache.ClearPrefix("api")
	common.OK(c, gin.H{"deleted": true})
}

// checkComparison verifies the two referenced bookmakers exist when a
// post carries structured comparison data.
func (m *BlogModule) checkComparison(data *models.PostComparison) string {
	if data == nil {
		return ""
	}
	for _, id := range []uint{data.Bookmaker1ID, data.Bookmaker2ID} {
		var count int64
		m.db.Model(&models.Bookmaker{}).Where("id = ?", id).Count(&count)
		if count == 0 {
			return "comparison references a bookmaker that does not exist"
		}
	}
	return ""
}

func (m *BlogModule) slugTaken(title string, excludeID uint) bool {
	var count int64
	m.db.Model(&models.BlogPost{}).
		Where("slug = ? AND id != ?", models.Slugify(title), excludeID).
		Count(&count)
	return count > 0
}

func apply(p *models.BlogPost, input *validation.BlogPostInput) {
	p.Title = input.Title
	p.Category = input.Category
	p.Author = input.Author
	p.Content = input.Content
	p.Excerpt = input.Excerpt
	p.MetaTitle = input.MetaTitle
	p.MetaDescription = input.MetaDescription
	p.Tags = datatypes.NewJSONSlice(input.Tags)
	p.FeaturedImage = input.FeaturedImage
	p.Published = input.Published
	p.ComparisonData = datatypes.NewJSONType(input.ComparisonData)
}
