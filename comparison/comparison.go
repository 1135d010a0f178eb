// Package comparison joins two bookmakers into a category-by-category
// score face-off, plus the site-wide comparison table.
package comparison

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"betcompare/common"
	"betcompare/models"
)

type ComparisonModule struct {
	db *gorm.DB
}

func NewComparisonModule(db *gorm.DB) *ComparisonModule {
	return &ComparisonModule{db: db}
}

func (m *ComparisonModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/comparison")
	{
		group.GET("/compare/:id1/:id2", m.compare)
		group.GET("/table", m.table)
	}
}

// Winner labels for a category face-off. Equal scores are an explicit
// tie rather than a default win for either side.
const (
	WinnerFirst  = "bookmaker1"
	WinnerSecond = "bookmaker2"
	WinnerTie    = "tie"
)

// CategoryResult is one row of the comparison: both scores and the
// winner for a single rating category.
type CategoryResult struct {
	Category string  `json:"category"`
	Score1   float64 `json:"score1"`
	Score2   float64 `json:"score2"`
	Winner   string  `json:"winner"`
}

type category struct {
	name  string
	score func(*models.Bookmaker) float64
}

// The fixed category list, each mapped to its rating sub-field.
var categories = []category{
	{"Overall Rating", func(b *models.Bookmaker) float64 { return b.Ratings.Overall }},
	{"Odds", func(b *models.Bookmaker) float64 { return b.Ratings.Odds }},
	{"Bonuses", func(b *models.Bookmaker) float64 { return b.Ratings.Bonuses }},
	{"Mobile App", func(b *models.Bookmaker) float64 { return b.Ratings.Mobile }},
	{"Customer Support", func(b *models.Bookmaker) float64 { return b.Ratings.Support }},
}

// Compare scores two bookmakers across the fixed category list.
func Compare(b1, b2 *models.Bookmaker) []CategoryResult {
	results := make([]CategoryResult, 0, len(categories))
	for _, cat := range categories {
		s1, s2 := cat.score(b1), cat.score(b2)
		winner := WinnerTie
		if s1 > s2 {
			winner = WinnerFirst
		} else if s2 > s1 {
			winner = WinnerSecond
		}
		results = append(results, CategoryResult{
			Category: cat.name,
			Score1:   s1,
			Score2:   s2,
			Winner:   winner,
		})
	}
	return results
}

// Totals is the category win tally for a face-off.
type Totals struct {
	Wins1 int `json:"bookmaker1_wins"`
	Wins2 int `json:"bookmaker2_wins"`
	Ties  int `json:"ties"`
}

func Tally(results []CategoryResult) Totals {
	var t Totals
	for _, r := range results {
		switch r.Winner {
		case WinnerFirst:
			t.Wins1++
		case WinnerSecond:
			t.Wins2++
		default:
			t.Ties++
		}
	}
	return t
}

// OverallWinner tallies category wins; ties count for neither side.
func OverallWinner(results []CategoryResult) string {
	t := Tally(results)
	if t.Wins1 > t.Wins2 {
		return WinnerFirst
	}
	if t.Wins2 > t.Wins1 {
		return WinnerSecond
	}
	return WinnerTie
}

func (m *ComparisonModule) compare(c *gin.Context) {
	b1, err := m.activeBookmaker(c.Param("id1"))
	if err != nil {
		m.respondLookupError(c, err)
		return
	}
	b2, err := m.activeBookmaker(c.Param("id2"))
	if err != nil {
		m.respondLookupError(c, err)
		return
	}

	results := Compare(b1, b2)
	common.OK(c, gin.H{
		"bookmaker1": b1,
		"bookmaker2": b2,
		"categories": results,
		"totals":     Tally(results),
		"winner":     OverallWinner(results),
	})
}

func (m *ComparisonModule) activeBookmaker(id string) (*models.Bookmaker, error) {
	var bookmaker models.Bookmaker
	err := m.db.Where("id = ? AND status = ?", id, models.StatusActive).
		First(&bookmaker).Error
	if err != nil {
		return nil, err
	}
	return &bookmaker, nil
}

func (m *ComparisonModule) respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		common.NotFound(c, "bookmaker not found")
		return
	}
	common.ServerError(c, err)
}

// tableRow is one bookmaker's line in the comparison table, with
// best-in-category markers.
type tableRow struct {
	Bookmaker models.Bookmaker `json:"bookmaker"`
	BestIn    []string         `json:"best_in"`
}

// table lists every active bookmaker side by side, priority order,
// marking which holds the top score per category.
func (m *ComparisonModule) table(c *gin.Context) {
	var bookmakers []models.Bookmaker
	if err := m.db.Where("status = ?", models.StatusActive).
		Order("priority DESC, rating_overall DESC").
		Find(&bookmakers).Error; err != nil {
		common.ServerError(c, err)
		return
	}

	best := make(map[string]float64, len(categories))
	for _, cat := range categories {
		for i := range bookmakers {
			if s := cat.score(&bookmakers[i]); s > best[cat.name] {
				best[cat.name] = s
			}
		}
	}

	rows := make([]tableRow, 0, len(bookmakers))
	for i := range bookmakers {
		row := tableRow{Bookmaker: bookmakers[i], BestIn: []string{}}
		for _, cat := range categories {
			if s := cat.score(&bookmakers[i]); s > 0 && s == best[cat.name] {
				row.BestIn = append(row.BestIn, cat.name)
			}
		}
		rows = append(rows, row)
	}

	common.OK(c, gin.H{
		"categories": categoryNames(),
		"rows":       rows,
	})
}

func categoryNames() []string {
	names := make([]string, len(categories))
	for i, cat := range categories {
		names[i] = cat.name
	}
	return names
}
