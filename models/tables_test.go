package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&Bookmaker{}, &Review{}, &Bonus{}, &BlogPost{}))
	return db
}

func TestBookmaker_SlugDerivedOnCreate(t *testing.T) {
	db := setupTestDB(t)

	bookmaker := &Bookmaker{Name: "Bet Way Kenya!", Status: StatusActive}
	require.NoError(t, db.Create(bookmaker).Error)

	assert.Equal(t, "bet-way-kenya", bookmaker.Slug)
}

func TestBookmaker_SlugStableOnResave(t *testing.T) {
	db := setupTestDB(t)

	bookmaker := &Bookmaker{Name: "SportPesa", Status: StatusActive}
	require.NoError(t, db.Create(bookmaker).Error)
	slug := bookmaker.Slug

	bookmaker.Priority = 10
	require.NoError(t, db.Save(bookmaker).Error)

	assert.Equal(t, slug, bookmaker.Slug)
}

func TestBookmaker_SlugRegeneratedOnRename(t *testing.T) {
	db := setupTestDB(t)

	bookmaker := &Bookmaker{Name: "SportPesa", Status: StatusActive}
	require.NoError(t, db.Create(bookmaker).Error)

	bookmaker.Name = "Mega SportPesa"
	require.NoError(t, db.Save(bookmaker).Error)

	assert.Equal(t, "mega-sportpesa", bookmaker.Slug)
}

func TestBookmaker_SlugUnique(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.Create(&Bookmaker{Name: "Betika", Status: StatusActive}).Error)
	err := db.Create(&Bookmaker{Name: "Betika", Status: StatusActive}).Error
	assert.Error(t, err)
}

func TestReview_OverallIsRoundedMean(t *testing.T) {
	db := setupTestDB(t)

	review := &Review{
		BookmakerID: 1,
		Title:       "Full review",
		SubRatings:  SubRatings{Odds: 4, Bonuses: 5, Mobile: 3, Support: 4, Payout: 4},
	}
	require.NoError(t, db.Create(review).Error)

	// (4+5+3+4+4)/5 = 4.0
	assert.Equal(t, 4.0, review.Overall)
}

func TestReview_OverallRecomputedOnChange(t *testing.T) {
	db := setupTestDB(t)

	review := &Review{
		BookmakerID: 1,
		Title:       "Full review",
		SubRatings:  SubRatings{Odds: 3, Bonuses: 3, Mobile: 3, Support: 3, Payout: 3},
	}
	require.NoError(t, db.Create(review).Error)
	assert.Equal(t, 3.0, review.Overall)

	review.SubRatings.Odds = 5
	review.SubRatings.Payout = 5
	require.NoError(t, db.Save(review).Error)

	// (5+3+3+3+5)/5 = 3.8
	assert.Equal(t, 3.8, review.Overall)
}

func TestReview_ReadingStats(t *testing.T) {
	db := setupTestDB(t)

	review := &Review{
		BookmakerID: 1,
		Title:       "Long review",
		SubRatings:  SubRatings{Odds: 4, Bonuses: 4, Mobile: 4, Support: 4, Payout: 4},
		Content:     strings.Repeat("word ", 450),
	}
	require.NoError(t, db.Create(review).Error)

	assert.Equal(t, 450, review.WordCount)
	assert.Equal(t, 3, review.ReadingTime)
}

func TestReview_PublishedAtSetOnPublish(t *testing.T) {
	db := setupTestDB(t)

	review := &Review{
		BookmakerID: 1,
		Title:       "Review",
		SubRatings:  SubRatings{Odds: 4, Bonuses: 4, Mobile: 4, Support: 4, Payout: 4},
		Published:   true,
	}
	require.NoError(t, db.Create(review).Error)
	assert.NotNil(t, review.PublishedAt)
}

func TestBonus_RatesGuardedAgainstZero(t *testing.T) {
	db := setupTestDB(t)

	bonus := &Bonus{
		BookmakerID: 1,
		Title:       "Welcome offer",
		Type:        "welcome",
		ValidFrom:   time.Now(),
		ValidUntil:  time.Now().AddDate(0, 1, 0),
	}
	require.NoError(t, db.Create(bonus).Error)

	assert.Equal(t, 0.0, bonus.CTR)
	assert.Equal(t, 0.0, bonus.ConversionRate)
}

func TestBonus_RatesComputed(t *testing.T) {
	db := setupTestDB(t)

	bonus := &Bonus{
		BookmakerID: 1,
		Title:       "Welcome offer",
		Type:        "welcome",
		ValidFrom:   time.Now(),
		ValidUntil:  time.Now().AddDate(0, 1, 0),
		Impressions: 200,
		Clicks:      50,
		Conversions: 5,
	}
	require.NoError(t, db.Create(bonus).Error)

	assert.Equal(t, 25.0, bonus.CTR)
	assert.Equal(t, 10.0, bonus.ConversionRate)
}

func TestBonus_IsValidWindow(t *testing.T) {
	now := time.Now()
	bonus := &Bonus{
		Active:     true,
		ValidFrom:  now.AddDate(0, 0, -1),
		ValidUntil: now.AddDate(0, 0, 1),
	}

	assert.True(t, bonus.IsValid(now))
	assert.True(t, bonus.IsValid(bonus.ValidFrom))
	assert.True(t, bonus.IsValid(bonus.ValidUntil))
	assert.False(t, bonus.IsValid(now.AddDate(0, 0, -2)))
	assert.False(t, bonus.IsValid(now.AddDate(0, 0, 2)))

	bonus.Active = false
	assert.False(t, bonus.IsValid(now))
}

func TestBlogPost_DerivedFields(t *testing.T) {
	db := setupTestDB(t)

	post := &BlogPost{
		Title:    "Top Betting Tips for Kenya",
		Category: "betting-tips",
		Content:  strings.Repeat("useful betting advice ", 100),
	}
	require.NoError(t, db.Create(post).Error)

	assert.Equal(t, "top-betting-tips-for-kenya", post.Slug)
	assert.Equal(t, 300, post.WordCount)
	assert.Equal(t, 2, post.ReadingTime)
	assert.NotEmpty(t, post.Excerpt)
	assert.LessOrEqual(t, len(post.Excerpt), 300)
	assert.Equal(t, "Top Betting Tips for Kenya | "+SiteName(), post.MetaTitle)
	assert.NotEmpty(t, post.MetaDescription)
}

func TestBlogPost_ExplicitFieldsNotOverwritten(t *testing.T) {
	db := setupTestDB(t)

	post := &BlogPost{
		Title:           "Another Post",
		Category:        "how-to",
		Content:         "short content",
		Excerpt:         "my own excerpt",
		MetaTitle:       "Custom Meta",
		MetaDescription: "custom description",
	}
	require.NoError(t, db.Create(post).Error)

	assert.Equal(t, "my own excerpt", post.Excerpt)
	assert.Equal(t, "Custom Meta", post.MetaTitle)
	assert.Equal(t, "custom description", post.MetaDescription)
}

func TestBlogPost_ReadingTimeCeiling(t *testing.T) {
	db := setupTestDB(t)

	post := &BlogPost{
		Title:    "Tiny Post",
		Category: "how-to",
		Content:  "just a few words here",
	}
	require.NoError(t, db.Create(post).Error)

	assert.Equal(t, 5, post.WordCount)
	assert.Equal(t, 1, post.ReadingTime)
}
