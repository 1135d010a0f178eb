package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Bookmaker statuses
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusPending   = "pending"
	StatusSuspended = "suspended"
)

// BookmakerFeatures is the closed set of feature tags a bookmaker can carry.
var BookmakerFeatures = []string{
	"live-betting", "live-streaming", "cash-out", "mobile-app",
	"mpesa", "airtel-money", "virtual-sports", "casino", "jackpot", "free-bets",
}

// Bonus types
const (
	BonusWelcome      = "welcome"
	BonusNoDeposit    = "no-deposit"
	BonusFreeBet      = "free-bet"
	BonusDepositMatch = "deposit-match"
	BonusCashback     = "cashback"
	BonusAccaBoost    = "acca-boost"
	BonusLoyalty      = "loyalty"
)

// BonusTypes is the closed set of bonus types.
var BonusTypes = []string{
	BonusWelcome, BonusNoDeposit, BonusFreeBet, BonusDepositMatch,
	BonusCashback, BonusAccaBoost, BonusLoyalty,
}

// Blog post categories
const (
	CategoryBettingTips    = "betting-tips"
	CategoryBookmakerNews  = "bookmaker-news"
	CategoryBonusGuides    = "bonus-guides"
	CategorySportsAnalysis = "sports-analysis"
	CategoryHowTo          = "how-to"
	CategoryIndustryNews   = "industry-news"
)

// BlogCategories is the closed set of blog post categories.
var BlogCategories = []string{
	CategoryBettingTips, CategoryBookmakerNews, CategoryBonusGuides,
	CategorySportsAnalysis, CategoryHowTo, CategoryIndustryNews,
}

type Ratings struct {
	Overall float64 `gorm:"default:0" json:"overall"`
	Odds    float64 `gorm:"default:0" json:"odds"`
	Bonuses float64 `gorm:"default:0" json:"bonuses"`
	Mobile  float64 `gorm:"default:0" json:"mobile"`
	Support float64 `gorm:"default:0" json:"support"`
	Payout  float64 `gorm:"default:0" json:"payout"`
}

type Bookmaker struct {
	ID             uint                        `gorm:"primary_key" json:"id"`
	Name           string                      `gorm:"not null" json:"name"`
	Slug           string                      `gorm:"unique;not null;index" json:"slug"`
	LogoURL        string                      `json:"logo_url"`
	WebsiteURL     string                      `json:"website_url"`
	AffiliateURL   string                      `json:"affiliate_url"`
	Description    string                      `gorm:"type:text" json:"description"`
	Ratings        Ratings                     `gorm:"embedded;embeddedPrefix:rating_" json:"ratings"`
	Features       datatypes.JSONSlice[string] `json:"features"`
	PaymentMethods datatypes.JSONSlice[string] `json:"payment_methods"`
	LicenseInfo    string                      `json:"license_info"`
	Status         string                      `gorm:"default:'pending';index" json:"status"`
	Featured       bool                        `gorm:"default:false;index" json:"featured"`
	Priority       int                         `gorm:"default:0;index" json:"priority"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

// BeforeSave regenerates the slug whenever the name no longer matches it.
// Re-saving with an unchanged name leaves the slug untouched.
func (b *Bookmaker) BeforeSave(tx *gorm.DB) error {
	if b.Slug == "" || b.Slug != Slugify(b.Name) {
		b.Slug = Slugify(b.Name)
	}
	return nil
}

// BookmakerSummary is the denormalized subset joined into reviews,
// bonuses and search results.
type BookmakerSummary struct {
	ID      uint    `json:"id"`
	Name    string  `json:"name"`
	Slug    string  `json:"slug"`
	LogoURL string  `json:"logo_url"`
	Rating  float64 `json:"rating"`
}

func (b *Bookmaker) Summary() BookmakerSummary {
	return BookmakerSummary{
		ID:      b.ID,
		Name:    b.Name,
		Slug:    b.Slug,
		LogoURL: b.LogoURL,
		Rating:  b.Ratings.Overall,
	}
}

type SubRatings struct {
	Odds    int `gorm:"not null" json:"odds"`
	Bonuses int `gorm:"not null" json:"bonuses"`
	Mobile  int `gorm:"not null" json:"mobile"`
	Support int `gorm:"not null" json:"support"`
	Payout  int `gorm:"not null" json:"payout"`
}

type Review struct {
	ID          uint       `gorm:"primary_key" json:"id"`
	BookmakerID uint       `gorm:"not null;index" json:"bookmaker_id"`
	Title       string     `gorm:"not null" json:"title"`
	Author      string     `json:"author"`
	SubRatings  SubRatings `gorm:"embedded;embeddedPrefix:rating_" json:"sub_ratings"`
	Overall     float64    `json:"overall"`
	Intro       string     `gorm:"type:text" json:"intro"`
	Pros        string     `gorm:"type:text" json:"pros"`
	Cons        string     `gorm:"type:text" json:"cons"`
	Verdict     string     `gorm:"type:text" json:"verdict"`
	Content     string     `gorm:"type:text" json:"content"`
	WordCount   int        `json:"word_count"`
	ReadingTime int        `json:"reading_time"`
	Published   bool       `gorm:"default:false;index" json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BeforeSave recomputes the overall rating and reading stats so they
// can never drift from the sub-ratings or the text.
func (r *Review) BeforeSave(tx *gorm.DB) error {
	r.Overall = Round1(float64(r.SubRatings.Odds+r.SubRatings.Bonuses+
		r.SubRatings.Mobile+r.SubRatings.Support+r.SubRatings.Payout) / 5)
	r.WordCount = WordCount(r.Intro + " " + r.Content + " " + r.Verdict)
	r.ReadingTime = ReadingTime(r.WordCount)
	if r.Published && r.PublishedAt == nil {
		now := time.Now()
		r.PublishedAt = &now
	}
	return nil
}

type Bonus struct {
	ID                  uint      `gorm:"primary_key" json:"id"`
	BookmakerID         uint      `gorm:"not null;index" json:"bookmaker_id"`
	Title               string    `gorm:"not null" json:"title"`
	Type                string    `gorm:"not null;index" json:"type"`
	Amount              float64   `json:"amount"`
	IsPercentage        bool      `gorm:"default:false" json:"is_percentage"`
	MaxCap              float64   `json:"max_cap"`
	WageringRequirement int       `json:"wagering_requirement"`
	MinDeposit          float64   `json:"min_deposit"`
	PromoCode           string    `json:"promo_code"`
	Terms               string    `gorm:"type:text" json:"terms"`
	ValidFrom           time.Time `json:"valid_from"`
	ValidUntil          time.Time `gorm:"index" json:"valid_until"`
	Active              bool      `gorm:"default:true;index" json:"active"`
	Exclusive           bool      `gorm:"default:false" json:"exclusive"`
	Impressions         int64     `gorm:"default:0" json:"impressions"`
	Clicks              int64     `gorm:"default:0" json:"clicks"`
	Conversions         int64     `gorm:"default:0" json:"conversions"`
	CTR                 float64   `json:"ctr"`
	ConversionRate      float64   `json:"conversion_rate"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (b *Bonus) BeforeSave(tx *gorm.DB) error {
	b.CTR = Ratio(b.Clicks, b.Impressions)
	b.ConversionRate = Ratio(b.Conversions, b.Clicks)
	return nil
}

// IsValid reports whether the bonus can be shown: active and inside
// its validity window (edges inclusive).
func (b *Bonus) IsValid(now time.Time) bool {
	return b.Active && !now.Before(b.ValidFrom) && !now.After(b.ValidUntil)
}

// PostComparison is the optional structured comparison attached to a
// blog post, referencing two bookmakers by id.
type PostComparison struct {
	Bookmaker1ID uint   `json:"bookmaker1_id"`
	Bookmaker2ID uint   `json:"bookmaker2_id"`
	Winner       string `json:"winner"`
}

type BlogPost struct {
	ID              uint                                 `gorm:"primary_key" json:"id"`
	Title           string                               `gorm:"not null" json:"title"`
	Slug            string                               `gorm:"unique;not null;index" json:"slug"`
	Category        string                               `gorm:"not null;index" json:"category"`
	Author          string                               `json:"author"`
	Content         string                               `gorm:"type:text" json:"content"`
	Excerpt         string                               `gorm:"type:text" json:"excerpt"`
	MetaTitle       string                               `json:"meta_title"`
	MetaDescription string                               `json:"meta_description"`
	Tags            datatypes.JSONSlice[string]          `json:"tags"`
	FeaturedImage   string                               `json:"featured_image"`
	Published       bool                                 `gorm:"default:false;index" json:"published"`
	PublishedAt     *time.Time                           `json:"published_at,omitempty"`
	Views           int64                                `gorm:"default:0" json:"views"`
	WordCount       int                                  `json:"word_count"`
	ReadingTime     int                                  `json:"reading_time"`
	ComparisonData  datatypes.JSONType[*PostComparison]  `json:"comparison_data"`
	CreatedAt       time.Time                            `json:"created_at"`
	UpdatedAt       time.Time                            `json:"updated_at"`
}

// BeforeSave fills every derived field that is absent and recomputes
// the ones that depend on the content. Explicit excerpt, meta title
// and meta description are never overwritten.
func (p *BlogPost) BeforeSave(tx *gorm.DB) error {
	if p.Slug == "" || p.Slug != Slugify(p.Title) {
		p.Slug = Slugify(p.Title)
	}

	plain := StripHTML(RenderMarkdown(p.Content))
	p.WordCount = WordCount(plain)
	p.ReadingTime = ReadingTime(p.WordCount)

	if p.Excerpt == "" {
		p.Excerpt = Truncate(plain, 300)
	}
	if p.MetaTitle == "" {
		p.MetaTitle = p.Title + " | " + SiteName()
	}
	if p.MetaDescription == "" {
		p.MetaDescription = MetaDescription(p.Excerpt, plain)
	}
	if p.Published && p.PublishedAt == nil {
		now := time.Now()
		p.PublishedAt = &now
	}
	return nil
}
