// Package validation gates request payloads before they reach the
// store. Rules are static per entity, expressed as validator tags on
// the input types; failures come back as itemized field errors.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"betcompare/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("bookmaker_feature", isBookmakerFeature)
	// report fields under their wire names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func isBookmakerFeature(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, f := range models.BookmakerFeatures {
		if f == value {
			return true
		}
	}
	return false
}

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate runs the rule set for the given input and returns the
// itemized failures, nil when the payload passes. No side effects.
func Validate(input interface{}) []FieldError {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fieldName(fe),
			Message: message(fe),
		})
	}
	return out
}

func fieldName(fe validator.FieldError) string {
	// Namespace looks like "BookmakerInput.ratings.overall" once the
	// tag name func is registered; drop the leading type name.
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.Join(strings.Fields(fe.Param()), ", "))
	case "url":
		return "must be a valid URL"
	case "gte":
		return fmt.Sprintf("must be %s or more", fe.Param())
	case "lte":
		return fmt.Sprintf("must be %s or less", fe.Param())
	case "gtfield":
		return fmt.Sprintf("must be after %s", fe.Param())
	case "bookmaker_feature":
		return "is not a recognized feature"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// RatingsInput mirrors models.Ratings with range rules.
type RatingsInput struct {
	Overall float64 `json:"overall" validate:"gte=0,lte=5"`
	Odds    float64 `json:"odds" validate:"gte=0,lte=5"`
	Bonuses float64 `json:"bonuses" validate:"gte=0,lte=5"`
	Mobile  float64 `json:"mobile" validate:"gte=0,lte=5"`
	Support float64 `json:"support" validate:"gte=0,lte=5"`
	Payout  float64 `json:"payout" validate:"gte=0,lte=5"`
}

type BookmakerInput struct {
	Name           string       `json:"name" validate:"required,min=2,max=100"`
	LogoURL        string       `json:"logo_url" validate:"omitempty,url"`
	WebsiteURL     string       `json:"website_url" validate:"omitempty,url"`
	AffiliateURL   string       `json:"affiliate_url" validate:"omitempty,url"`
	Description    string       `json:"description" validate:"max=2000"`
	Ratings        RatingsInput `json:"ratings"`
	Features       []string     `json:"features" validate:"dive,bookmaker_feature"`
	PaymentMethods []string     `json:"payment_methods" validate:"max=20,dive,min=2,max=50"`
	LicenseInfo    string       `json:"license_info" validate:"max=200"`
	Status         string       `json:"status" validate:"omitempty,oneof=active inactive pending suspended"`
	Featured       bool         `json:"featured"`
	Priority       int          `json:"priority" validate:"gte=0,lte=1000"`
}

type SubRatingsInput struct {
	Odds    int `json:"odds" validate:"required,gte=1,lte=5"`
	Bonuses int `json:"bonuses" validate:"required,gte=1,lte=5"`
	Mobile  int `json:"mobile" validate:"required,gte=1,lte=5"`
	Support int `json:"support" validate:"required,gte=1,lte=5"`
	Payout  int `json:"payout" validate:"required,gte=1,lte=5"`
}

type ReviewInput struct {
	BookmakerID uint            `json:"bookmaker_id" validate:"required"`
	Title       string          `json:"title" validate:"required,min=5,max=150"`
	Author      string          `json:"author" validate:"max=100"`
	SubRatings  SubRatingsInput `json:"sub_ratings"`
	Intro       string          `json:"intro" validate:"max=1000"`
	Pros        string          `json:"pros" validate:"max=2000"`
	Cons        string          `json:"cons" validate:"max=2000"`
	Verdict     string          `json:"verdict" validate:"max=1500"`
	Content     string          `json:"content" validate:"max=50000"`
	Published   bool            `json:"published"`
}

type BonusInput struct {
	BookmakerID         uint      `json:"bookmaker_id" validate:"required"`
	Title               string    `json:"title" validate:"required,min=5,max=150"`
	Type                string    `json:"type" validate:"required,oneof=welcome no-deposit free-bet deposit-match cashback acca-boost loyalty"`
	Amount              float64   `json:"amount" validate:"gte=0"`
	IsPercentage        bool      `json:"is_percentage"`
	MaxCap              float64   `json:"max_cap" validate:"gte=0"`
	WageringRequirement int       `json:"wagering_requirement" validate:"gte=0,lte=100"`
	MinDeposit          float64   `json:"min_deposit" validate:"gte=0"`
	PromoCode           string    `json:"promo_code" validate:"max=50"`
	Terms               string    `json:"terms" validate:"max=5000"`
	ValidFrom           time.Time `json:"valid_from" validate:"required"`
	ValidUntil          time.Time `json:"valid_until" validate:"required,gtfield=ValidFrom"`
	Active              bool      `json:"active"`
	Exclusive           bool      `json:"exclusive"`
}

type BlogPostInput struct {
	Title           string                 `json:"title" validate:"required,min=5,max=200"`
	Category        string                 `json:"category" validate:"required,oneof=betting-tips bookmaker-news bonus-guides sports-analysis how-to industry-news"`
	Author          string                 `json:"author" validate:"max=100"`
	Content         string                 `json:"content" validate:"required"`
	Excerpt         string                 `json:"excerpt" validate:"max=500"`
	MetaTitle       string                 `json:"meta_title" validate:"max=150"`
	MetaDescription string                 `json:"meta_description" validate:"max=300"`
	Tags            []string               `json:"tags" validate:"max=10,dive,min=2,max=40"`
	FeaturedImage   string                 `json:"featured_image" validate:"omitempty,url"`
	Published       bool                   `json:"published"`
	ComparisonData  *models.PostComparison `json:"comparison_data"`
}
