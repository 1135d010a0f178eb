package analytics

import (
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// The ten funnel steps, in conversion order. Steps may repeat and
// arrive out of order; the tracker records position, it does not
// enforce progression.
const (
	StepLanding         = "landing"
	StepBrowse          = "browse"
	StepViewDetails     = "view_details"
	StepStartComparison = "start_comparison"
	StepAddToComparison = "add_to_comparison"
	StepViewComparison  = "view_comparison"
	StepReadReview      = "read_review"
	StepViewBonus       = "view_bonus"
	StepClickAffiliate  = "click_affiliate"
	StepConversion      = "conversion"
)

var FunnelSteps = []string{
	StepLanding,
	StepBrowse,
	StepViewDetails,
	StepStartComparison,
	StepAddToComparison,
	StepViewComparison,
	StepReadReview,
	StepViewBonus,
	StepClickAffiliate,
	StepConversion,
}

// StepPosition returns the 1-based position of a step in the funnel,
// 0 for unknown steps.
func StepPosition(step string) int {
	for i, s := range FunnelSteps {
		if s == step {
			return i + 1
		}
	}
	return 0
}

// Base conversion values per conversion type, in KES.
var conversionBaseValues = map[string]float64{
	"signup":     50,
	"deposit":    100,
	"bet_placed": 25,
}

const (
	defaultBaseValue      = 10.0
	bonusContributionRate = 0.1
	bonusContributionCap  = 50.0
)

// ConversionValue prices a conversion event: the per-type base value
// scaled by bookmakerRating/5, plus 10% of the bonus amount capped at
// a fixed ceiling.
func ConversionValue(conversionType string, bookmakerRating, bonusAmount float64) float64 {
	base, ok := conversionBaseValues[conversionType]
	if !ok {
		base = defaultBaseValue
	}

	scale := bookmakerRating / 5
	if scale < 0 {
		scale = 0
	}
	if scale > 1 {
		scale = 1
	}

	contribution := bonusAmount * bonusContributionRate
	if contribution > bonusContributionCap {
		contribution = bonusContributionCap
	}

	return base*scale + contribution
}

const (
	sessionIDKey    = "funnel_session_id"
	sessionStartKey = "funnel_session_start"
)

// SessionMiddleware anchors every visitor to a funnel session: a uuid
// and start time stored in the cookie session on first contact.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if id, ok := session.Get(sessionIDKey).(string); !ok || id == "" {
			session.Set(sessionIDKey, uuid.New().String())
			session.Set(sessionStartKey, time.Now().Unix())
			session.Save()
		}
		c.Next()
	}
}

// SessionID returns the visitor's funnel session id, creating one if
// the middleware has not run.
func SessionID(c *gin.Context) string {
	session := sessions.Default(c)
	if id, ok := session.Get(sessionIDKey).(string); ok && id != "" {
		return id
	}
	id := uuid.New().String()
	session.Set(sessionIDKey, id)
	session.Set(sessionStartKey, time.Now().Unix())
	session.Save()
	return id
}

// SessionStart returns the unix timestamp anchoring the session's
// relative timing, 0 when unknown.
func SessionStart(c *gin.Context) int64 {
	session := sessions.Default(c)
	if start, ok := session.Get(sessionStartKey).(int64); ok {
		return start
	}
	return 0
}
