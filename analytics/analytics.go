// Package analytics records funnel events for the conversion path from
// landing to affiliate conversion. The tracker is an explicitly
// constructed instance handed to the modules that emit events; nothing
// here is package-level state.
package analytics

import (
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"betcompare/auth"
	"betcompare/common"
	"betcompare/models"
)

// Event kinds form a closed tagged union; payload attributes the
// server does not model travel in the Extra bag.
const (
	KindPageView       = "page_view"
	KindFunnelStep     = "funnel_step"
	KindAffiliateClick = "affiliate_click"
	KindConversion     = "conversion"
	KindABAssignment   = "ab_assignment"
	KindCustom         = "custom"
)

var eventKinds = map[string]bool{
	KindPageView:       true,
	KindFunnelStep:     true,
	KindAffiliateClick: true,
	KindConversion:     true,
	KindABAssignment:   true,
	KindCustom:         true,
}

// Event is one recorded analytics event.
type Event struct {
	ID          uint               `gorm:"primary_key;autoIncrement" json:"id"`
	Kind        string             `gorm:"not null;index" json:"kind"`
	SessionID   string             `gorm:"not null;index" json:"session_id"`
	Step        string             `gorm:"index" json:"step,omitempty"`
	StepNumber  int                `json:"step_number,omitempty"`
	BookmakerID *uint              `gorm:"index" json:"bookmaker_id,omitempty"`
	BonusID     *uint              `json:"bonus_id,omitempty"`
	Value       float64            `json:"value,omitempty"`
	Page        string             `json:"page,omitempty"`
	Referrer    string             `json:"referrer,omitempty"`
	Extra       datatypes.JSONMap  `json:"extra,omitempty"`
	CreatedAt   time.Time          `gorm:"index" json:"created_at"`
}

// Tracker persists events. Construct one with NewTracker and inject it
// where events are emitted.
type Tracker struct {
	db *gorm.DB

	// randFloat drives A/B bucketing; replaceable in tests.
	randFloat func() float64
}

// NewTracker prepares the event table. A nil db disables tracking;
// every method is safe to call on a nil tracker.
func NewTracker(db *gorm.DB) *Tracker {
	if db == nil {
		log.Println("Analytics DB is nil, analytics will be disabled")
		return nil
	}

	if err := db.AutoMigrate(&Event{}); err != nil {
		log.Printf("Error migrating events table: %v", err)
		return nil
	}

	log.Println("Analytics tracker initialized")
	return &Tracker{db: db, randFloat: rand.Float64}
}

// Track stores the event asynchronously so request handling never
// waits on the analytics store.
func (t *Tracker) Track(ev Event) {
	if t == nil || t.db == nil {
		return
	}
	t.prepare(&ev)
	go func() {
		if err := t.db.Create(&ev).Error; err != nil {
			log.Printf("Error saving analytics event: %v", err)
		}
	}()
}

// TrackSync stores the event before returning; used where the caller
// immediately reads it back.
func (t *Tracker) TrackSync(ev Event) error {
	if t == nil || t.db == nil {
		return nil
	}
	t.prepare(&ev)
	return t.db.Create(&ev).Error
}

func (t *Tracker) prepare(ev *Event) {
	if !eventKinds[ev.Kind] {
		if ev.Extra == nil {
			ev.Extra = datatypes.JSONMap{}
		}
		ev.Extra["original_kind"] = ev.Kind
		ev.Kind = KindCustom
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	if ev.Kind == KindFunnelStep || ev.Kind == KindAffiliateClick || ev.Kind == KindConversion {
		ev.StepNumber = int(t.sessionStepCount(ev.SessionID)) + 1
	}
}

func (t *Tracker) sessionStepCount(sessionID string) int64 {
	var count int64
	t.db.Model(&Event{}).
		Where("session_id = ? AND kind IN ?", sessionID,
			[]string{KindFunnelStep, KindAffiliateClick, KindConversion}).
		Count(&count)
	return count
}

// SessionEvents returns the full ordered history for one session.
func (t *Tracker) SessionEvents(sessionID string) ([]Event, error) {
	if t == nil || t.db == nil {
		return nil, errors.New("analytics disabled")
	}
	var events []Event
	err := t.db.Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	return events, err
}

// LastAffiliateClick finds the most recent affiliate click in a
// session; the attribution model is last-click only.
func (t *Tracker) LastAffiliateClick(sessionID string) (*Event, error) {
	if t == nil || t.db == nil {
		return nil, errors.New("analytics disabled")
	}
	var ev Event
	err := t.db.Where("session_id = ? AND kind = ?", sessionID, KindAffiliateClick).
		Order("created_at DESC, id DESC").
		First(&ev).Error
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// DayEvents is the per-day event count used by the daily chart.
type DayEvents struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// EventsByDay returns event counts per day for the last N days,
// zero-filled for quiet days.
func (t *Tracker) EventsByDay(days int) []DayEvents {
	if t == nil || t.db == nil {
		return []DayEvents{}
	}

	startDate := time.Now().AddDate(0, 0, -days)

	var results []struct {
		Date  string
		Count int64
	}
	t.db.Model(&Event{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("created_at >= ?", startDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&results)

	dayEvents := make([]DayEvents, days)
	for i := 0; i < days; i++ {
		date := time.Now().AddDate(0, 0, -(days - 1 - i))
		dayEvents[i] = DayEvents{Date: date.Format("2006-01-02"), Count: 0}
	}
	for _, result := range results {
		for i := range dayEvents {
			if dayEvents[i].Date == result.Date {
				dayEvents[i].Count = result.Count
				break
			}
		}
	}
	return dayEvents
}

// BookmakerClicks counts affiliate clicks per bookmaker.
type BookmakerClicks struct {
	BookmakerID uint   `json:"bookmaker_id"`
	Name        string `json:"name"`
	Count       int64  `json:"count"`
}

// TopBookmakers returns the bookmakers with the most affiliate clicks
// in the last N days.
func (t *Tracker) TopBookmakers(days, limit int) []BookmakerClicks {
	if t == nil || t.db == nil {
		return []BookmakerClicks{}
	}

	startDate := time.Now().AddDate(0, 0, -days)

	var results []BookmakerClicks
	t.db.Model(&Event{}).
		Select("bookmaker_id, COUNT(*) as count").
		Where("kind = ? AND bookmaker_id IS NOT NULL AND created_at >= ?",
			KindAffiliateClick, startDate).
		Group("bookmaker_id").
		Order("count DESC").
		Limit(limit).
		Scan(&results)

	return results
}

// AnalyticsModule exposes the tracking HTTP surface.
type AnalyticsModule struct {
	db      *gorm.DB
	tracker *Tracker
}

func NewAnalyticsModule(db *gorm.DB, tracker *Tracker) *AnalyticsModule {
	return &AnalyticsModule{db: db, tracker: tracker}
}

func (m *AnalyticsModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/analytics")
	{
		group.POST("/track", m.track)
		group.POST("/track/funnel", m.trackFunnel)
		group.POST("/track/click", m.trackClick)
		group.POST("/ab-test", m.assignVariant)
		group.GET("/funnel/:sessionID", auth.RequireAuth(), m.funnelHistory)
		group.GET("/stats/daily", auth.RequireAuth(), m.dailyStats)
		group.GET("/stats/top-bookmakers", auth.RequireAuth(), m.topBookmakers)
	}
}

// trackRequest is the wire shape of an inbound event: a known kind
// with typed fields, plus a free-form extension bag for attributes
// the server does not model yet.
type trackRequest struct {
	Kind        string                 `json:"kind"`
	Step        string                 `json:"step"`
	BookmakerID *uint                  `json:"bookmaker_id"`
	BonusID     *uint                  `json:"bonus_id"`
	Page        string                 `json:"page"`
	Referrer    string                 `json:"referrer"`
	Type        string                 `json:"type"`
	Extra       map[string]interface{} `json:"extra"`
}

func (r *trackRequest) toEvent(sessionID string) Event {
	return Event{
		Kind:        r.Kind,
		SessionID:   sessionID,
		Step:        r.Step,
		BookmakerID: r.BookmakerID,
		BonusID:     r.BonusID,
		Page:        r.Page,
		Referrer:    r.Referrer,
		Extra:       datatypes.JSONMap(r.Extra),
	}
}

func (m *AnalyticsModule) track(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, "invalid JSON payload")
		return
	}
	if req.Kind == "" {
		common.BadRequest(c, "kind is required")
		return
	}

	ev := req.toEvent(SessionID(c))

	if req.Kind == KindConversion {
		ev.Value = m.conversionValue(&req, ev.SessionID)
		if click, err := m.tracker.LastAffiliateClick(ev.SessionID); err == nil {
			if ev.Extra == nil {
				ev.Extra = datatypes.JSONMap{}
			}
			ev.Extra["attribution"] = "last_click"
			if click.BookmakerID != nil {
				ev.Extra["attributed_bookmaker_id"] = *click.BookmakerID
			}
		}
	}

	if err := m.tracker.TrackSync(ev); err != nil {
		common.ServerError(c, err)
		return
	}
	common.OK(c, gin.H{"recorded": true, "session_id": ev.SessionID})
}

func (m *AnalyticsModule) trackFunnel(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, "invalid JSON payload")
		return
	}
	if StepPosition(req.Step) == 0 {
		common.BadRequest(c, "unknown funnel step")
		return
	}

	req.Kind = KindFunnelStep
	ev := req.toEvent(SessionID(c))
	if err := m.tracker.TrackSync(ev); err != nil {
		common.ServerError(c, err)
		return
	}
	common.OK(c, gin.H{
		"recorded":    true,
		"session_id":  ev.SessionID,
		"step":        ev.Step,
		"step_number": ev.StepNumber,
	})
}

// trackClick records the affiliate click, the monetization event the
// whole funnel drives toward.
func (m *AnalyticsModule) trackClick(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, "invalid JSON payload")
		return
	}
	if req.BookmakerID == nil {
		common.BadRequest(c, "bookmaker_id is required")
		return
	}

	var bookmaker models.Bookmaker
	if err := m.db.First(&bookmaker, *req.BookmakerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.NotFound(c, "bookmaker not found")
			return
		}
		common.ServerError(c, err)
		return
	}

	req.Kind = KindAffiliateClick
	req.Step = StepClickAffiliate
	ev := req.toEvent(SessionID(c))
	if err := m.tracker.TrackSync(ev); err != nil {
		common.ServerError(c, err)
		return
	}
	common.OK(c, gin.H{
		"recorded":      true,
		"session_id":    ev.SessionID,
		"affiliate_url": bookmaker.AffiliateURL,
	})
}

// conversionValue prices a conversion: a per-type base scaled by the
// bookmaker's rating, plus a capped bonus-derived contribution.
func (m *AnalyticsModule) conversionValue(req *trackRequest, sessionID string) float64 {
	rating := 0.0
	bonusAmount := 0.0

	bookmakerID := req.BookmakerID
	if bookmakerID == nil {
		// Fall back to last-click attribution for the rating source.
		if click, err := m.tracker.LastAffiliateClick(sessionID); err == nil {
			bookmakerID = click.BookmakerID
		}
	}
	if bookmakerID != nil {
		var bookmaker models.Bookmaker
		if err := m.db.First(&bookmaker, *bookmakerID).Error; err == nil {
			rating = bookmaker.Ratings.Overall
		}
	}
	if req.BonusID != nil {
		var bonus models.Bonus
		if err := m.db.First(&bonus, *req.BonusID).Error; err == nil {
			bonusAmount = bonus.Amount
		}
	}

	return ConversionValue(req.Type, rating, bonusAmount)
}

func (m *AnalyticsModule) funnelHistory(c *gin.Context) {
	sessionID := c.Param("sessionID")
	events, err := m.tracker.SessionEvents(sessionID)
	if err != nil {
		common.ServerError(c, err)
		return
	}
	if len(events) == 0 {
		common.NotFound(c, "session not found")
		return
	}

	totalValue := 0.0
	steps := 0
	for _, ev := range events {
		totalValue += ev.Value
		if ev.StepNumber > steps {
			steps = ev.StepNumber
		}
	}

	common.OK(c, gin.H{
		"session_id":  sessionID,
		"started_at":  events[0].CreatedAt,
		"events":      events,
		"step_count":  steps,
		"total_value": totalValue,
		"attribution": "last_click",
	})
}

func (m *AnalyticsModule) dailyStats(c *gin.Context) {
	days := intQuery(c, "days", 30)
	common.OK(c, m.tracker.EventsByDay(days))
}

func (m *AnalyticsModule) topBookmakers(c *gin.Context) {
	days := intQuery(c, "days", 30)
	limit := intQuery(c, "limit", 10)

	top := m.tracker.TopBookmakers(days, limit)
	for i := range top {
		var bookmaker models.Bookmaker
		if err := m.db.First(&bookmaker, top[i].BookmakerID).Error; err == nil {
			top[i].Name = bookmaker.Name
		} else {
			top[i].Name = "unknown"
		}
	}
	common.OK(c, top)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	n := 0
	for _, ch := range v {
		if ch < '0' || ch > '9' {
			return fallback
		}
		n = n*10 + int(ch-'0')
	}
	if n < 1 {
		return fallback
	}
	return n
}
