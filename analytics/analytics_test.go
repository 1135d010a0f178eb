package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"betcompare/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Bookmaker{}, &models.Bonus{}))
	return db
}

func setupTestRouter(db *gorm.DB, tracker *Tracker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("test-session-secret"))
	router.Use(sessions.Sessions("test-session", store))
	router.Use(SessionMiddleware())
	NewAnalyticsModule(db, tracker).RegisterRoutes(router)
	return router
}

func TestStepPosition(t *testing.T) {
	assert.Equal(t, 1, StepPosition(StepLanding))
	assert.Equal(t, 9, StepPosition(StepClickAffiliate))
	assert.Equal(t, 10, StepPosition(StepConversion))
	assert.Equal(t, 0, StepPosition("window_shopping"))
}

func TestConversionValue(t *testing.T) {
	// full rating, no bonus: plain base
	assert.Equal(t, 50.0, ConversionValue("signup", 5, 0))
	assert.Equal(t, 100.0, ConversionValue("deposit", 5, 0))
	assert.Equal(t, 25.0, ConversionValue("bet_placed", 5, 0))

	// unknown type falls back to the default base
	assert.Equal(t, 10.0, ConversionValue("newsletter", 5, 0))

	// rating scales the base linearly
	assert.Equal(t, 25.0, ConversionValue("signup", 2.5, 0))
	assert.Equal(t, 0.0, ConversionValue("signup", 0, 0))

	// out-of-range ratings clamp
	assert.Equal(t, 50.0, ConversionValue("signup", 9, 0))
	assert.Equal(t, 0.0, ConversionValue("signup", -1, 0))

	// bonus contributes 10%, capped at 50
	assert.Equal(t, 60.0, ConversionValue("signup", 5, 100))
	assert.Equal(t, 100.0, ConversionValue("signup", 5, 5000))
	assert.Equal(t, 100.0, ConversionValue("signup", 5, 100000))
}

func TestTrackSync_StepNumbering(t *testing.T) {
	tracker := NewTracker(setupTestDB(t))
	require.NotNil(t, tracker)

	session := "session-a"
	require.NoError(t, tracker.TrackSync(Event{Kind: KindFunnelStep, SessionID: session, Step: StepLanding}))
	require.NoError(t, tracker.TrackSync(Event{Kind: KindPageView, SessionID: session}))
	require.NoError(t, tracker.TrackSync(Event{Kind: KindFunnelStep, SessionID: session, Step: StepBrowse}))
	require.NoError(t, tracker.TrackSync(Event{Kind: KindAffiliateClick, SessionID: session}))

	// a second session numbers independently
	require.NoError(t, tracker.TrackSync(Event{Kind: KindFunnelStep, SessionID: "session-b", Step: StepLanding}))

	events, err := tracker.SessionEvents(session)
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, 1, events[0].StepNumber)
	assert.Equal(t, 0, events[1].StepNumber) // page views carry no position
	assert.Equal(t, 2, events[2].StepNumber)
	assert.Equal(t, 3, events[3].StepNumber)

	other, err := tracker.SessionEvents("session-b")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, 1, other[0].StepNumber)
}

func TestTrackSync_UnknownKindBecomesCustom(t *testing.T) {
	tracker := NewTracker(setupTestDB(t))

	require.NoError(t, tracker.TrackSync(Event{Kind: "scroll_depth", SessionID: "s"}))

	events, err := tracker.SessionEvents("s")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, KindCustom, events[0].Kind)
	assert.Equal(t, "scroll_depth", events[0].Extra["original_kind"])
}

func TestNilTrackerIsSafe(t *testing.T) {
	var tracker *Tracker

	tracker.Track(Event{Kind: KindPageView, SessionID: "s"})
	assert.NoError(t, tracker.TrackSync(Event{Kind: KindPageView, SessionID: "s"}))
	assert.Empty(t, tracker.EventsByDay(7))
	assert.Empty(t, tracker.TopBookmakers(7, 5))

	_, err := tracker.SessionEvents("s")
	assert.Error(t, err)
}

func TestLastAffiliateClick(t *testing.T) {
	tracker := NewTracker(setupTestDB(t))

	first, second := uint(1), uint(2)
	require.NoError(t, tracker.TrackSync(Event{Kind: KindAffiliateClick, SessionID: "s", BookmakerID: &first}))
	require.NoError(t, tracker.TrackSync(Event{Kind: KindAffiliateClick, SessionID: "s", BookmakerID: &second}))

	click, err := tracker.LastAffiliateClick("s")
	require.NoError(t, err)
	require.NotNil(t, click.BookmakerID)
	assert.Equal(t, second, *click.BookmakerID)

	_, err = tracker.LastAffiliateClick("quiet-session")
	assert.Error(t, err)
}

func TestEventsByDay_ZeroFilled(t *testing.T) {
	tracker := NewTracker(setupTestDB(t))
	require.NoError(t, tracker.TrackSync(Event{Kind: KindPageView, SessionID: "s"}))

	days := tracker.EventsByDay(7)
	require.Len(t, days, 7)
	assert.Equal(t, int64(1), days[6].Count)
	for _, d := range days[:6] {
		assert.Equal(t, int64(0), d.Count)
	}
}

func TestTopBookmakers(t *testing.T) {
	tracker := NewTracker(setupTestDB(t))

	first, second := uint(1), uint(2)
	for i := 0; i < 3; i++ {
		require.NoError(t, tracker.TrackSync(Event{Kind: KindAffiliateClick, SessionID: "s", BookmakerID: &second}))
	}
	require.NoError(t, tracker.TrackSync(Event{Kind: KindAffiliateClick, SessionID: "s", BookmakerID: &first}))
	require.NoError(t, tracker.TrackSync(Event{Kind: KindPageView, SessionID: "s", BookmakerID: &first}))

	top := tracker.TopBookmakers(7, 10)
	require.Len(t, top, 2)
	assert.Equal(t, second, top[0].BookmakerID)
	assert.Equal(t, int64(3), top[0].Count)
	assert.Equal(t, int64(1), top[1].Count)
}

func TestBucket(t *testing.T) {
	tracker := NewTracker(setupTestDB(t))
	test := ABTest{Name: "hero-banner", Traffic: 0.5, Variants: []string{"variant_a"}}

	tracker.randFloat = func() float64 { return 0.9 }
	assert.Equal(t, VariantExcluded, tracker.bucket(test))

	// inside traffic; second roll picks the bucket
	rolls := []float64{0.1, 0.0}
	tracker.randFloat = func() float64 { r := rolls[0]; rolls = rolls[1:]; return r }
	assert.Equal(t, "control", tracker.bucket(test))

	rolls = []float64{0.1, 0.6}
	assert.Equal(t, "variant_a", tracker.bucket(test))
}

func TestAssignVariant_HTTPStableAcrossCalls(t *testing.T) {
	db := setupTestDB(t)
	tracker := NewTracker(db)
	tracker.randFloat = func() float64 { return 0.0 }
	router := setupTestRouter(db, tracker)

	payload := `{"name":"hero-banner","traffic":1,"variants":["variant_a"]}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analytics/ab-test", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Variant   string `json:"variant"`
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "control", resp.Data.Variant)

	// replay with the session cookie; the stored assignment wins even
	// though the roll would now exclude
	tracker.randFloat = func() float64 { return 0.99 }

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/api/analytics/ab-test", strings.NewReader(payload))
	req2.Header.Set("Content-Type", "application/json")
	for _, c := range w.Result().Cookies() {
		req2.AddCookie(c)
	}
	router.ServeHTTP(w2, req2)
	require.Equal(t, http.StatusOK, w2.Code)

	var resp2 struct {
		Data struct {
			Variant string `json:"variant"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &resp2))
	assert.Equal(t, "control", resp2.Data.Variant)
}

func TestAssignVariant_HTTPValidation(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, NewTracker(db))

	for _, payload := range []string{
		`{"traffic":0.5}`,
		`{"name":"x","traffic":1.5}`,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/analytics/ab-test", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, payload)
	}
}

func TestTrackFunnel_HTTP(t *testing.T) {
	db := setupTestDB(t)
	tracker := NewTracker(db)
	router := setupTestRouter(db, tracker)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analytics/track/funnel",
		strings.NewReader(`{"step":"view_details"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"step_number":1`)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/analytics/track/funnel",
		strings.NewReader(`{"step":"teleport"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrackClick_HTTP(t *testing.T) {
	db := setupTestDB(t)
	tracker := NewTracker(db)
	router := setupTestRouter(db, tracker)

	bookmaker := &models.Bookmaker{
		Name:         "Betika",
		Status:       models.StatusActive,
		AffiliateURL: "https://affiliates.example.com/betika",
	}
	require.NoError(t, db.Create(bookmaker).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analytics/track/click",
		strings.NewReader(`{"bookmaker_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "affiliates.example.com/betika")

	// missing bookmaker_id
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/analytics/track/click",
		strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown bookmaker
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/analytics/track/click",
		strings.NewReader(`{"bookmaker_id":42}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrackConversion_HTTPAttribution(t *testing.T) {
	db := setupTestDB(t)
	tracker := NewTracker(db)
	router := setupTestRouter(db, tracker)

	bookmaker := &models.Bookmaker{
		Name:    "Betika",
		Status:  models.StatusActive,
		Ratings: models.Ratings{Overall: 5},
	}
	require.NoError(t, db.Create(bookmaker).Error)

	// click then convert within one cookie session
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analytics/track/click",
		strings.NewReader(`{"bookmaker_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/api/analytics/track",
		strings.NewReader(`{"kind":"conversion","type":"signup"}`))
	req2.Header.Set("Content-Type", "application/json")
	for _, c := range w.Result().Cookies() {
		req2.AddCookie(c)
	}
	router.ServeHTTP(w2, req2)
	require.Equal(t, http.StatusOK, w2.Code)

	var resp struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &resp))

	events, err := tracker.SessionEvents(resp.Data.SessionID)
	require.NoError(t, err)
	require.Len(t, events, 2)

	conversion := events[1]
	assert.Equal(t, KindConversion, conversion.Kind)
	assert.Equal(t, 50.0, conversion.Value) // signup base at a 5.0 rating
	assert.Equal(t, "last_click", conversion.Extra["attribution"])
	assert.EqualValues(t, 1, conversion.Extra["attributed_bookmaker_id"])
}
