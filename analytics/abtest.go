package analytics

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"betcompare/common"
)

// ABTest describes one experiment: a traffic allocation in [0,1] and
// the variants to bucket included visitors into. "control" is always
// the first bucket.
type ABTest struct {
	Name     string   `json:"name"`
	Traffic  float64  `json:"traffic"`
	Variants []string `json:"variants"`
}

// VariantExcluded marks visitors outside the test's traffic share.
const VariantExcluded = "excluded"

// AssignVariant buckets the visitor on first encounter of the test
// name and persists the result in the cookie session; later calls
// return the stored assignment unchanged.
func (t *Tracker) AssignVariant(c *gin.Context, test ABTest) string {
	session := sessions.Default(c)
	key := "ab_" + test.Name

	if v, ok := session.Get(key).(string); ok && v != "" {
		return v
	}

	variant := t.bucket(test)
	session.Set(key, variant)
	session.Save()

	t.Track(Event{
		Kind:      KindABAssignment,
		SessionID: SessionID(c),
		Extra: datatypes.JSONMap{
			"test":    test.Name,
			"variant": variant,
		},
	})

	return variant
}

func (t *Tracker) bucket(test ABTest) string {
	roll := t.rand()
	if roll >= test.Traffic {
		return VariantExcluded
	}

	buckets := append([]string{"control"}, test.Variants...)
	return buckets[int(t.rand()*float64(len(buckets)))%len(buckets)]
}

func (t *Tracker) rand() float64 {
	if t == nil || t.randFloat == nil {
		return 0
	}
	return t.randFloat()
}

// assignVariant is the HTTP face of AssignVariant.
func (m *AnalyticsModule) assignVariant(c *gin.Context) {
	var test ABTest
	if err := c.ShouldBindJSON(&test); err != nil {
		common.BadRequest(c, "invalid JSON payload")
		return
	}
	if test.Name == "" {
		common.BadRequest(c, "name is required")
		return
	}
	if test.Traffic < 0 || test.Traffic > 1 {
		common.BadRequest(c, "traffic must be between 0 and 1")
		return
	}

	variant := m.tracker.AssignVariant(c, test)
	common.OK(c, gin.H{
		"test":       test.Name,
		"variant":    variant,
		"session_id": SessionID(c),
	})
}
