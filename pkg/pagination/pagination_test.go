package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		page   int
		limit  int
		offset int
	}{
		{"defaults", "", 1, 10, 0},
		{"explicit", "page=3&limit=25", 3, 25, 50},
		{"zero page", "page=0", 1, 10, 0},
		{"negative page", "page=-2", 1, 10, 0},
		{"zero limit", "limit=0", 1, 10, 0},
		{"limit capped", "limit=5000", 1, MaxLimit, 0},
		{"garbage", "page=abc&limit=xyz", 1, 10, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := paramsFor(t, tc.query)
			assert.Equal(t, tc.page, p.Page)
			assert.Equal(t, tc.limit, p.Limit)
			assert.Equal(t, tc.offset, p.Offset)
		})
	}
}

func TestNewMeta(t *testing.T) {
	cases := []struct {
		name       string
		page       int
		limit      int
		total      int64
		totalPages int
		hasNext    bool
		hasPrev    bool
	}{
		{"empty", 1, 10, 0, 0, false, false},
		{"one partial page", 1, 10, 7, 1, false, false},
		{"exact multiple", 1, 10, 20, 2, true, false},
		{"remainder adds a page", 2, 10, 21, 3, true, true},
		{"last page", 3, 10, 21, 3, false, true},
		{"past the end", 5, 10, 21, 3, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMeta(tc.page, tc.limit, tc.total)
			assert.Equal(t, tc.page, m.Page)
			assert.Equal(t, tc.limit, m.Limit)
			assert.Equal(t, tc.total, m.Total)
			assert.Equal(t, tc.totalPages, m.TotalPages)
			assert.Equal(t, tc.hasNext, m.HasNext)
			assert.Equal(t, tc.hasPrev, m.HasPrev)
		})
	}
}
