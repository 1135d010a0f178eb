// Package site serves the non-API surface: liveness probe, sitemap and
// robots.txt for search engines.
package site

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"betcompare/models"
)

type SiteModule struct {
	db *gorm.DB
}

func NewSiteModule(db *gorm.DB) *SiteModule {
	return &SiteModule{db: db}
}

func (s *SiteModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", s.health)
	router.GET("/sitemap.xml", s.sitemap)
	router.GET("/robots.txt", s.robots)
}

// health always answers 200; the store's state is reported, not
// required.
func (s *SiteModule) health(c *gin.Context) {
	dbStatus := "connected"
	if s.db == nil {
		dbStatus = "unavailable"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": dbStatus,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

func domain() string {
	d := os.Getenv("DOMAIN")
	if d == "" {
		d = "http://localhost:8080"
	}
	return strings.TrimSuffix(d, "/")
}

// sitemap covers only what should be indexed: active bookmakers,
// published reviews and published posts.
func (s *SiteModule) sitemap(c *gin.Context) {
	d := domain()

	var sitemap strings.Builder
	sitemap.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sitemap.WriteString("\n")
	sitemap.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	sitemap.WriteString("\n")

	writeURL := func(loc, lastmod, changefreq, priority string) {
		sitemap.WriteString("  <url>\n")
		sitemap.WriteString("    <loc>" + loc + "</loc>\n")
		if lastmod != "" {
			sitemap.WriteString("    <lastmod>" + lastmod + "</lastmod>\n")
		}
		sitemap.WriteString("    <changefreq>" + changefreq + "</changefreq>\n")
		sitemap.WriteString("    <priority>" + priority + "</priority>\n")
		sitemap.WriteString("  </url>\n")
	}

	writeURL(d+"/", "", "daily", "1.0")
	writeURL(d+"/bookmakers", "", "daily", "0.9")
	writeURL(d+"/bonuses", "", "daily", "0.8")
	writeURL(d+"/blog", "", "daily", "0.8")

	if s.db != nil {
		var bookmakers []models.Bookmaker
		s.db.Where("status = ?", models.StatusActive).Find(&bookmakers)
		for _, bookmaker := range bookmakers {
			writeURL(d+"/bookmakers/"+bookmaker.Slug,
				bookmaker.UpdatedAt.Format(time.RFC3339), "weekly", "0.7")
		}

		var reviews []models.Review
		s.db.Where("published = ?", true).Find(&reviews)
		for _, review := range reviews {
			writeURL(d+"/reviews/"+models.Slugify(review.Title),
				review.UpdatedAt.Format(time.RFC3339), "monthly", "0.6")
		}

		var posts []models.BlogPost
		s.db.Where("published = ?", true).Find(&posts)
		for _, post := range posts {
			writeURL(d+"/blog/"+post.Slug,
				post.UpdatedAt.Format(time.RFC3339), "monthly", "0.6")
		}
	}

	sitemap.WriteString("</urlset>\n")

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, sitemap.String())
}

func (s *SiteModule) robots(c *gin.Context) {
	var robots strings.Builder
	robots.WriteString("User-agent: *\n")
	robots.WriteString("Disallow: /api/\n")
	robots.WriteString("Allow: /\n")
	robots.WriteString("\n")
	robots.WriteString("Sitemap: " + domain() + "/sitemap.xml\n")

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, robots.String())
}
