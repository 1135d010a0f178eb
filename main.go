package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"betcompare/analytics"
	"betcompare/auth"
	"betcompare/blog"
	"betcompare/bonuses"
	"betcompare/bookmakers"
	"betcompare/cache"
	"betcompare/common"
	"betcompare/comparison"
	"betcompare/database"
	"betcompare/reviews"
	"betcompare/search"
	"betcompare/site"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	// A missing store is not fatal: /health stays up and the API
	// answers 503 until the database is configured.
	db := common.ConnectDb()
	if db != nil {
		if err := database.RunMigrations(db); err != nil {
			log.Println("Failed to run migrations:", err)
		}
	}

	router := gin.Default()

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable not set")
	}

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   false,
	})

	router.Use(sessions.Sessions("betcompare-session", store))
	router.Use(analytics.SessionMiddleware())

	router.Use(common.RequireDB(db))
	router.Use(cache.Middleware(5*time.Minute,
		"/api/comparison/table",
		"/api/bookmakers",
	))

	tracker := analytics.NewTracker(db)

	siteModule := site.NewSiteModule(db)
	siteModule.RegisterRoutes(router)

	authModule := auth.NewAuthModule()
	authModule.RegisterRoutes(router)

	bookmakersModule := bookmakers.NewBookmakersModule(db)
	bookmakersModule.RegisterRoutes(router)

	reviewsModule := reviews.NewReviewsModule(db)
	reviewsModule.RegisterRoutes(router)

	bonusesModule := bonuses.NewBonusesModule(db, tracker)
	bonusesModule.RegisterRoutes(router)

	blogModule := blog.NewBlogModule(db)
	blogModule.RegisterRoutes(router)

	comparisonModule := comparison.NewComparisonModule(db)
	comparisonModule.RegisterRoutes(router)

	searchModule := search.NewSearchModule(db)
	searchModule.RegisterRoutes(router)

	analyticsModule := analytics.NewAnalyticsModule(db, tracker)
	analyticsModule.RegisterRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
