package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"yatube/about"
	"yatube/analytics"
	"yatube/backoffice"
	"yatube/cache"
	"yatube/common"
	"yatube/database"
	"yatube/posts"
	"yatube/render"
	"yatube/storage"
	"yatube/users"
	"yatube/views"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	db := common.ConnectDb(cfg)
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "createsuperuser" {
		createSuperuser(db, os.Args[2:])
		return
	}

	ctx := context.Background()

	router := gin.Default()
	router.Use(analytics.Middleware())

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})
	router.Use(sessions.Sessions("yatube-session", store))

	usersModule := users.NewUsersModule(db)
	router.Use(usersModule.LoadUser)

	media := storage.NewLocalStorage(cfg.MediaRoot, "/media/")
	tmpl, err := views.Load(views.FuncMap(media.URL))
	if err != nil {
		log.Fatal("Failed to parse templates:", err)
	}
	router.SetHTMLTemplate(tmpl)

	router.Static("/media", media.Root())

	pageCache, err := newPageCache(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to set up page cache:", err)
	}

	usersModule.RegisterRoutes(router)

	postsModule := posts.NewPostsModule(db, media, pageCache)
	postsModule.RegisterRoutes(router)

	aboutModule := about.NewAboutModule()
	aboutModule.RegisterRoutes(router)

	backofficeModule := backoffice.NewBackofficeModule(db, pageCache)
	backofficeModule.RegisterRoutes(router)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.NoRoute(render.Handler(func(c *gin.Context) render.Result {
		return render.NotFound{}
	}))

	log.Printf("Starting server on port %s...", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func newPageCache(ctx context.Context, cfg *common.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case "redis":
		client, err := cache.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		log.Printf("Page cache: redis at %s, ttl %s", cfg.RedisURL, cfg.CacheTTL)
		return cache.NewRedisStore(client, "yatube:pages:", cfg.CacheTTL), nil
	default:
		fileStore := cache.NewFileStore(cfg.CacheDir, cfg.CacheTTL)
		go fileStore.PruneEvery(ctx, cfg.CacheTTL*10)
		log.Printf("Page cache: files in %s, ttl %s", cfg.CacheDir, cfg.CacheTTL)
		return fileStore, nil
	}
}

func createSuperuser(db *gorm.DB, args []string) {
	fs := flag.NewFlagSet("createsuperuser", flag.ExitOnError)
	username := fs.String("username", "", "login name of the new staff user")
	email := fs.String("email", "", "optional email address")
	password := fs.String("password", "", "password, at least 8 characters")
	fs.Parse(args)

	user, err := users.CreateSuperuser(db, *username, *email, *password)
	if err != nil {
		log.Fatal("Failed to create superuser: ", err)
	}
	log.Printf("Superuser %s created", user.Username)
}
