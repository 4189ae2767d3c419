package backoffice

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"yatube/cache"
	"yatube/models"
	"yatube/users"
	"yatube/views"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Group{}, &models.Post{}, &models.Comment{}, &models.Follow{}))
	return db
}

func setupTestRouter(t *testing.T, module *BackofficeModule, viewer *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if viewer != nil {
			users.SetCurrentUser(c, viewer)
		}
		c.Next()
	})

	tmpl, err := views.Load(views.FuncMap(func(ref string) string { return "/media/" + ref }))
	require.NoError(t, err)
	router.SetHTMLTemplate(tmpl)

	module.RegisterRoutes(router)
	return router
}

func createTestUser(t *testing.T, db *gorm.DB, username string, staff bool) *models.User {
	user := &models.User{Username: username, PasswordHash: "hashedpassword", IsStaff: staff}
	require.NoError(t, db.Create(user).Error)
	return user
}

func request(router *gin.Engine, method, path string, values url.Values) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, strings.NewReader(values.Encode()))
	if method == "POST" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBackoffice_Anonymous(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(t, NewBackofficeModule(db, nil), nil)

	w := request(router, "GET", "/admin/", nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, users.LoginRedirect("/admin/"), w.Header().Get("Location"))
}

func TestBackoffice_NonStaffGetsNotFound(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "leo", false)
	router := setupTestRouter(t, NewBackofficeModule(db, nil), user)

	for _, tt := range []struct{ method, path string }{
		{"GET", "/admin/"},
		{"POST", "/admin/groups/"},
		{"POST", "/admin/posts/1/delete/"},
		{"POST", "/admin/cache/clear/"},
	} {
		w := request(router, tt.method, tt.path, url.Values{"title": {"Cats"}})
		assert.Equal(t, http.StatusNotFound, w.Code, tt.path)
	}

	var count int64
	db.Model(&models.Group{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestBackoffice_Dashboard(t *testing.T) {
	db := setupTestDB(t)
	staff := createTestUser(t, db, "admin", true)
	cats := models.Group{Title: "Cats", Slug: "cats"}
	dogs := models.Group{Title: "Dogs", Slug: "dogs"}
	require.NoError(t, db.Create(&cats).Error)
	require.NoError(t, db.Create(&dogs).Error)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Post{Text: "meow", AuthorID: staff.ID, GroupID: &cats.ID}).Error)
	}
	require.NoError(t, db.Create(&models.Post{Text: "no group", AuthorID: staff.ID}).Error)

	module := NewBackofficeModule(db, nil)
	stats, err := module.groupStats()
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "cats", stats[0].Group.Slug)
	assert.Equal(t, int64(3), stats[0].PostCount)
	assert.Equal(t, int64(0), stats[1].PostCount)

	w := request(setupTestRouter(t, module, staff), "GET", "/admin/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<td>3</td>")
	assert.Contains(t, w.Body.String(), "no group")
}

func TestBackoffice_CreateGroup(t *testing.T) {
	db := setupTestDB(t)
	staff := createTestUser(t, db, "admin", true)
	router := setupTestRouter(t, NewBackofficeModule(db, nil), staff)

	w := request(router, "POST", "/admin/groups/", url.Values{
		"title":       {"Black Cats"},
		"description": {"Only black ones"},
	})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/?done=group", w.Header().Get("Location"))

	var group models.Group
	require.NoError(t, db.Where("slug = ?", "black-cats").First(&group).Error)
	assert.Equal(t, "Black Cats", group.Title)
	assert.Equal(t, "Only black ones", group.Description)

	w = request(router, "POST", "/admin/groups/", url.Values{"title": {"Black cats"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Group with this slug already exists.")

	w = request(router, "POST", "/admin/groups/", url.Values{"title": {""}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")

	var count int64
	db.Model(&models.Group{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestBackoffice_DeletePost(t *testing.T) {
	db := setupTestDB(t)
	staff := createTestUser(t, db, "admin", true)
	author := createTestUser(t, db, "leo", false)
	post := models.Post{Text: "spam", AuthorID: author.ID}
	keep := models.Post{Text: "ham", AuthorID: author.ID}
	require.NoError(t, db.Create(&post).Error)
	require.NoError(t, db.Create(&keep).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, AuthorID: author.ID, Text: "on spam"}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: keep.ID, AuthorID: author.ID, Text: "on ham"}).Error)
	router := setupTestRouter(t, NewBackofficeModule(db, nil), staff)

	w := request(router, "POST", fmt.Sprintf("/admin/posts/%d/delete/", post.ID), nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/?done=post", w.Header().Get("Location"))

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	require.Len(t, posts, 1)
	assert.Equal(t, keep.ID, posts[0].ID)

	var comments []models.Comment
	require.NoError(t, db.Find(&comments).Error)
	require.Len(t, comments, 1)
	assert.Equal(t, "on ham", comments[0].Text)

	w = request(router, "POST", fmt.Sprintf("/admin/posts/%d/delete/", post.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBackoffice_ClearCache(t *testing.T) {
	db := setupTestDB(t)
	staff := createTestUser(t, db, "admin", true)
	pageCache := cache.NewFileStore(t.TempDir(), 20*time.Second)
	ctx := context.Background()
	require.NoError(t, pageCache.Set(ctx, "index", []byte("<p>stale</p>")))
	router := setupTestRouter(t, NewBackofficeModule(db, pageCache), staff)

	w := request(router, "POST", "/admin/cache/clear/", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/?done=cache", w.Header().Get("Location"))

	_, found := pageCache.Get(ctx, "index")
	assert.False(t, found)

	w = request(router, "GET", "/admin/?done=cache", nil)
	assert.Contains(t, w.Body.String(), "Cache cleared")
}

func TestBackoffice_CreateGroupSlugRace(t *testing.T) {
	db := setupTestDB(t)
	staff := createTestUser(t, db, "admin", true)
	router := setupTestRouter(t, NewBackofficeModule(db, nil), staff)

	// Another writer takes the slug between validation and insert.
	raced := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:take_slug", func(tx *gorm.DB) {
		if raced || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "groups" {
			return
		}
		raced = true
		tx.Session(&gorm.Session{NewDB: true}).Exec("INSERT INTO groups (title, slug, description) VALUES (?, ?, '')", "Cats", "cats")
	}))

	w := request(router, "POST", "/admin/groups/", url.Values{"title": {"Cats"}})

	assert.True(t, raced)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Group with this slug already exists.")
}
