package backoffice

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"yatube/cache"
	"yatube/forms"
	"yatube/models"
	"yatube/render"
	"yatube/users"
)

const recentPosts = 20

// BackofficeModule is the staff-only administration area.
type BackofficeModule struct {
	db        *gorm.DB
	pageCache cache.Store
}

func NewBackofficeModule(db *gorm.DB, pageCache cache.Store) *BackofficeModule {
	return &BackofficeModule{db: db, pageCache: pageCache}
}

func (b *BackofficeModule) RegisterRoutes(router *gin.Engine) {
	backofficeGroup := router.Group("/admin", users.RequireAuth, b.requireStaff)
	{
		backofficeGroup.GET("/", users.Handle(b.index))
		backofficeGroup.POST("/groups/", users.Handle(b.createGroup))
		backofficeGroup.POST("/posts/:post_id/delete/", users.Handle(b.deletePost))
		backofficeGroup.POST("/cache/clear/", users.Handle(b.clearCache))
	}
}

// requireStaff hides the area from everyone who is not staff.
func (b *BackofficeModule) requireStaff(c *gin.Context) {
	if user := users.CurrentUser(c); user == nil || !user.IsStaff {
		render.Respond(c, render.NotFound{})
		c.Abort()
		return
	}
	c.Next()
}

type GroupWithStats struct {
	Group     models.Group
	PostCount int64
}

func (b *BackofficeModule) groupStats() ([]GroupWithStats, error) {
	var groups []models.Group
	if err := b.db.Order("title").Find(&groups).Error; err != nil {
		return nil, err
	}

	type groupCount struct {
		GroupID uint
		Count   int64
	}
	var counts []groupCount
	if err := b.db.Model(&models.Post{}).
		Select("group_id, count(*) as count").
		Where("group_id IS NOT NULL").
		Group("group_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	byGroup := lo.Associate(counts, func(gc groupCount) (uint, int64) {
		return gc.GroupID, gc.Count
	})
	return lo.Map(groups, func(g models.Group, _ int) GroupWithStats {
		return GroupWithStats{Group: g, PostCount: byGroup[g.ID]}
	}), nil
}

func (b *BackofficeModule) dashboard(form *forms.GroupForm, errs forms.Errors, message string) render.Result {
	stats, err := b.groupStats()
	if err != nil {
		return render.Failure{Err: err}
	}
	var recent []models.Post
	if err := b.db.Preload("Author").Order("pub_date DESC").Order("id DESC").
		Limit(recentPosts).Find(&recent).Error; err != nil {
		return render.Failure{Err: err}
	}
	ctx := gin.H{
		"title":   "Administration",
		"groups":  stats,
		"posts":   recent,
		"form":    form,
		"message": message,
	}
	if errs.Any() {
		return render.Invalid{Template: "backoffice_index.html", Context: ctx, Errors: errs}
	}
	ctx["errors"] = forms.Errors{}
	return render.HTML{Template: "backoffice_index.html", Context: ctx}
}

func (b *BackofficeModule) index(c *gin.Context, viewer *models.User) render.Result {
	message := ""
	switch c.Query("done") {
	case "group":
		message = "Group created"
	case "post":
		message = "Post deleted"
	case "cache":
		message = "Cache cleared"
	}
	return b.dashboard(&forms.GroupForm{}, nil, message)
}

func (b *BackofficeModule) createGroup(c *gin.Context, viewer *models.User) render.Result {
	var form forms.GroupForm
	if err := c.ShouldBind(&form); err != nil {
		return b.dashboard(&form, forms.Errors{forms.NonField: {"Could not read the submitted form."}}, "")
	}

	if errs := form.Validate(b.db); errs.Any() {
		return b.dashboard(&form, errs, "")
	}

	group := models.Group{Title: form.Title, Slug: form.Slug, Description: form.Description}
	if err := b.db.Create(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return b.dashboard(&form, forms.Errors{"slug": {"Group with this slug already exists."}}, "")
		}
		return render.Failure{Err: err}
	}

	log.Printf("group %q created by %s", group.Slug, viewer.Username)
	return render.Redirect{Location: "/admin/?done=group"}
}

// deletePost removes a post together with its comments.
func (b *BackofficeModule) deletePost(c *gin.Context, viewer *models.User) render.Result {
	postID := c.Param("post_id")

	err := b.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, "id = ?", postID).Error; err != nil {
			return models.NotFound(err)
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if errors.Is(err, models.ErrNotFound) {
		return render.NotFound{}
	}
	if err != nil {
		return render.Failure{Err: err}
	}

	log.Printf("post %s deleted by %s", postID, viewer.Username)
	return render.Redirect{Location: "/admin/?done=post"}
}

func (b *BackofficeModule) clearCache(c *gin.Context, viewer *models.User) render.Result {
	if b.pageCache != nil {
		if err := b.pageCache.Clear(c.Request.Context()); err != nil {
			return render.Failure{Err: err}
		}
	}

	log.Printf("page cache cleared by %s", viewer.Username)
	return render.Redirect{Location: "/admin/?done=cache"}
}
