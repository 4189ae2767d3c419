package posts

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"yatube/cache"
	"yatube/forms"
	"yatube/models"
	"yatube/paginator"
	"yatube/render"
	"yatube/storage"
	"yatube/users"
)

const (
	IndexPerPage   = 10
	GroupPerPage   = 5
	ProfilePerPage = 10
	FollowPerPage  = 5

	imageFolder = "posts"
)

var errNotAuthor = errors.New("posts: not the author")

type PostsModule struct {
	db        *gorm.DB
	storage   storage.Storage
	pageCache cache.Store
}

// NewPostsModule builds the module. pageCache may be nil, in which case the
// main listing is not cached.
func NewPostsModule(db *gorm.DB, store storage.Storage, pageCache cache.Store) *PostsModule {
	return &PostsModule{db: db, storage: store, pageCache: pageCache}
}

func (p *PostsModule) RegisterRoutes(router *gin.Engine) {
	index := []gin.HandlerFunc{}
	if p.pageCache != nil {
		index = append(index, cache.CacheMiddleware(p.pageCache, users.ViewerKey))
	}
	router.GET("/", append(index, users.Handle(p.index))...)
	router.GET("/group/:slug/", users.Handle(p.groupPosts))
	router.GET("/profile/:username/", users.Handle(p.profile))
	router.GET("/posts/:post_id/", users.Handle(p.postDetail))

	authGroup := router.Group("/", users.RequireAuth)
	{
		authGroup.GET("/create/", users.Handle(p.postCreate))
		authGroup.POST("/create/", users.Handle(p.postCreate))
		authGroup.GET("/posts/:post_id/edit/", users.Handle(p.postEdit))
		authGroup.POST("/posts/:post_id/edit/", users.Handle(p.postEdit))
		authGroup.GET("/posts/:post_id/comment/", users.Handle(p.addComment))
		authGroup.POST("/posts/:post_id/comment/", users.Handle(p.addComment))
		authGroup.GET("/follow/", users.Handle(p.followIndex))
		authGroup.GET("/profile/:username/follow/", users.Handle(p.profileFollow))
		authGroup.GET("/profile/:username/unfollow/", users.Handle(p.profileUnfollow))
	}
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func postURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

// posts is the base query for post listings, newest first.
func (p *PostsModule) posts() *gorm.DB {
	return p.db.Model(&models.Post{}).Order("pub_date DESC").Order("id DESC")
}

// listPosts paginates query with the author and group of every post loaded.
func listPosts(query *gorm.DB, perPage int, raw string) (*paginator.Page[models.Post], error) {
	return paginator.Query[models.Post](query, perPage, raw, "Author", "Group")
}

func (p *PostsModule) getPost(idParam string) (*models.Post, error) {
	id, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return nil, models.ErrNotFound
	}
	var post models.Post
	if err := p.db.Preload("Author").Preload("Group").First(&post, id).Error; err != nil {
		return nil, models.NotFound(err)
	}
	return &post, nil
}

func (p *PostsModule) getUser(username string) (*models.User, error) {
	var user models.User
	if err := p.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, models.NotFound(err)
	}
	return &user, nil
}

func (p *PostsModule) getGroups() ([]models.Group, error) {
	var groups []models.Group
	err := p.db.Order("title").Find(&groups).Error
	return groups, err
}

// lookupFailed turns a failed lookup into NotFound or a logged 500.
func lookupFailed(err error) render.Result {
	if errors.Is(err, models.ErrNotFound) {
		return render.NotFound{}
	}
	return render.Failure{Err: err}
}

func (p *PostsModule) index(c *gin.Context, viewer *models.User) render.Result {
	page, err := listPosts(p.posts(), IndexPerPage, c.Query("page"))
	if err != nil {
		return render.Failure{Err: err}
	}

	return render.HTML{Template: "posts_index.html", Context: gin.H{
		"page_obj": page,
	}}
}

func (p *PostsModule) groupPosts(c *gin.Context, viewer *models.User) render.Result {
	var group models.Group
	if err := p.db.Where("slug = ?", c.Param("slug")).First(&group).Error; err != nil {
		return lookupFailed(models.NotFound(err))
	}

	page, err := listPosts(p.posts().Where("group_id = ?", group.ID), GroupPerPage, c.Query("page"))
	if err != nil {
		return render.Failure{Err: err}
	}

	return render.HTML{Template: "posts_group_list.html", Context: gin.H{
		"title":    group.Title,
		"group":    &group,
		"page_obj": page,
	}}
}

func (p *PostsModule) profile(c *gin.Context, viewer *models.User) render.Result {
	author, err := p.getUser(c.Param("username"))
	if err != nil {
		return lookupFailed(err)
	}

	page, err := listPosts(p.posts().Where("author_id = ?", author.ID), ProfilePerPage, c.Query("page"))
	if err != nil {
		return render.Failure{Err: err}
	}

	var followersCount, followingCount int64
	if err := p.db.Model(&models.Follow{}).Where("author_id = ?", author.ID).Count(&followersCount).Error; err != nil {
		return render.Failure{Err: err}
	}
	if err := p.db.Model(&models.Follow{}).Where("user_id = ?", author.ID).Count(&followingCount).Error; err != nil {
		return render.Failure{Err: err}
	}

	following := false
	if viewer != nil && viewer.ID != author.ID {
		var count int64
		if err := p.db.Model(&models.Follow{}).
			Where("user_id = ? AND author_id = ?", viewer.ID, author.ID).
			Count(&count).Error; err != nil {
			return render.Failure{Err: err}
		}
		following = count > 0
	}

	return render.HTML{Template: "posts_profile.html", Context: gin.H{
		"title":           author.DisplayName(),
		"profile":         author,
		"page_obj":        page,
		"count_post":      page.Count,
		"following":       following,
		"followers_count": followersCount,
		"following_count": followingCount,
	}}
}

func (p *PostsModule) comments(postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := p.db.Preload("Author").
		Where("post_id = ?", postID).
		Order("created ASC").Order("id ASC").
		Find(&comments).Error
	return comments, err
}

func (p *PostsModule) postDetail(c *gin.Context, viewer *models.User) render.Result {
	post, err := p.getPost(c.Param("post_id"))
	if err != nil {
		return lookupFailed(err)
	}

	var countPost int64
	if err := p.db.Model(&models.Post{}).Where("author_id = ?", post.AuthorID).Count(&countPost).Error; err != nil {
		return render.Failure{Err: err}
	}

	comments, err := p.comments(post.ID)
	if err != nil {
		return render.Failure{Err: err}
	}

	return render.HTML{Template: "posts_detail.html", Context: gin.H{
		"title":      "Post " + strconv.FormatUint(uint64(post.ID), 10),
		"post":       post,
		"count_post": countPost,
		"comments":   comments,
		"form":       &forms.CommentForm{},
	}}
}
