package posts

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yatube/models"
	"yatube/render"
)

// followIndex lists posts of every author the viewer follows.
func (p *PostsModule) followIndex(c *gin.Context, viewer *models.User) render.Result {
	followed := p.db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", viewer.ID)

	page, err := listPosts(p.posts().Where("author_id IN (?)", followed), FollowPerPage, c.Query("page"))
	if err != nil {
		return render.Failure{Err: err}
	}

	return render.HTML{Template: "posts_follow.html", Context: gin.H{
		"title":    "Subscriptions",
		"page_obj": page,
	}}
}

// profileFollow subscribes the viewer to the author. Repeating it is a no-op;
// the unique (user, author) index settles concurrent attempts.
func (p *PostsModule) profileFollow(c *gin.Context, viewer *models.User) render.Result {
	author, err := p.getUser(c.Param("username"))
	if err != nil {
		return lookupFailed(err)
	}
	if author.ID == viewer.ID {
		return render.Redirect{Location: profileURL(author.Username)}
	}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Follow{UserID: viewer.ID, AuthorID: author.ID}).Error
	})
	if err != nil {
		return render.Failure{Err: err}
	}

	return render.Redirect{Location: profileURL(author.Username)}
}

func (p *PostsModule) profileUnfollow(c *gin.Context, viewer *models.User) render.Result {
	author, err := p.getUser(c.Param("username"))
	if err != nil {
		return lookupFailed(err)
	}
	if author.ID == viewer.ID {
		return render.Redirect{Location: profileURL(author.Username)}
	}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		return tx.Where("user_id = ? AND author_id = ?", viewer.ID, author.ID).
			Delete(&models.Follow{}).Error
	})
	if err != nil {
		return render.Failure{Err: err}
	}

	return render.Redirect{Location: profileURL(author.Username)}
}
