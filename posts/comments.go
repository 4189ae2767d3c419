package posts

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"yatube/forms"
	"yatube/models"
	"yatube/render"
)

// addComment stores a comment on the post. Invalid input re-renders the
// comment page with the errors and stores nothing.
func (p *PostsModule) addComment(c *gin.Context, viewer *models.User) render.Result {
	post, err := p.getPost(c.Param("post_id"))
	if err != nil {
		return lookupFailed(err)
	}

	form := &forms.CommentForm{}
	invalid := func(errs forms.Errors) render.Result {
		comments, err := p.comments(post.ID)
		if err != nil {
			return render.Failure{Err: err}
		}
		return render.Invalid{Template: "posts_comment_form.html", Context: gin.H{
			"title":    "Comment",
			"post":     post,
			"comments": comments,
			"form":     form,
		}, Errors: errs}
	}

	if c.Request.Method != "POST" {
		return invalid(forms.Errors{})
	}
	if err := c.ShouldBind(form); err != nil {
		return invalid(forms.Errors{forms.NonField: {"Could not read the submitted form."}})
	}
	if errs := form.Validate(); errs.Any() {
		return invalid(errs)
	}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		var current models.Post
		if err := tx.Select("id").First(&current, post.ID).Error; err != nil {
			return models.NotFound(err)
		}
		return tx.Create(&models.Comment{
			PostID:   current.ID,
			AuthorID: viewer.ID,
			Text:     form.Text,
		}).Error
	})
	if err != nil {
		return lookupFailed(err)
	}

	return render.Redirect{Location: postURL(post.ID)}
}
