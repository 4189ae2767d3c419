package posts

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"yatube/forms"
	"yatube/models"
	"yatube/render"
	"yatube/storage"
)

// saveImage stores the uploaded image of form, if any, and returns its reference.
func (p *PostsModule) saveImage(c *gin.Context, form *forms.PostForm) (string, forms.Errors, error) {
	if form.Image == nil {
		return "", nil, nil
	}

	f, err := form.Image.Open()
	if err != nil {
		return "", forms.Errors{"image": {"The submitted file could not be read."}}, nil
	}
	defer f.Close()

	ref, err := p.storage.Save(c.Request.Context(), imageFolder, form.Image.Filename, f)
	if errors.Is(err, storage.ErrTooLarge) {
		return "", forms.Errors{"image": {"The submitted file is too large."}}, nil
	}
	return ref, nil, err
}

// discardImage removes an upload whose post was never written.
func (p *PostsModule) discardImage(c *gin.Context, ref string) {
	if ref == "" {
		return
	}
	if err := p.storage.Delete(c.Request.Context(), ref); err != nil {
		log.Printf("Error removing orphaned upload %s: %v", ref, err)
	}
}

func (p *PostsModule) postCreate(c *gin.Context, viewer *models.User) render.Result {
	groups, err := p.getGroups()
	if err != nil {
		return render.Failure{Err: err}
	}

	form := &forms.PostForm{}
	ctx := gin.H{"title": "New post", "form": form, "groups": groups}

	if c.Request.Method != "POST" {
		ctx["errors"] = forms.Errors{}
		return render.HTML{Template: "posts_create.html", Context: ctx}
	}

	if err := c.ShouldBind(form); err != nil {
		return render.Invalid{Template: "posts_create.html", Context: ctx,
			Errors: forms.Errors{forms.NonField: {"Could not read the submitted form."}}}
	}
	if errs := form.Validate(p.db); errs.Any() {
		return render.Invalid{Template: "posts_create.html", Context: ctx, Errors: errs}
	}

	ref, errs, err := p.saveImage(c, form)
	if err != nil {
		return render.Failure{Err: err}
	}
	if errs.Any() {
		return render.Invalid{Template: "posts_create.html", Context: ctx, Errors: errs}
	}

	post := models.Post{
		Text:     form.Text,
		GroupID:  form.GroupID,
		Image:    ref,
		AuthorID: viewer.ID,
	}
	if err := p.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&post).Error
	}); err != nil {
		p.discardImage(c, ref)
		return render.Failure{Err: err}
	}

	log.Printf("post %d created by %s", post.ID, viewer.Username)
	return render.Redirect{Location: profileURL(viewer.Username)}
}

// postEdit lets the author change text, group and image. Anyone else is
// sent to the read-only detail page without an error.
func (p *PostsModule) postEdit(c *gin.Context, viewer *models.User) render.Result {
	post, err := p.getPost(c.Param("post_id"))
	if err != nil {
		return lookupFailed(err)
	}
	if post.AuthorID != viewer.ID {
		return render.Redirect{Location: postURL(post.ID)}
	}

	groups, err := p.getGroups()
	if err != nil {
		return render.Failure{Err: err}
	}

	form := forms.PostFormFrom(post)
	ctx := gin.H{"title": "Edit post", "form": form, "groups": groups, "is_edit": true, "post": post}

	if c.Request.Method != "POST" {
		ctx["errors"] = forms.Errors{}
		return render.HTML{Template: "posts_create.html", Context: ctx}
	}

	// unbound fields must not fall back to the stored values
	*form = forms.PostForm{}
	if err := c.ShouldBind(form); err != nil {
		return render.Invalid{Template: "posts_create.html", Context: ctx,
			Errors: forms.Errors{forms.NonField: {"Could not read the submitted form."}}}
	}
	if errs := form.Validate(p.db); errs.Any() {
		return render.Invalid{Template: "posts_create.html", Context: ctx, Errors: errs}
	}

	image := post.Image
	if form.ClearImage() {
		image = ""
	}
	ref, errs, err := p.saveImage(c, form)
	if err != nil {
		return render.Failure{Err: err}
	}
	if errs.Any() {
		return render.Invalid{Template: "posts_create.html", Context: ctx, Errors: errs}
	}
	if ref != "" {
		image = ref
	}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		var current models.Post
		if err := tx.Select("id", "author_id").First(&current, post.ID).Error; err != nil {
			return models.NotFound(err)
		}
		if current.AuthorID != viewer.ID {
			return errNotAuthor
		}
		return tx.Model(&current).Updates(map[string]interface{}{
			"text":     form.Text,
			"group_id": form.GroupID,
			"image":    image,
		}).Error
	})
	if err != nil {
		p.discardImage(c, ref)
	}
	switch {
	case errors.Is(err, models.ErrNotFound):
		return render.NotFound{}
	case errors.Is(err, errNotAuthor):
		return render.Redirect{Location: postURL(post.ID)}
	case err != nil:
		return render.Failure{Err: err}
	}

	return render.Redirect{Location: postURL(post.ID)}
}
