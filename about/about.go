package about

import (
	"github.com/gin-gonic/gin"

	"yatube/models"
	"yatube/render"
	"yatube/users"
)

// AboutModule serves the static informational pages.
type AboutModule struct{}

func NewAboutModule() *AboutModule {
	return &AboutModule{}
}

func (a *AboutModule) RegisterRoutes(router *gin.Engine) {
	aboutGroup := router.Group("/about")
	{
		aboutGroup.GET("/author/", users.Handle(a.page("about_author.html", "About the author")))
		aboutGroup.GET("/tech/", users.Handle(a.page("about_tech.html", "Technologies")))
	}
}

func (a *AboutModule) page(template, title string) func(*gin.Context, *models.User) render.Result {
	return func(c *gin.Context, viewer *models.User) render.Result {
		return render.HTML{Template: template, Context: gin.H{"title": title}}
	}
}
