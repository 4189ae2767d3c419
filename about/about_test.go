package about

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatube/views"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	tmpl, err := views.Load(views.FuncMap(func(ref string) string { return "/media/" + ref }))
	require.NoError(t, err)
	router.SetHTMLTemplate(tmpl)
	NewAboutModule().RegisterRoutes(router)
	return router
}

func TestAboutPages(t *testing.T) {
	router := setupTestRouter(t)

	pages := map[string]string{
		"/about/author/": "About the author",
		"/about/tech/":   "Technologies",
	}

	for path, heading := range pages {
		t.Run(path, func(t *testing.T) {
			req, _ := http.NewRequest("GET", path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "<h1>"+heading+"</h1>")
		})
	}
}
