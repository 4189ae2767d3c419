// Package render turns handler results into gin responses.
//
// Handlers decide what happens to a request and return one of HTML,
// Redirect, NotFound, Invalid or Failure; Respond writes it out.
package render

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"yatube/forms"
)

const (
	NotFoundTemplate = "error_404.html"
	FailureTemplate  = "error_500.html"
)

type Result interface {
	respond(c *gin.Context)
}

// HTML renders Template with Context. A zero Status means 200.
type HTML struct {
	Status   int
	Template string
	Context  gin.H
}

func (r HTML) respond(c *gin.Context) {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	c.HTML(status, r.Template, r.Context)
}

// Redirect sends a 302 to Location.
type Redirect struct {
	Location string
}

func (r Redirect) respond(c *gin.Context) {
	c.Redirect(http.StatusFound, r.Location)
}

// NotFound is the response for unknown ids, slugs and usernames. It leaks no detail.
type NotFound struct{}

func (NotFound) respond(c *gin.Context) {
	c.HTML(http.StatusNotFound, NotFoundTemplate, gin.H{
		"path": c.Request.URL.Path,
	})
}

// Invalid re-renders a submission form with its field errors. Nothing was persisted.
type Invalid struct {
	Template string
	Context  gin.H
	Errors   forms.Errors
}

func (r Invalid) respond(c *gin.Context) {
	ctx := gin.H{}
	for k, v := range r.Context {
		ctx[k] = v
	}
	ctx["errors"] = r.Errors
	c.HTML(http.StatusOK, r.Template, ctx)
}

// Failure logs Err and answers with a generic 500 page.
type Failure struct {
	Err error
}

func (r Failure) respond(c *gin.Context) {
	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, r.Err)
	c.HTML(http.StatusInternalServerError, FailureTemplate, gin.H{})
}

// WithContext returns result with key set in its template context.
// Results that render no template are returned unchanged.
func WithContext(result Result, key string, value interface{}) Result {
	merge := func(ctx gin.H) gin.H {
		merged := gin.H{key: value}
		for k, v := range ctx {
			merged[k] = v
		}
		return merged
	}
	switch r := result.(type) {
	case HTML:
		r.Context = merge(r.Context)
		return r
	case Invalid:
		r.Context = merge(r.Context)
		return r
	}
	return result
}

// Respond writes result to c.
func Respond(c *gin.Context, result Result) {
	result.respond(c)
}

// Handler adapts a result-returning function to gin.
func Handler(fn func(c *gin.Context) Result) gin.HandlerFunc {
	return func(c *gin.Context) {
		Respond(c, fn(c))
	}
}
