package views

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatube/forms"
	"yatube/models"
	"yatube/paginator"
)

func mediaURL(ref string) string { return "/media/" + ref }

func TestLoad_AllPagesParse(t *testing.T) {
	tmpl, err := Load(FuncMap(mediaURL))
	require.NoError(t, err)

	for _, name := range []string{
		"posts_index.html", "posts_group_list.html", "posts_profile.html",
		"posts_detail.html", "posts_create.html", "posts_follow.html",
		"posts_comment_form.html", "about_author.html", "about_tech.html",
		"users_signup.html", "users_login.html", "users_logged_out.html",
		"backoffice_index.html", "error_404.html", "error_500.html",
	} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestIndexTemplate(t *testing.T) {
	tmpl, err := Load(FuncMap(mediaURL))
	require.NoError(t, err)

	posts := []models.Post{{
		ID:      1,
		Text:    "Hello **world**",
		PubDate: time.Now(),
		Author:  models.User{Username: "leo", FirstName: "Leo"},
		Group:   &models.Group{Title: "Cats", Slug: "cats"},
		Image:   "posts/a.gif",
	}}
	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "posts_index.html", map[string]interface{}{
		"page_obj": paginator.Slice(posts, 10, ""),
	})
	require.NoError(t, err)

	body := buf.String()
	assert.Contains(t, body, "<strong>world</strong>")
	assert.Contains(t, body, `/profile/leo/`)
	assert.Contains(t, body, `/group/cats/`)
	assert.Contains(t, body, `/media/posts/a.gif`)
	assert.Contains(t, body, "Log in")
}

func TestCreateTemplate_ShowsErrors(t *testing.T) {
	tmpl, err := Load(FuncMap(mediaURL))
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "posts_create.html", map[string]interface{}{
		"viewer": &models.User{ID: 1, Username: "leo"},
		"form":   &forms.PostForm{Group: "2"},
		"groups": []models.Group{{ID: 2, Title: "Cats"}},
		"errors": forms.Errors{"text": {"This field is required."}},
	})
	require.NoError(t, err)

	body := buf.String()
	assert.Contains(t, body, "This field is required.")
	assert.Contains(t, body, `<option value="2" selected>Cats</option>`)
	assert.Contains(t, body, "User: leo")
}

func TestRenderMarkdown_OmitsRawHTML(t *testing.T) {
	out := string(renderMarkdown("<script>alert(1)</script>\n\nplain"))

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "raw HTML omitted")
	assert.Contains(t, out, "<p>plain</p>")
}

func TestRenderMarkdown_Lists(t *testing.T) {
	out := string(renderMarkdown("- Item 1\n- Item 2"))

	assert.Contains(t, out, "<ul>")
	assert.Contains(t, out, "<li>Item 1</li>")
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "one two", truncateWords(3, "one  two"))
	assert.Equal(t, "one two …", truncateWords(2, "one two three"))
}
