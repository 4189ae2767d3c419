// Package users is the identity side of the site: signup, login, logout
// and the session-backed current user.
package users

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"yatube/forms"
	"yatube/models"
	"yatube/render"
)

const (
	LoginURL  = "/auth/login/"
	LogoutURL = "/auth/logout/"
	SignupURL = "/auth/signup/"

	sessionUserKey = "user_id"
	contextUserKey = "user"
)

var ErrUsernameTaken = errors.New("users: username already taken")

type UsersModule struct {
	db *gorm.DB
}

func NewUsersModule(db *gorm.DB) *UsersModule {
	return &UsersModule{db: db}
}

func (u *UsersModule) RegisterRoutes(router *gin.Engine) {
	authGroup := router.Group("/auth")
	{
		authGroup.GET("/signup/", Handle(u.signupPage))
		authGroup.POST("/signup/", Handle(u.signupPost))
		authGroup.GET("/login/", Handle(u.loginPage))
		authGroup.POST("/login/", Handle(u.loginPost))
		authGroup.GET("/logout/", u.logout)
		authGroup.POST("/logout/", u.logout)
	}
}

// LoadUser resolves the session's user id into a *models.User for the rest
// of the chain. Stale ids are dropped from the session.
func (u *UsersModule) LoadUser(c *gin.Context) {
	session := sessions.Default(c)
	id, ok := sessionUserID(session.Get(sessionUserKey))
	if !ok {
		c.Next()
		return
	}

	var user models.User
	if err := u.db.First(&user, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Error loading session user %d: %v", id, err)
		}
		session.Delete(sessionUserKey)
		if err := session.Save(); err != nil {
			log.Printf("Error saving session: %v", err)
		}
		c.Next()
		return
	}

	SetCurrentUser(c, &user)
	c.Next()
}

func sessionUserID(v interface{}) (uint, bool) {
	switch id := v.(type) {
	case uint:
		return id, true
	case int:
		return uint(id), id > 0
	}
	return 0, false
}

// CurrentUser is the authenticated user of the request, nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	if v, exists := c.Get(contextUserKey); exists {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// SetCurrentUser makes user the authenticated user for the rest of the chain.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(contextUserKey, user)
}

// ViewerKey identifies the viewer for cache variation: the user id, or "" when anonymous.
func ViewerKey(c *gin.Context) string {
	if user := CurrentUser(c); user != nil {
		return strconv.FormatUint(uint64(user.ID), 10)
	}
	return ""
}

// Handle adapts a handler that takes the current user (nil when anonymous)
// explicitly. The user is also exposed to templates as "viewer".
func Handle(fn func(c *gin.Context, viewer *models.User) render.Result) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := CurrentUser(c)
		render.Respond(c, render.WithContext(fn(c, viewer), "viewer", viewer))
	}
}

// LoginRedirect is the login URL that sends the user back to next afterwards.
func LoginRedirect(next string) string {
	return LoginURL + "?next=" + url.QueryEscape(next)
}

// RequireAuth redirects anonymous requests to the login page, carrying the
// original request URI in the next parameter.
func RequireAuth(c *gin.Context) {
	if CurrentUser(c) == nil {
		c.Redirect(http.StatusFound, LoginRedirect(c.Request.URL.RequestURI()))
		c.Abort()
		return
	}
	c.Next()
}

// Login binds user to the session.
func Login(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		return err
	}
	SetCurrentUser(c, user)
	return nil
}

// safeNext only accepts local absolute paths, anything else falls back to "/".
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func (u *UsersModule) signupPage(c *gin.Context, viewer *models.User) render.Result {
	return render.HTML{Template: "users_signup.html", Context: gin.H{
		"form":   &forms.SignupForm{},
		"errors": forms.Errors{},
	}}
}

func (u *UsersModule) signupPost(c *gin.Context, viewer *models.User) render.Result {
	var form forms.SignupForm
	if err := c.ShouldBind(&form); err != nil {
		return render.Invalid{Template: "users_signup.html", Context: gin.H{"form": &form},
			Errors: forms.Errors{forms.NonField: {"Could not read the submitted form."}}}
	}

	if errs := form.Validate(u.db); errs.Any() {
		form.Password1, form.Password2 = "", ""
		return render.Invalid{Template: "users_signup.html", Context: gin.H{"form": &form}, Errors: errs}
	}

	user, err := CreateUser(u.db, &models.User{
		Username:  form.Username,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
	}, form.Password1)
	if errors.Is(err, ErrUsernameTaken) {
		form.Password1, form.Password2 = "", ""
		return render.Invalid{Template: "users_signup.html", Context: gin.H{"form": &form},
			Errors: forms.Errors{"username": {"A user with that username already exists."}}}
	}
	if err != nil {
		return render.Failure{Err: err}
	}

	if err := Login(c, user); err != nil {
		return render.Failure{Err: err}
	}
	return render.Redirect{Location: "/"}
}

func (u *UsersModule) loginPage(c *gin.Context, viewer *models.User) render.Result {
	if viewer != nil {
		return render.Redirect{Location: safeNext(c.Query("next"))}
	}
	return render.HTML{Template: "users_login.html", Context: gin.H{
		"form":   &forms.LoginForm{},
		"errors": forms.Errors{},
		"next":   c.Query("next"),
	}}
}

func (u *UsersModule) loginPost(c *gin.Context, viewer *models.User) render.Result {
	var form forms.LoginForm
	bindErr := c.ShouldBind(&form)
	next := c.DefaultPostForm("next", c.Query("next"))
	ctx := gin.H{"form": &forms.LoginForm{Username: form.Username}, "next": next}

	if bindErr != nil {
		return render.Invalid{Template: "users_login.html", Context: ctx,
			Errors: forms.Errors{forms.NonField: {"Could not read the submitted form."}}}
	}

	if errs := form.Validate(); errs.Any() {
		return render.Invalid{Template: "users_login.html", Context: ctx, Errors: errs}
	}

	var user models.User
	if err := u.db.Where("username = ?", form.Username).First(&user).Error; err != nil ||
		!CheckPasswordHash(form.Password, user.PasswordHash) {
		return render.Invalid{Template: "users_login.html", Context: ctx, Errors: forms.Errors{
			forms.NonField: {"Please enter a correct username and password."},
		}}
	}

	if err := Login(c, &user); err != nil {
		return render.Failure{Err: err}
	}
	return render.Redirect{Location: safeNext(next)}
}

func (u *UsersModule) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		log.Printf("Error saving session: %v", err)
	}

	c.HTML(http.StatusOK, "users_logged_out.html", gin.H{})
}

// CreateUser hashes password and inserts user.
func CreateUser(db *gorm.DB, user *models.User, password string) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		return tx.Create(user).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateSuperuser creates a staff account, the only kind that can reach the backoffice.
func CreateSuperuser(db *gorm.DB, username, email, password string) (*models.User, error) {
	form := forms.SignupForm{Username: username, Email: email, Password1: password, Password2: password}
	if errs := form.Validate(db); errs.Any() {
		for field, msgs := range errs {
			return nil, fmt.Errorf("%s: %s", field, strings.Join(msgs, " "))
		}
	}
	return CreateUser(db, &models.User{Username: form.Username, Email: form.Email, IsStaff: true}, password)
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
