package forms

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"yatube/common"
	"yatube/models"
)

// Errors maps a form field name to its messages. The key "__all__" holds
// errors that belong to the form as a whole.
type Errors map[string][]string

const NonField = "__all__"

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Any() bool {
	return len(e) > 0
}

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report errors under the names the HTML form uses
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
	})
	v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return common.ValidSlug(fl.Field().String())
	})
	return v
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "The two password fields didn't match."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "slug":
		return "Enter a valid slug consisting of lowercase letters, numbers, underscores or hyphens."
	}
	return "Enter a valid value."
}

// check runs the struct validator over form and collects field messages.
func check(form interface{}) Errors {
	errs := Errors{}
	err := validate.Struct(form)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add(NonField, err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

// PostForm covers post creation and editing. The author is never part of it.
type PostForm struct {
	Group      string                `form:"group"`
	Text       string                `form:"text" validate:"required"`
	Image      *multipart.FileHeader `form:"image" validate:"-"`
	ImageClear string                `form:"image-clear"`

	GroupID *uint `form:"-"`
}

// ClearImage reports whether the "clear" checkbox next to the current image was ticked.
func (f *PostForm) ClearImage() bool {
	switch strings.ToLower(f.ImageClear) {
	case "on", "true", "1":
		return true
	}
	return false
}

// PostFormFrom pre-populates a form with an existing post.
func PostFormFrom(post *models.Post) *PostForm {
	form := &PostForm{Text: post.Text, GroupID: post.GroupID}
	if post.GroupID != nil {
		form.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return form
}

// Validate trims the text, checks required fields and resolves the group
// reference against db.
func (f *PostForm) Validate(db *gorm.DB) Errors {
	f.Text = strings.TrimSpace(f.Text)
	f.Group = strings.TrimSpace(f.Group)

	errs := check(f)

	f.GroupID = nil
	if f.Group != "" {
		id, err := strconv.ParseUint(f.Group, 10, 64)
		var group models.Group
		if err != nil || db.Select("id").First(&group, id).Error != nil {
			errs.Add("group", "Select a valid choice. That choice is not one of the available choices.")
		} else {
			f.GroupID = &group.ID
		}
	}
	return errs
}

type CommentForm struct {
	Text string `form:"text" validate:"required"`
}

func (f *CommentForm) Validate() Errors {
	f.Text = strings.TrimSpace(f.Text)
	return check(f)
}

type SignupForm struct {
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Username  string `form:"username" validate:"required,max=150,username"`
	Email     string `form:"email" validate:"omitempty,email"`
	Password1 string `form:"password1" validate:"required,min=8"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

// Validate checks the fields and that the username is not taken.
func (f *SignupForm) Validate(db *gorm.DB) Errors {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)

	errs := check(f)
	if !errs.Has("username") {
		var count int64
		if err := db.Model(&models.User{}).Where("username = ?", f.Username).Count(&count).Error; err != nil {
			log.Printf("Error checking username %q: %v", f.Username, err)
			errs.Add(NonField, "Could not check the username, please try again.")
		} else if count > 0 {
			errs.Add("username", "A user with that username already exists.")
		}
	}
	return errs
}

type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

func (f *LoginForm) Validate() Errors {
	f.Username = strings.TrimSpace(f.Username)
	return check(f)
}

type GroupForm struct {
	Title       string `form:"title" validate:"required,max=200"`
	Slug        string `form:"slug" validate:"omitempty,slug"`
	Description string `form:"description"`
}

// Validate derives the slug from the title when none was given and checks it is free.
func (f *GroupForm) Validate(db *gorm.DB) Errors {
	f.Title = strings.TrimSpace(f.Title)
	f.Slug = strings.TrimSpace(f.Slug)
	f.Description = strings.TrimSpace(f.Description)
	if f.Slug == "" {
		f.Slug = common.Slugify(f.Title)
	}

	errs := check(f)
	if f.Slug == "" && !errs.Has("title") {
		errs.Add("slug", "This field is required.")
	}
	if !errs.Has("slug") && f.Slug != "" {
		var count int64
		if err := db.Model(&models.Group{}).Where("slug = ?", f.Slug).Count(&count).Error; err != nil {
			log.Printf("Error checking group slug %q: %v", f.Slug, err)
			errs.Add(NonField, "Could not check the slug, please try again.")
		} else if count > 0 {
			errs.Add("slug", "Group with this slug already exists.")
		}
	}
	return errs
}
