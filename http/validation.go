package handler

import (
	"strings"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"people/db"
)

const (
	maxNicknameLength = 32
	maxNameLength     = 100
	maxStackLength    = 32
)

var (
	errInvalidUTF8 = validation.NewError("validation_invalid_utf8", "must be valid UTF-8")
	errNullChar    = validation.NewError("validation_null_char", "must not contain NUL characters")

	// storableText rejects strings PostgreSQL cannot hold in a UTF8 database.
	storableText = validation.By(func(value interface{}) error {
		v, isNil := validation.Indirect(value)
		s, ok := v.(string)
		if isNil || !ok {
			return nil
		}

		switch {
		case !utf8.ValidString(s):
			return errInvalidUTF8
		case strings.ContainsRune(s, 0):
			return errNullChar
		}
		return nil
	})
)

// createRequest is the POST /people body. Pointers tell a missing or null
// field apart from a present one; wrong JSON types fail decoding instead.
type createRequest struct {
	Nickname  *string   `json:"nickname"`
	Name      *string   `json:"name"`
	BirthDate *string   `json:"birth_date"`
	Stack     []*string `json:"stack"`
}

func (r createRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Nickname, validation.Required, storableText, validation.RuneLength(1, maxNicknameLength)),
		validation.Field(&r.Name, validation.Required, storableText, validation.RuneLength(1, maxNameLength)),
		validation.Field(&r.BirthDate, validation.Required, validation.Date(db.DateLayout)),
		validation.Field(&r.Stack, validation.Each(validation.NotNil, storableText, validation.RuneLength(0, maxStackLength))),
	)
}

// person must only be called after Validate succeeded.
func (r createRequest) person() db.Person {
	birthDate, _ := time.Parse(db.DateLayout, *r.BirthDate)

	var stack []string
	if r.Stack != nil {
		stack = make([]string, len(r.Stack))
		for i, tag := range r.Stack {
			stack[i] = *tag
		}
	}

	return db.Person{
		Nickname:  *r.Nickname,
		Name:      *r.Name,
		BirthDate: birthDate,
		Stack:     stack,
	}
}
