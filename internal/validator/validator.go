package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/stemsi/lesson-orchestrator/internal/model"
)

// tagCorrectOption is reported when a quiz answer index points past its options.
const tagCorrectOption = "correct_option"

var (
	once     sync.Once
	validate *govalidator.Validate
	// trans is the singleton English translator for validation errors.
	trans ut.Translator
)

// Setup builds the validator with English translations and the lesson
// struct rules. Safe to call more than once.
func Setup() {
	once.Do(func() {
		v := govalidator.New(govalidator.WithRequiredStructEnabled())

		// Use JSON tag name for field names in error messages.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		v.RegisterStructValidation(quizQuestionRule, model.QuizQuestion{})

		// Register English translations.
		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")
		en_translations.RegisterDefaultTranslations(v, trans)
		v.RegisterTranslation(tagCorrectOption, trans,
			func(ut ut.Translator) error {
				return ut.Add(tagCorrectOption, "{0} must point at one of the options", true)
			},
			func(ut ut.Translator, fe govalidator.FieldError) string {
				msg, _ := ut.T(tagCorrectOption, fe.Field())
				return msg
			},
		)

		validate = v
	})
}

func quizQuestionRule(sl govalidator.StructLevel) {
	q := sl.Current().Interface().(model.QuizQuestion)
	if q.CorrectOptionIndex >= len(q.Options) {
		sl.ReportError(q.CorrectOptionIndex, "correctOptionIndex", "CorrectOptionIndex", tagCorrectOption, "")
	}
}

// Struct validates v against its `validate` tags.
func Struct(v interface{}) error {
	Setup()
	return validate.Struct(v)
}

// TranslateErrors takes a validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	Setup()
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			// Drop the root struct name: "quiz[0].options" rather than "Step.quiz[0].options".
			key := fe.Namespace()
			if i := strings.IndexByte(key, '.'); i >= 0 {
				key = key[i+1:]
			}
			fields[key] = fe.Translate(trans)
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// Bind decodes the JSON request body into dst and validates it.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	if err := Struct(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
