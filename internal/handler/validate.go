package handler

import (
    "net/http"
    "reflect"
    "strings"

    "github.com/go-playground/locales/en"
    ut "github.com/go-playground/universal-translator"
    "github.com/go-playground/validator/v10"
    en_translations "github.com/go-playground/validator/v10/translations/en"
    "github.com/labstack/echo/v4"
    "github.com/pkg/errors"
)

const notBlankTag = "notblank"

// Validator adapts go-playground/validator to echo.Validator.  Field names
// in errors are the JSON tag names and messages are English sentences.
type Validator struct {
    v     *validator.Validate
    trans ut.Translator
}

// NewValidator builds the request validator installed on the echo instance.
func NewValidator() *Validator {
    v := validator.New()

    _en := en.New()
    uni := ut.New(_en, _en)
    trans, _ := uni.GetTranslator("en")
    _ = en_translations.RegisterDefaultTranslations(v, trans)

    v.RegisterTagNameFunc(func(fld reflect.StructField) string {
        name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        if name == "" {
            name = strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
        }
        return name
    })

    _ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
        s, ok := fl.Field().Interface().(string)
        return ok && strings.TrimSpace(s) != ""
    })
    _ = v.RegisterTranslation(notBlankTag, trans,
        func(ut.Translator) error { return nil },
        func(_ ut.Translator, fe validator.FieldError) string { return "this field cannot be blank" })

    return &Validator{v: v, trans: trans}
}

func (cv *Validator) Validate(i interface{}) error { return cv.v.Struct(i) }

// FieldErrors renders validation errors as a field -> message map.
func (cv *Validator) FieldErrors(errs validator.ValidationErrors) map[string]string {
    out := make(map[string]string, len(errs))
    for _, fe := range errs {
        out[fe.Field()] = fe.Translate(cv.trans)
    }
    return out
}

// bindAndValidate decodes the request into req and validates it.  The
// returned error is handled by HTTPErrorHandler.
func bindAndValidate(c echo.Context, req interface{}) error {
    if err := c.Bind(req); err != nil {
        return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
    }
    return c.Validate(req)
}

// HTTPErrorHandler writes every error that escapes a handler as JSON.
// Validation failures become 400 with a per-field map; anything that is not
// an *echo.HTTPError is logged and reported as 500.
func HTTPErrorHandler(cv *Validator) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        code := http.StatusInternalServerError
        var body interface{} = echo.Map{"error": "internal error"}

        var he *echo.HTTPError
        var ve validator.ValidationErrors
        switch {
        case errors.As(err, &ve):
            code = http.StatusBadRequest
            body = echo.Map{"error": "validation failed", "fields": cv.FieldErrors(ve)}
        case errors.As(err, &he):
            if inner, ok := he.Internal.(*echo.HTTPError); ok {
                he = inner
            }
            code = he.Code
            if m, ok := he.Message.(string); ok {
                body = echo.Map{"error": m}
            } else {
                body = he.Message
            }
        default:
            if mapped, ok := lookupError(err); ok {
                code, body = mapped.status, mapped.body(err)
            }
        }

        if code >= http.StatusInternalServerError {
            c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
        }
        if c.Request().Method == http.MethodHead {
            err = c.NoContent(code)
        } else {
            err = c.JSON(code, body)
        }
        if err != nil {
            c.Logger().Error(err)
        }
    }
}
