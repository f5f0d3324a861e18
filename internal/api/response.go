package api

import (
	"errors"
	"log"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func init() {
	// hata mesajlarında json alan adları görünsün
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate request gövdesini struct tag'lerine göre doğrular.
func Validate(v any) error {
	return validate.Struct(v)
}

// DetailError fiber.Error'a ek olarak istemciye "error" alanında detay taşır.
type DetailError struct {
	Code    int
	Message string
	Detail  string
}

func (e *DetailError) Error() string {
	return e.Message + ": " + e.Detail
}

func NewDetailError(code int, message, detail string) *DetailError {
	return &DetailError{Code: code, Message: message, Detail: detail}
}

// BindJSON gövdeyi okur ve doğrular; hatalar 400 olarak döner.
func BindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return NewDetailError(fiber.StatusBadRequest, "Invalid request body", err.Error())
	}
	if err := Validate(dst); err != nil {
		return err
	}
	return nil
}

func OK(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func Created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": data})
}

func List(c *fiber.Ctx, data any, p Pagination, totalKey string) error {
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       data,
		"pagination": p.Map(totalKey),
	})
}

func Message(c *fiber.Ctx, msg string) error {
	return c.JSON(fiber.Map{"success": true, "message": msg})
}

// ErrorHandler tüm hataları {success:false, message, error?} formatına çevirir.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"message": fe.Message,
		})
	}

	var de *DetailError
	if errors.As(err, &de) {
		return c.Status(de.Code).JSON(fiber.Map{
			"success": false,
			"message": de.Message,
			"error":   de.Detail,
		})
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation failed",
			"error":   describeValidation(ve),
		})
	}

	log.Printf("[ERROR] %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "Internal server error",
	})
}

// Describe doğrulama hatalarını okunabilir metne çevirir, diğer hataları olduğu gibi döner.
func Describe(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return describeValidation(ve)
	}
	return err.Error()
}

func describeValidation(ve validator.ValidationErrors) string {
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fe.Field()+" must be one of ["+fe.Param()+"]")
		case "min", "gte":
			msgs = append(msgs, fe.Field()+" must be at least "+fe.Param())
		case "max", "lte":
			msgs = append(msgs, fe.Field()+" must be at most "+fe.Param())
		case "email":
			msgs = append(msgs, fe.Field()+" must be a valid email")
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
