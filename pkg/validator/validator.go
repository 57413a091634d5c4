package validator

import (
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

// Init регистрирует кастомные правила. Вызывается один раз при старте.
func Init() {
	validate = validator.New()

	// objectid — строка должна быть валидным hex ObjectID
	validate.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		_, err := primitive.ObjectIDFromHex(fl.Field().String())
		return err == nil
	})
}

// Struct валидирует структуру по её validate-тегам
func Struct(s interface{}) error {
	if validate == nil {
		Init()
	}
	return validate.Struct(s)
}
