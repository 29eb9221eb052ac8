package app

import (
	"errors"
	"sync"

	"Gin_postgres_redis_lending/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the domain binding tags to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	var err error
	registerOnce.Do(func() { err = registerTags(v) })
	return err
}

func registerTags(v *validator.Validate) error {
	tags := map[string]validator.Func{
		"role": func(fl validator.FieldLevel) bool {
			return models.Role(fl.Field().String()).Valid()
		},
		"requestable_role": func(fl validator.FieldLevel) bool {
			return models.Role(fl.Field().String()).Requestable()
		},
		"instance_status": func(fl validator.FieldLevel) bool {
			return models.InstanceStatus(fl.Field().String()).Valid()
		},
		"not_returned_reason": func(fl validator.FieldLevel) bool {
			return models.NotReturnedReason(fl.Field().String()).Valid()
		},
		"return_condition": func(fl validator.FieldLevel) bool {
			switch models.InstanceStatus(fl.Field().String()) {
			case models.InstanceAvailable, models.InstanceFaulty, models.InstanceInRepair:
				return true
			}
			return false
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
